package version

import (
	"errors"
	"runtime/debug"
	"strings"
	"testing"
)

// stub replaces the git runner and build info reader for one test.
func stub(t *testing.T, gitOut map[string]string, settings []debug.BuildSetting) {
	t.Helper()
	origGit, origInfo := git, readBuildInfo
	t.Cleanup(func() {
		git, readBuildInfo = origGit, origInfo
		Reset()
	})

	git = func(args ...string) (string, error) {
		out, ok := gitOut[strings.Join(args, " ")]
		if !ok {
			return "", errors.New("exit status 128")
		}
		return out, nil
	}
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		if settings == nil {
			return nil, false
		}
		return &debug.BuildInfo{Settings: settings}, true
	}
	Reset()
}

func TestGet_FromGit(t *testing.T) {
	tests := []struct {
		name        string
		gitOut      map[string]string
		wantVersion string
		wantCommit  string
	}{
		{
			name: "tagged checkout",
			gitOut: map[string]string{
				"describe --always --dirty": "abc1234",
				"describe --tags --abbrev=0": "v0.4.0",
			},
			wantVersion: "v0.4.0",
			wantCommit:  "abc1234",
		},
		{
			name:        "no tags",
			gitOut:      map[string]string{"describe --always --dirty": "abc1234"},
			wantVersion: "dev",
			wantCommit:  "abc1234",
		},
		{
			name:        "empty tag output",
			gitOut:      map[string]string{"describe --always --dirty": "abc1234", "describe --tags --abbrev=0": ""},
			wantVersion: "dev",
			wantCommit:  "abc1234",
		},
		{
			name:        "not a repository",
			gitOut:      map[string]string{},
			wantVersion: "dev",
			wantCommit:  "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub(t, tt.gitOut, nil)

			b := Get()
			if b.Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", b.Version, tt.wantVersion)
			}
			if b.Commit != tt.wantCommit {
				t.Errorf("Commit = %q, want %q", b.Commit, tt.wantCommit)
			}
			if b.Date == "" {
				t.Error("Date should default to today")
			}
		})
	}
}

func TestGet_FromBuildInfo(t *testing.T) {
	stub(t, map[string]string{"describe --always --dirty": "from-git"}, []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2025-03-01T10:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	})

	b := Get()
	if b.Commit != "0123456789ab-dirty" {
		t.Errorf("Commit = %q, want the embedded revision", b.Commit)
	}
	if b.Date != "2025-03-01" {
		t.Errorf("Date = %q, want 2025-03-01", b.Date)
	}
}

func TestGet_LdflagsWin(t *testing.T) {
	stub(t, map[string]string{"describe --tags --abbrev=0": "v9.9.9"}, nil)
	Version, Commit, Date = "1.2.3", "deadbee", "2024-12-31"

	if got := Info(); !strings.HasPrefix(got, "speechcost 1.2.3 (commit: deadbee, built: 2024-12-31") {
		t.Errorf("Info() = %q", got)
	}
	if GetVersion() != "1.2.3" || GetCommit() != "deadbee" || GetDate() != "2024-12-31" {
		t.Error("accessors should return the ldflags values")
	}
}
