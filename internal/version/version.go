// Package version reports build metadata for the sct binary.
package version

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

const gitTimeout = 2 * time.Second

// Set with -ldflags "-X .../internal/version.Version=..." at release time.
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

var (
	ldVersion, ldCommit, ldDate = Version, Commit, Date

	once sync.Once

	// git runs a git subcommand and returns its trimmed output.
	git = runGit

	// readBuildInfo is debug.ReadBuildInfo, swapped out in tests.
	readBuildInfo = debug.ReadBuildInfo
)

// Build is the resolved build metadata.
type Build struct {
	Version string
	Commit  string
	Date    string
	Go      string
	OS      string
	Arch    string
}

func (b Build) String() string {
	return fmt.Sprintf("speechcost %s (commit: %s, built: %s, %s/%s)",
		b.Version, b.Commit, b.Date, b.OS, b.Arch)
}

// resolve fills unset fields from the module build info, then from git.
func resolve() {
	once.Do(func() {
		rev, when := vcsStamp()
		if Commit == "" {
			Commit = rev
		}
		if Date == "" {
			Date = when
		}
		if Commit == "" {
			Commit = "unknown"
			if out, err := git("describe", "--always", "--dirty"); err == nil && out != "" {
				Commit = out
			}
		}
		if Version == "" {
			Version = "dev"
			if out, err := git("describe", "--tags", "--abbrev=0"); err == nil && out != "" {
				Version = out
			}
		}
		if Date == "" {
			Date = time.Now().Format(time.DateOnly)
		}
	})
}

// vcsStamp returns the revision and commit date the go tool embedded, if any.
func vcsStamp() (rev, date string) {
	info, ok := readBuildInfo()
	if !ok {
		return "", ""
	}
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
			if len(rev) > 12 {
				rev = rev[:12]
			}
		case "vcs.time":
			if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
				date = t.Format(time.DateOnly)
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev, date
}

func runGit(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

// Reset restores the ldflags values so the next call resolves again.
func Reset() {
	Version, Commit, Date = ldVersion, ldCommit, ldDate
	once = sync.Once{}
}

// Get returns the resolved build metadata.
func Get() Build {
	resolve()
	return Build{
		Version: Version,
		Commit:  Commit,
		Date:    Date,
		Go:      runtime.Version(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
}

// GetVersion returns the release tag, or "dev" outside a tagged checkout.
func GetVersion() string { return Get().Version }

// GetCommit returns the short commit hash.
func GetCommit() string { return Get().Commit }

// GetDate returns the build date.
func GetDate() string { return Get().Date }

// Info returns the one-line version banner.
func Info() string { return Get().String() }
