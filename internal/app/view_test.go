package app

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/speechcost-tui/internal/models"
	"github.com/j-veylop/speechcost-tui/internal/services"
)

func TestPlaceAt(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		block string
		x, y  int
		want  string
	}{
		{"middle", "abcdef\nghijkl", "XY", 2, 1, "abcdef\nghXYkl"},
		{"short line is padded", "ab\ncd", "X", 4, 0, "ab  X\ncd"},
		{"grows past bottom", "ab", "X\nY", 0, 1, "ab\nX\nY"},
		{"negative origin clamps", "abc", "Z", -3, -1, "Zbc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := placeAt(tt.base, tt.block, tt.x, tt.y); got != tt.want {
				t.Errorf("placeAt = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestModel_NavbarStatus(t *testing.T) {
	model := NewModel(nil)
	model.ready = true
	model.width = 160
	model.height = 20

	if model.renderStatus() != "" {
		t.Error("status should be empty before the first snapshot")
	}

	model.state.SetSnapshot(&services.Snapshot{
		MonthlyUsers: 1500,
		TimeRange:    models.TimeRange7Days,
		Estimate:     models.CostEstimate{TotalMonthly: 321.5},
		Budget:       &models.BudgetProjection{Budget: 300, ProjectedMonthly: 321.5, Status: models.BudgetWarning},
	})

	bar := ansi.Strip(model.renderNavbar())
	for _, want := range []string{"1 Overview", "4 Info", "7 Days", "$321.50/mo"} {
		if !strings.Contains(bar, want) {
			t.Errorf("navbar %q missing %q", bar, want)
		}
	}
}

func TestModel_HelpListsTabBindings(t *testing.T) {
	model := NewModel(nil)
	model.ready = true
	model.width = 100
	model.height = 40

	help := ansi.Strip(model.renderHelp())
	for _, want := range []string{"Tabs", "General", "next tab", "rebuild profile", "? or esc closes"} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q", want)
		}
	}
}

func TestModel_ToastIcons(t *testing.T) {
	model := NewModel(nil)
	model.state.AddNotification(NotificationError, "disk full", time.Minute)

	toasts := ansi.Strip(model.renderToasts())
	if !strings.Contains(toasts, "✗ disk full") {
		t.Errorf("toast = %q", toasts)
	}
}
