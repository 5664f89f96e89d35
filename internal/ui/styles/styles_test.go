package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/speechcost-tui/internal/models"
)

func TestGetShareStyle(t *testing.T) {
	tests := []struct {
		percent float64
		want    lipgloss.Color
	}{
		{80, Error},
		{60.1, Error},
		{60, Warning},
		{30, Warning},
		{25, Success},
		{0, Success},
	}
	for _, tt := range tests {
		if got := GetShareStyle(tt.percent).GetForeground(); got != tt.want {
			t.Errorf("GetShareStyle(%v) = %v, want %v", tt.percent, got, tt.want)
		}
	}
}

func TestBudgetStyle(t *testing.T) {
	tests := map[models.BudgetStatus]lipgloss.Color{
		models.BudgetCritical: Error,
		models.BudgetWarning:  Warning,
		models.BudgetSafe:     Success,
		models.BudgetUnknown:  TextMuted,
	}
	for status, want := range tests {
		if got := BudgetStyle(status).GetForeground(); got != want {
			t.Errorf("BudgetStyle(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestProviderColor(t *testing.T) {
	if ProviderColor(models.ProviderElevenLabs) == ProviderColor(models.ProviderOpenAI) {
		t.Error("providers should be told apart by color")
	}
	if ProviderColor(models.Provider("other")) != Secondary {
		t.Error("unknown providers fall back to the secondary color")
	}
}
