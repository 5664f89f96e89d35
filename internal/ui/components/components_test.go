package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/speechcost-tui/internal/models"
)

func TestLoader(t *testing.T) {
	l := NewLoader("Init")

	l.SetLabel("Loading")
	if l.Label() != "Loading" {
		t.Errorf("Label = %s, want Loading", l.Label())
	}
	if !strings.Contains(l.View(), "Loading") {
		t.Error("View should include the label")
	}
	if l.Tick() == nil {
		t.Error("Tick should return a command")
	}
	if _, cmd := l.Update(l.spin.Tick()); cmd == nil {
		t.Error("Update should schedule the next frame")
	}

	l.SetPending([]string{"history", "estimate"})
	if !strings.Contains(l.View(), "(estimate, history)") {
		t.Errorf("pending resources missing or unsorted: %q", l.View())
	}
	l.SetPending(nil)
	if strings.Contains(l.View(), "(") {
		t.Error("no pending resources should render no list")
	}
}

func TestRenderLoaderCentered(t *testing.T) {
	view := RenderLoaderCentered(NewLoader("Loading..."), 30, 5)
	if lipgloss.Height(view) != 5 {
		t.Errorf("height = %d, want 5", lipgloss.Height(view))
	}
}

func TestRenderLineChart(t *testing.T) {
	if s := RenderLineChart([]float64{1, 2, 3, 4}, 20, 5, "Test"); !strings.Contains(s, "Test") {
		t.Error("RenderLineChart should include the caption")
	}
	if s := RenderLineChart(nil, 20, 5, "Test"); !strings.Contains(s, "No data") {
		t.Error("empty chart should say so")
	}
}

func TestRenderProviderChart(t *testing.T) {
	s := RenderProviderChart([]float64{1, 2, 3}, []float64{3}, 10, 2, "Requests")
	if !strings.Contains(s, "Requests") {
		t.Error("RenderProviderChart should include the caption")
	}
	if s := RenderProviderChart(nil, nil, 20, 5, ""); !strings.Contains(s, "No data") {
		t.Error("empty chart should say so")
	}
}

func TestRenderBarChart(t *testing.T) {
	s := RenderBarChart([]float64{10, 20}, []string{"A", "Long"}, 40, func(v float64) string {
		return "$" + strings.Repeat("x", int(v/10))
	})
	lines := strings.Split(s, "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if !strings.HasSuffix(lines[1], "$xx") {
		t.Errorf("custom format not applied: %q", lines[1])
	}
	if strings.Count(lines[1], "█") <= strings.Count(lines[0], "█") {
		t.Error("larger value should draw a longer bar")
	}
	if RenderBarChart(nil, nil, 20, nil) != "" {
		t.Error("no values should render nothing")
	}
}

func TestRenderHourlyHeatmap(t *testing.T) {
	s := RenderHourlyHeatmap([]float64{1, 2})
	if !strings.HasPrefix(s, "00 ") || !strings.HasSuffix(s, " 23") {
		t.Errorf("unexpected heatmap %q", s)
	}
}

func TestHourlyValues(t *testing.T) {
	v := HourlyValues([]models.HourlyPattern{
		{Hour: 3, AvgRequests: 2.5},
		{Hour: 30, AvgRequests: 9},
	})
	if len(v) != 24 || v[3] != 2.5 {
		t.Errorf("unexpected values %v", v)
	}
}

func TestRenderSparkline(t *testing.T) {
	s := RenderSparkline([]float64{0, 1, 2, 4}, 10)
	if got := []rune(s); len(got) != 4 || got[0] != '▁' || got[3] != '█' {
		t.Errorf("unexpected sparkline %q", s)
	}
	if RenderSparkline(nil, 10) != "" {
		t.Error("empty input should render nothing")
	}
}

func TestRenderTrendSparkline(t *testing.T) {
	if s := RenderTrendSparkline([]float64{2, 1, 3}, 10); s == "" {
		t.Error("RenderTrendSparkline returned empty")
	}
	if RenderTrendSparkline(nil, 10) != "" {
		t.Error("empty input should render nothing")
	}
}

func TestLegends(t *testing.T) {
	s := Legend(LegendEntry{Label: "A", Color: lipgloss.Color("#ffffff")})
	if !strings.Contains(s, "A") {
		t.Error("Legend should include labels")
	}
	p := ProviderLegend()
	if !strings.Contains(p, "ElevenLabs") || !strings.Contains(p, "OpenAI") {
		t.Errorf("ProviderLegend = %q", p)
	}
}
