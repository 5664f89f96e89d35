package report

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/speechcost-tui/internal/estimator"
	"github.com/j-veylop/speechcost-tui/internal/models"
	"github.com/j-veylop/speechcost-tui/internal/pricing"
)

func sampleReport() *Report {
	profile := models.UsageProfile{
		AvgTextLengthChars: 120,
		CacheHitRate:       0.4,
		BatchingRate:       0.3,
		SampleSize:         250,
		ProviderDistribution: map[models.Provider]float64{
			models.ProviderElevenLabs: 0.9,
			models.ProviderOpenAI:     0.1,
		},
	}
	tbl := pricing.Default()
	est := estimator.Estimate(profile, 1000, tbl)
	return &Report{
		GeneratedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Window:      models.TimeRange7Days,
		Profile:     profile,
		Estimate:    &est,
		Scenarios:   estimator.Compare(profile, 1000, tbl),
		Warnings:    []string{"batching_rate: looks odd"},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"md", FormatMarkdown, false},
		{"markdown", FormatMarkdown, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "12.35", Money(12.345).StringFixed(2))
	assert.Equal(t, "0.00", Money(math.NaN()).StringFixed(2))
	assert.Equal(t, "0.00", Money(math.Inf(1)).StringFixed(2))
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatTable, sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "Cache hit rate")
	assert.Contains(t, out, "40.0%")
	assert.Contains(t, out, "Total / month")
	assert.Contains(t, out, "All optimizations")
	assert.Contains(t, out, "warning: batching_rate: looks odd")
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatMarkdown, sampleReport()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# Speech Synthesis Cost Estimate"))
	assert.Contains(t, out, "## Scenarios")
	assert.Contains(t, out, "| Scenario | Monthly | Per user | Savings | Savings % |")
	assert.Contains(t, out, "- batching_rate: looks odd")
}

func TestWriteJSON(t *testing.T) {
	r := sampleReport()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatJSON, r))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "7d", decoded["window"])
	est, ok := decoded["estimate"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, Money(r.Estimate.TotalMonthly).String(), est["total_monthly"])
	assert.Equal(t, float64(1000), est["monthly_users"])

	scenarios, ok := decoded["scenarios"].([]any)
	require.True(t, ok)
	assert.Len(t, scenarios, 4)
}

func TestWriteJSON_EstimateOnly(t *testing.T) {
	r := sampleReport()
	r.Scenarios = nil
	r.Warnings = nil

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, r))
	assert.NotContains(t, buf.String(), "scenarios")
	assert.NotContains(t, buf.String(), "warnings")
}

func TestRender_UnknownFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, Format("xml"), sampleReport())
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestBudgetSection(t *testing.T) {
	r := sampleReport()
	r.Budget = &models.BudgetProjection{
		Budget:      500,
		UsedPercent: 84,
		DailyBurn:   14,
		RunwayDays:  35.7,
		MaxUsers:    1190,
		Status:      models.BudgetWarning,
		Confidence:  "medium",
		VsPrevious:  "No prior data",
	}

	var table bytes.Buffer
	require.NoError(t, WriteTable(&table, r))
	assert.Contains(t, table.String(), "WARNING")
	assert.Contains(t, table.String(), "36 days")

	var md bytes.Buffer
	require.NoError(t, WriteMarkdown(&md, r))
	assert.Contains(t, md.String(), "## Budget")
	assert.Contains(t, md.String(), "| Users covered | 1190 |")

	var js bytes.Buffer
	require.NoError(t, WriteJSON(&js, r))
	var decoded struct {
		Budget struct {
			Status     string `json:"status"`
			RunwayDays string `json:"runway_days"`
			MaxUsers   int    `json:"max_users"`
		} `json:"budget"`
	}
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, "WARNING", decoded.Budget.Status)
	assert.Equal(t, "35.7", decoded.Budget.RunwayDays)
	assert.Equal(t, 1190, decoded.Budget.MaxUsers)
}

func TestBudgetSection_NoBudget(t *testing.T) {
	r := sampleReport()
	r.Budget = &models.BudgetProjection{Status: models.BudgetUnknown}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, r))
	assert.NotContains(t, buf.String(), `"budget"`)
}
