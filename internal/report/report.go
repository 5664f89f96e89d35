// Package report renders cost estimates for the command line.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/j-veylop/speechcost-tui/internal/models"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Format is an output rendering.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Report is everything a single CLI invocation prints.
type Report struct {
	GeneratedAt time.Time
	Window      models.TimeRange
	Profile     models.UsageProfile
	Estimate    *models.CostEstimate
	Scenarios   []models.Scenario
	Budget      *models.BudgetProjection
	Warnings    []string
}

// Render writes r to w in the requested format.
func Render(w io.Writer, f Format, r *Report) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatMarkdown:
		return WriteMarkdown(w, r)
	case FormatTable, "":
		return WriteTable(w, r)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// Money rounds a dollar amount to cents.
func Money(v float64) decimal.Decimal {
	return dec(v).Round(2)
}

// dec converts v, mapping NaN and infinities to zero.
func dec(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// FormatMoney renders v as dollars and cents.
func FormatMoney(v float64) string {
	return "$" + Money(v).StringFixed(2)
}

// FormatPercent renders v, already in percent, with one decimal.
func FormatPercent(v float64) string {
	return dec(v).StringFixed(1) + "%"
}

// FormatCount renders v rounded to a whole number.
func FormatCount(v float64) string {
	return dec(v).Round(0).String()
}

func profileRows(p models.UsageProfile, window models.TimeRange) [][]string {
	rows := [][]string{
		{"Window", window.String()},
		{"Sample size", fmt.Sprintf("%d requests", p.SampleSize)},
		{"Avg text length", dec(p.AvgTextLengthChars).StringFixed(0) + " chars"},
		{"Requests per user/month", dec(p.MonthlyRequestsPerUser()).StringFixed(1)},
		{"Cache hit rate", FormatPercent(p.CacheHitRate * 100)},
		{"Batching rate", FormatPercent(p.BatchingRate * 100)},
		{"Streaming rate", FormatPercent(p.StreamingRate * 100)},
	}
	for _, prov := range p.DistributionProviders() {
		rows = append(rows, []string{prov.DisplayName() + " share", FormatPercent(p.ProviderDistribution[prov] * 100)})
	}
	return rows
}

func estimateRows(e *models.CostEstimate) [][]string {
	rows := [][]string{
		{"Monthly users", fmt.Sprintf("%d", e.MonthlyUsers)},
		{"Monthly requests", FormatCount(e.MonthlyRequests)},
		{"API calls", FormatCount(e.APICalls)},
		{"Total / month", FormatMoney(e.TotalMonthly)},
		{"Per user", FormatMoney(e.CostPerUser())},
		{"Uncached", FormatMoney(e.Uncached)},
		{"Cached", FormatMoney(e.Cached)},
		{"Characters", FormatMoney(e.CharacterCost)},
		{"Request fees", FormatMoney(e.APICallCost)},
	}
	for _, p := range models.Providers() {
		rows = append(rows, []string{p.DisplayName(), fmt.Sprintf("%s (%s)", FormatMoney(e.ByProvider[p]), FormatPercent(e.ProviderShare(p)))})
	}
	for _, m := range models.Modes() {
		rows = append(rows, []string{m.DisplayName(), fmt.Sprintf("%s (%s)", FormatMoney(e.ByMode[m]), FormatPercent(e.ModeShare(m)))})
	}
	return rows
}

func scenarioRows(scenarios []models.Scenario) [][]string {
	rows := make([][]string, 0, len(scenarios))
	for _, s := range scenarios {
		rows = append(rows, []string{
			s.Name.Label(),
			FormatMoney(s.Estimate.TotalMonthly),
			FormatMoney(s.Estimate.CostPerUser()),
			FormatMoney(s.Savings),
			FormatPercent(s.SavingsPercent),
		})
	}
	return rows
}

func budgetRows(b *models.BudgetProjection) [][]string {
	rows := [][]string{
		{"Budget", FormatMoney(b.Budget)},
		{"Used", FormatPercent(b.UsedPercent)},
		{"Status", string(b.Status)},
		{"Daily burn", FormatMoney(b.DailyBurn)},
	}
	if !math.IsInf(b.RunwayDays, 0) {
		rows = append(rows, []string{"Runway", dec(b.RunwayDays).StringFixed(0) + " days"})
	}
	if b.MaxUsers > 0 {
		rows = append(rows, []string{"Users covered", fmt.Sprintf("%d", b.MaxUsers)})
	}
	return append(rows,
		[]string{"Confidence", b.Confidence},
		[]string{"Vs previous", b.VsPrevious},
	)
}

// hasBudget reports whether r carries a projection against a real budget.
func (r *Report) hasBudget() bool {
	return r.Budget != nil && r.Budget.Budget > 0
}

var scenarioHeader = []string{"Scenario", "Monthly", "Per user", "Savings", "Savings %"}

// WriteTable renders bordered ASCII tables.
func WriteTable(w io.Writer, r *Report) error {
	table := func(header []string, rows [][]string) {
		t := tablewriter.NewWriter(w)
		t.SetHeader(header)
		t.SetAutoFormatHeaders(false)
		t.AppendBulk(rows)
		t.Render()
	}

	table([]string{"Profile", ""}, profileRows(r.Profile, r.Window))
	if r.Estimate != nil {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		table([]string{"Estimate", r.Estimate.Currency}, estimateRows(r.Estimate))
	}
	if r.hasBudget() {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		table([]string{"Budget", ""}, budgetRows(r.Budget))
	}
	if len(r.Scenarios) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		table(scenarioHeader, scenarioRows(r.Scenarios))
	}
	for _, warn := range r.Warnings {
		if _, err := fmt.Fprintf(w, "warning: %s\n", warn); err != nil {
			return err
		}
	}
	return nil
}

// WriteMarkdown renders GitHub flavored markdown tables.
func WriteMarkdown(w io.Writer, r *Report) error {
	var b strings.Builder

	section := func(title string, header []string, rows [][]string) {
		fmt.Fprintf(&b, "## %s\n\n", title)
		fmt.Fprintf(&b, "| %s |\n", strings.Join(header, " | "))
		fmt.Fprintf(&b, "|%s\n", strings.Repeat("---|", len(header)))
		for _, row := range rows {
			fmt.Fprintf(&b, "| %s |\n", strings.Join(row, " | "))
		}
		b.WriteString("\n")
	}

	b.WriteString("# Speech Synthesis Cost Estimate\n\n")
	section("Usage profile", []string{"Metric", "Value"}, profileRows(r.Profile, r.Window))
	if r.Estimate != nil {
		section("Monthly estimate", []string{"Metric", "Value"}, estimateRows(r.Estimate))
	}
	if r.hasBudget() {
		section("Budget", []string{"Metric", "Value"}, budgetRows(r.Budget))
	}
	if len(r.Scenarios) > 0 {
		section("Scenarios", scenarioHeader, scenarioRows(r.Scenarios))
	}
	if len(r.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, warn := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", warn)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

type jsonLine struct {
	Provider         models.Provider `json:"provider"`
	Mode             models.Mode     `json:"mode"`
	Requests         decimal.Decimal `json:"requests"`
	CachedRequests   decimal.Decimal `json:"cached_requests"`
	UncachedRequests decimal.Decimal `json:"uncached_requests"`
	APICalls         decimal.Decimal `json:"api_calls"`
	Total            decimal.Decimal `json:"total"`
}

type jsonEstimate struct {
	ByProvider      map[models.Provider]decimal.Decimal `json:"by_provider"`
	ByMode          map[models.Mode]decimal.Decimal     `json:"by_mode"`
	Currency        string                              `json:"currency"`
	Lines           []jsonLine                          `json:"lines"`
	MonthlyUsers    int                                 `json:"monthly_users"`
	MonthlyRequests decimal.Decimal                     `json:"monthly_requests"`
	TotalMonthly    decimal.Decimal                     `json:"total_monthly"`
	CostPerUser     decimal.Decimal                     `json:"cost_per_user"`
	Cached          decimal.Decimal                     `json:"cached"`
	Uncached        decimal.Decimal                     `json:"uncached"`
	CharacterCost   decimal.Decimal                     `json:"character_cost"`
	APICallCost     decimal.Decimal                     `json:"api_call_cost"`
}

type jsonScenario struct {
	Name           models.ScenarioName `json:"name"`
	Estimate       jsonEstimate        `json:"estimate"`
	Savings        decimal.Decimal     `json:"savings"`
	SavingsPercent decimal.Decimal     `json:"savings_percent"`
}

type jsonProfile struct {
	ProviderDistribution map[models.Provider]float64 `json:"provider_distribution"`
	AvgTextLengthChars   float64                     `json:"avg_text_length_chars"`
	RequestsPerSession   float64                     `json:"requests_per_session"`
	SessionsPerUser      float64                     `json:"sessions_per_user"`
	CacheHitRate         float64                     `json:"cache_hit_rate"`
	BatchingRate         float64                     `json:"batching_rate"`
	StreamingRate        float64                     `json:"streaming_rate"`
	SampleSize           int                         `json:"sample_size"`
}

type jsonBudget struct {
	Budget      decimal.Decimal     `json:"budget"`
	UsedPercent decimal.Decimal     `json:"used_percent"`
	DailyBurn   decimal.Decimal     `json:"daily_burn"`
	RunwayDays  *decimal.Decimal    `json:"runway_days,omitempty"`
	MaxUsers    int                 `json:"max_users"`
	Status      models.BudgetStatus `json:"status"`
	Confidence  string              `json:"confidence"`
	VsPrevious  string              `json:"vs_previous"`
}

type jsonReport struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Window      string         `json:"window"`
	Profile     jsonProfile    `json:"profile"`
	Estimate    *jsonEstimate  `json:"estimate,omitempty"`
	Scenarios   []jsonScenario `json:"scenarios,omitempty"`
	Budget      *jsonBudget    `json:"budget,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`
}

func toJSONEstimate(e *models.CostEstimate) jsonEstimate {
	out := jsonEstimate{
		ByProvider:      make(map[models.Provider]decimal.Decimal, len(e.ByProvider)),
		ByMode:          make(map[models.Mode]decimal.Decimal, len(e.ByMode)),
		Currency:        e.Currency,
		Lines:           make([]jsonLine, 0, len(e.Lines)),
		MonthlyUsers:    e.MonthlyUsers,
		MonthlyRequests: dec(e.MonthlyRequests).Round(0),
		TotalMonthly:    Money(e.TotalMonthly),
		CostPerUser:     dec(e.CostPerUser()).Round(4),
		Cached:          Money(e.Cached),
		Uncached:        Money(e.Uncached),
		CharacterCost:   Money(e.CharacterCost),
		APICallCost:     Money(e.APICallCost),
	}
	for p, v := range e.ByProvider {
		out.ByProvider[p] = Money(v)
	}
	for m, v := range e.ByMode {
		out.ByMode[m] = Money(v)
	}
	for _, l := range e.Lines {
		out.Lines = append(out.Lines, jsonLine{
			Provider:         l.Provider,
			Mode:             l.Mode,
			Requests:         dec(l.Requests).Round(0),
			CachedRequests:   dec(l.CachedRequests).Round(0),
			UncachedRequests: dec(l.UncachedRequests).Round(0),
			APICalls:         dec(l.APICalls).Round(0),
			Total:            Money(l.Total()),
		})
	}
	return out
}

// WriteJSON renders an indented JSON document. Amounts are decimal strings
// rounded to cents.
func WriteJSON(w io.Writer, r *Report) error {
	p := r.Profile
	out := jsonReport{
		GeneratedAt: r.GeneratedAt,
		Window:      r.Window.Flag(),
		Profile: jsonProfile{
			ProviderDistribution: p.ProviderDistribution,
			AvgTextLengthChars:   p.AvgTextLengthChars,
			RequestsPerSession:   p.RequestsPerSession,
			SessionsPerUser:      p.SessionsPerUser,
			CacheHitRate:         p.CacheHitRate,
			BatchingRate:         p.BatchingRate,
			StreamingRate:        p.StreamingRate,
			SampleSize:           p.SampleSize,
		},
		Warnings: r.Warnings,
	}
	if r.Estimate != nil {
		e := toJSONEstimate(r.Estimate)
		out.Estimate = &e
	}
	if r.hasBudget() {
		b := r.Budget
		out.Budget = &jsonBudget{
			Budget:      Money(b.Budget),
			UsedPercent: dec(b.UsedPercent).Round(1),
			DailyBurn:   Money(b.DailyBurn),
			MaxUsers:    b.MaxUsers,
			Status:      b.Status,
			Confidence:  b.Confidence,
			VsPrevious:  b.VsPrevious,
		}
		if !math.IsInf(b.RunwayDays, 0) {
			runway := dec(b.RunwayDays).Round(1)
			out.Budget.RunwayDays = &runway
		}
	}
	for _, s := range r.Scenarios {
		out.Scenarios = append(out.Scenarios, jsonScenario{
			Name:           s.Name,
			Estimate:       toJSONEstimate(&s.Estimate),
			Savings:        Money(s.Savings),
			SavingsPercent: dec(s.SavingsPercent).Round(1),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
