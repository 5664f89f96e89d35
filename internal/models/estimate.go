package models

// CostLine is the cost of one provider and mode combination.
type CostLine struct {
	Provider         Provider
	Mode             Mode
	Requests         float64
	CachedRequests   float64
	UncachedRequests float64
	APICalls         float64
	CharacterCost    float64
	APICallCost      float64
	CachedCost       float64
}

// UncachedCost is what the provider bills for requests that missed the cache.
func (l CostLine) UncachedCost() float64 {
	return l.CharacterCost + l.APICallCost
}

// Total returns the full monthly cost of the line.
func (l CostLine) Total() float64 {
	return l.UncachedCost() + l.CachedCost
}

// CostEstimate is a projected monthly cost for a usage profile and user count.
type CostEstimate struct {
	ByProvider map[Provider]float64
	ByMode     map[Mode]float64
	Currency   string
	Lines      []CostLine

	MonthlyUsers    int
	MonthlyRequests float64
	APICalls        float64

	TotalMonthly  float64
	Cached        float64
	Uncached      float64
	CharacterCost float64
	APICallCost   float64
}

// AddLine folds a line into every bucket so the provider, mode and
// cached/uncached splits all sum to the same total.
func (e *CostEstimate) AddLine(l CostLine) {
	if e.ByProvider == nil {
		e.ByProvider = make(map[Provider]float64)
	}
	if e.ByMode == nil {
		e.ByMode = make(map[Mode]float64)
	}

	e.Lines = append(e.Lines, l)
	total := l.Total()
	e.ByProvider[l.Provider] += total
	e.ByMode[l.Mode] += total
	e.MonthlyRequests += l.Requests
	e.APICalls += l.APICalls
	e.Cached += l.CachedCost
	e.Uncached += l.UncachedCost()
	e.CharacterCost += l.CharacterCost
	e.APICallCost += l.APICallCost
	e.TotalMonthly += total
}

// CostPerUser returns the monthly cost divided by the user count.
func (e CostEstimate) CostPerUser() float64 {
	if e.MonthlyUsers <= 0 {
		return 0
	}
	return e.TotalMonthly / float64(e.MonthlyUsers)
}

// ProviderShare returns the provider's share of the total in percent.
func (e CostEstimate) ProviderShare(p Provider) float64 {
	if e.TotalMonthly <= 0 {
		return 0
	}
	return e.ByProvider[p] / e.TotalMonthly * 100
}

// ModeShare returns the mode's share of the total in percent.
func (e CostEstimate) ModeShare(m Mode) float64 {
	if e.TotalMonthly <= 0 {
		return 0
	}
	return e.ByMode[m] / e.TotalMonthly * 100
}

// Line returns the cost line for a provider and mode.
func (e CostEstimate) Line(p Provider, m Mode) (CostLine, bool) {
	for _, l := range e.Lines {
		if l.Provider == p && l.Mode == m {
			return l, true
		}
	}
	return CostLine{}, false
}

// ScenarioName identifies one of the comparison scenarios.
type ScenarioName string

const (
	// ScenarioBaseline applies neither caching nor batching.
	ScenarioBaseline ScenarioName = "baseline"
	// ScenarioWithCaching applies only the cache-hit rate.
	ScenarioWithCaching ScenarioName = "with-caching"
	// ScenarioWithBatching applies only the batching rate.
	ScenarioWithBatching ScenarioName = "with-batching"
	// ScenarioOptimized applies both.
	ScenarioOptimized ScenarioName = "with-all-optimizations"
)

// Label returns the display label of a scenario.
func (s ScenarioName) Label() string {
	switch s {
	case ScenarioBaseline:
		return "Baseline"
	case ScenarioWithCaching:
		return "With caching"
	case ScenarioWithBatching:
		return "With batching"
	case ScenarioOptimized:
		return "All optimizations"
	default:
		return string(s)
	}
}

// Scenario is one column of the optimization comparison.
type Scenario struct {
	Name           ScenarioName
	Estimate       CostEstimate
	Savings        float64 // vs baseline
	SavingsPercent float64
}
