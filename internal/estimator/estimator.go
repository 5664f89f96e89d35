// Package estimator projects monthly speech synthesis spend from a usage
// profile and a pricing table.
package estimator

import (
	"fmt"
	"math"

	"github.com/j-veylop/speechcost-tui/internal/models"
	"github.com/j-veylop/speechcost-tui/internal/pricing"
)

// Warning flags a profile value outside its expected range. Estimates are
// still computed from the raw value.
type Warning struct {
	Field   string
	Message string
}

func (w Warning) String() string {
	return w.Field + ": " + w.Message
}

// Estimate computes the monthly cost of serving users with the given profile.
// It is a pure function of its inputs.
func Estimate(profile models.UsageProfile, users int, table *pricing.Table) models.CostEstimate {
	est := models.CostEstimate{
		ByProvider:   make(map[models.Provider]float64),
		ByMode:       make(map[models.Mode]float64),
		Currency:     table.Currency,
		MonthlyUsers: users,
	}
	for _, m := range models.Modes() {
		est.ByMode[m] = 0
	}
	for _, p := range models.Providers() {
		est.ByProvider[p] = 0
	}

	if users <= 0 {
		return est
	}

	monthly := float64(users) * profile.MonthlyRequestsPerUser()
	batch := float64(table.EffectiveBatchSize())
	c := profile.CacheHitRate
	b := profile.BatchingRate

	for _, p := range profile.DistributionProviders() {
		share := profile.ProviderDistribution[p]
		for _, m := range models.Modes() {
			req := monthly * share * modeWeight(profile, m)
			rate, _ := table.Rate(p, m)

			line := models.CostLine{
				Provider:         p,
				Mode:             m,
				Requests:         req,
				CachedRequests:   req * c,
				UncachedRequests: req * (1 - c),
			}
			callsPerRequest := (1 - b) + b/batch
			charCost := profile.AvgTextLengthChars / 1000 * rate.PerThousandChars

			line.APICalls = line.UncachedRequests * callsPerRequest
			line.CharacterCost = line.UncachedRequests * charCost
			line.APICallCost = line.APICalls * rate.PerRequest

			// A cache hit never costs more than synthesizing the clip.
			synth := charCost + callsPerRequest*rate.PerRequest
			line.CachedCost = line.CachedRequests * math.Min(table.CacheServePerRequest, synth)

			est.AddLine(line)
		}
	}

	return est
}

func modeWeight(p models.UsageProfile, m models.Mode) float64 {
	if m == models.ModeStreaming {
		return p.StreamingRate
	}
	return 1 - p.StreamingRate
}

// Compare evaluates the four optimization scenarios for the same profile.
// Baseline disables caching and batching; the others re-enable the
// observed rates one at a time and then together.
func Compare(profile models.UsageProfile, users int, table *pricing.Table) []models.Scenario {
	variants := []struct {
		name    models.ScenarioName
		caching bool
		batch   bool
	}{
		{models.ScenarioBaseline, false, false},
		{models.ScenarioWithCaching, true, false},
		{models.ScenarioWithBatching, false, true},
		{models.ScenarioOptimized, true, true},
	}

	out := make([]models.Scenario, 0, len(variants))
	var baseline float64
	for i, v := range variants {
		p := profile.Clone()
		if !v.caching {
			p.CacheHitRate = 0
		}
		if !v.batch {
			p.BatchingRate = 0
		}

		s := models.Scenario{Name: v.name, Estimate: Estimate(p, users, table)}
		if i == 0 {
			baseline = s.Estimate.TotalMonthly
		}
		s.Savings = baseline - s.Estimate.TotalMonthly
		if baseline > 0 {
			s.SavingsPercent = s.Savings / baseline * 100
		}
		out = append(out, s)
	}
	return out
}

// ValidateProfile reports values the estimator accepts but that fall outside
// their natural range.
func ValidateProfile(p models.UsageProfile, table *pricing.Table) []Warning {
	var warns []Warning

	rate := func(field string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			warns = append(warns, Warning{field, "is not a finite number"})
		} else if v < 0 || v > 1 {
			warns = append(warns, Warning{field, fmt.Sprintf("%.3f is outside [0, 1]", v)})
		}
	}
	rate("cache_hit_rate", p.CacheHitRate)
	rate("batching_rate", p.BatchingRate)
	rate("streaming_rate", p.StreamingRate)

	if p.AvgTextLengthChars < 0 {
		warns = append(warns, Warning{"avg_text_length_chars", "is negative"})
	}

	var sum float64
	for _, prov := range p.DistributionProviders() {
		share := p.ProviderDistribution[prov]
		sum += share
		if share < 0 {
			warns = append(warns, Warning{"provider_distribution", fmt.Sprintf("%s share is negative", prov)})
		}
		if table != nil && !table.HasProvider(prov) {
			warns = append(warns, Warning{"provider_distribution", fmt.Sprintf("%s has no pricing and is costed at zero", prov)})
		}
	}
	if len(p.ProviderDistribution) == 0 {
		warns = append(warns, Warning{"provider_distribution", "is empty"})
	} else if math.Abs(sum-1) > 0.01 {
		warns = append(warns, Warning{"provider_distribution", fmt.Sprintf("shares sum to %.3f, not 1", sum)})
	}

	return warns
}
