package estimator

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/speechcost-tui/internal/models"
	"github.com/j-veylop/speechcost-tui/internal/pricing"
)

const delta = 1e-9

func exampleProfile() models.UsageProfile {
	return models.UsageProfile{
		AvgTextLengthChars: 120,
		CacheHitRate:       0.4,
		BatchingRate:       0.3,
		ProviderDistribution: map[models.Provider]float64{
			models.ProviderElevenLabs: 0.9,
			models.ProviderOpenAI:     0.1,
		},
	}
}

func randomProfile(r *rand.Rand) models.UsageProfile {
	el := r.Float64()
	return models.UsageProfile{
		AvgTextLengthChars: r.Float64() * 2000,
		RequestsPerSession: r.Float64() * 20,
		SessionsPerUser:    r.Float64() * 60,
		CacheHitRate:       r.Float64(),
		BatchingRate:       r.Float64(),
		StreamingRate:      r.Float64(),
		ProviderDistribution: map[models.Provider]float64{
			models.ProviderElevenLabs: el,
			models.ProviderOpenAI:     1 - el,
		},
	}
}

func sumMap[K comparable](m map[K]float64) float64 {
	var s float64
	for _, v := range m {
		s += v
	}
	return s
}

func TestEstimate_ExampleCheaperThanUnoptimized(t *testing.T) {
	tbl := pricing.Default()
	optimized := Estimate(exampleProfile(), 1000, tbl)

	plain := exampleProfile()
	plain.CacheHitRate = 0
	plain.BatchingRate = 0
	unoptimized := Estimate(plain, 1000, tbl)

	require.Positive(t, unoptimized.TotalMonthly)
	assert.Less(t, optimized.TotalMonthly, unoptimized.TotalMonthly)
}

func TestEstimate_NonNegativeAndFinite(t *testing.T) {
	tbl := pricing.Default()
	r := rand.New(rand.NewPCG(1, 2))
	for range 500 {
		p := randomProfile(r)
		users := r.IntN(100000)
		est := Estimate(p, users, tbl)

		assert.False(t, math.IsNaN(est.TotalMonthly) || math.IsInf(est.TotalMonthly, 0), "total not finite for %+v", p)
		assert.GreaterOrEqual(t, est.TotalMonthly, 0.0)
	}
}

func TestEstimate_BreakdownsSumToTotal(t *testing.T) {
	tbl := pricing.Default()
	r := rand.New(rand.NewPCG(3, 4))
	for range 200 {
		est := Estimate(randomProfile(r), 1+r.IntN(50000), tbl)
		tol := math.Max(delta, est.TotalMonthly*1e-9)

		assert.InDelta(t, est.TotalMonthly, sumMap(est.ByProvider), tol)
		assert.InDelta(t, est.TotalMonthly, sumMap(est.ByMode), tol)
		assert.InDelta(t, est.TotalMonthly, est.Cached+est.Uncached, tol)
		assert.InDelta(t, est.Uncached, est.CharacterCost+est.APICallCost, tol)

		var lines float64
		for _, l := range est.Lines {
			lines += l.Total()
		}
		assert.InDelta(t, est.TotalMonthly, lines, tol)
	}
}

func TestEstimate_CachingNeverRaisesTotal(t *testing.T) {
	tbl := pricing.Default()
	r := rand.New(rand.NewPCG(5, 6))
	for range 300 {
		p := randomProfile(r)
		lo, hi := r.Float64(), r.Float64()
		if lo > hi {
			lo, hi = hi, lo
		}
		p.CacheHitRate = lo
		low := Estimate(p, 1000, tbl)
		p.CacheHitRate = hi
		high := Estimate(p, 1000, tbl)

		assert.LessOrEqual(t, high.TotalMonthly, low.TotalMonthly*(1+1e-12)+delta)
	}
}

func TestEstimate_CachingNeverRaisesTotal_CheapCalls(t *testing.T) {
	// Batched call fees below the cache-serve fee must not make hits dearer.
	tbl := pricing.Default()
	tbl.CacheServePerRequest = 1
	p := exampleProfile()
	p.AvgTextLengthChars = 0
	p.BatchingRate = 1

	prev := math.Inf(1)
	for _, c := range []float64{0, 0.25, 0.5, 0.75, 1} {
		p.CacheHitRate = c
		total := Estimate(p, 1000, tbl).TotalMonthly
		assert.LessOrEqual(t, total, prev+delta)
		prev = total
	}
}

func TestEstimate_BatchingNeverRaisesCallCost(t *testing.T) {
	tbl := pricing.Default()
	r := rand.New(rand.NewPCG(7, 8))
	for range 300 {
		p := randomProfile(r)
		lo, hi := r.Float64(), r.Float64()
		if lo > hi {
			lo, hi = hi, lo
		}
		p.BatchingRate = lo
		low := Estimate(p, 1000, tbl)
		p.BatchingRate = hi
		high := Estimate(p, 1000, tbl)

		assert.LessOrEqual(t, high.APICallCost, low.APICallCost*(1+1e-12)+delta)
		assert.LessOrEqual(t, high.APICalls, low.APICalls*(1+1e-12)+delta)
		assert.LessOrEqual(t, high.TotalMonthly, low.TotalMonthly*(1+1e-12)+delta)
		assert.InDelta(t, low.CharacterCost, high.CharacterCost, math.Max(delta, low.CharacterCost*1e-9))
	}
}

func TestEstimate_ZeroUsers(t *testing.T) {
	est := Estimate(exampleProfile(), 0, pricing.Default())

	assert.Zero(t, est.TotalMonthly)
	assert.Zero(t, est.Cached)
	assert.Zero(t, est.Uncached)
	assert.Zero(t, est.CharacterCost)
	assert.Zero(t, est.APICallCost)
	assert.Zero(t, est.MonthlyRequests)
	for _, p := range models.Providers() {
		v, ok := est.ByProvider[p]
		assert.True(t, ok)
		assert.Zero(t, v)
	}
	for _, m := range models.Modes() {
		v, ok := est.ByMode[m]
		assert.True(t, ok)
		assert.Zero(t, v)
	}
}

func TestEstimate_Idempotent(t *testing.T) {
	tbl := pricing.Default()
	p := exampleProfile()
	p.StreamingRate = 0.35
	p.ProviderDistribution["azure"] = 0.05

	first := Estimate(p, 4321, tbl)
	for range 10 {
		assert.Equal(t, first, Estimate(p, 4321, tbl))
	}
}

func TestEstimate_DoesNotMutateProfile(t *testing.T) {
	p := exampleProfile()
	before := p.Clone()
	Estimate(p, 1000, pricing.Default())
	Compare(p, 1000, pricing.Default())
	assert.Equal(t, before, p)
}

func TestEstimate_UnknownProviderCostsNothing(t *testing.T) {
	p := exampleProfile()
	p.ProviderDistribution = map[models.Provider]float64{"azure": 1}
	est := Estimate(p, 1000, pricing.Default())

	assert.Zero(t, est.TotalMonthly)
	assert.Positive(t, est.MonthlyRequests)
}

func TestEstimate_HandComputed(t *testing.T) {
	tbl := &pricing.Table{
		Currency:             "USD",
		BatchSize:            4,
		CacheServePerRequest: 0.001,
		Rates: map[models.Provider]map[models.Mode]pricing.Rate{
			models.ProviderOpenAI: {
				models.ModeStandard: {PerThousandChars: 0.02, PerRequest: 0.01},
			},
		},
	}
	p := models.UsageProfile{
		AvgTextLengthChars:   500,
		RequestsPerSession:   2,
		SessionsPerUser:      5,
		CacheHitRate:         0.5,
		BatchingRate:         0.5,
		ProviderDistribution: map[models.Provider]float64{models.ProviderOpenAI: 1},
	}

	est := Estimate(p, 10, tbl)

	// 10 users * 10 requests = 100; 50 cached, 50 uncached.
	// calls = 50 * (0.5 + 0.5/4) = 31.25
	assert.InDelta(t, 100, est.MonthlyRequests, delta)
	assert.InDelta(t, 31.25, est.APICalls, delta)
	assert.InDelta(t, 50*0.5*0.02, est.CharacterCost, delta)
	assert.InDelta(t, 31.25*0.01, est.APICallCost, delta)
	assert.InDelta(t, 50*0.001, est.Cached, delta)
	assert.InDelta(t, 0.5+0.3125+0.05, est.TotalMonthly, delta)
	assert.InDelta(t, 0.08625, est.CostPerUser(), delta)
}

func TestCompare(t *testing.T) {
	scenarios := Compare(exampleProfile(), 1000, pricing.Default())
	require.Len(t, scenarios, 4)

	names := []models.ScenarioName{
		models.ScenarioBaseline,
		models.ScenarioWithCaching,
		models.ScenarioWithBatching,
		models.ScenarioOptimized,
	}
	for i, s := range scenarios {
		assert.Equal(t, names[i], s.Name)
	}

	base := scenarios[0]
	assert.Zero(t, base.Savings)
	assert.Zero(t, base.SavingsPercent)

	for _, s := range scenarios[1:] {
		assert.LessOrEqual(t, s.Estimate.TotalMonthly, base.Estimate.TotalMonthly)
		assert.InDelta(t, base.Estimate.TotalMonthly-s.Estimate.TotalMonthly, s.Savings, delta)
	}
	assert.Less(t, scenarios[3].Estimate.TotalMonthly, scenarios[1].Estimate.TotalMonthly)
	assert.Less(t, scenarios[3].Estimate.TotalMonthly, scenarios[2].Estimate.TotalMonthly)

	assert.Equal(t, Estimate(exampleProfile(), 1000, pricing.Default()), scenarios[3].Estimate)
}

func TestCompare_ZeroUsers(t *testing.T) {
	for _, s := range Compare(exampleProfile(), 0, pricing.Default()) {
		assert.Zero(t, s.Estimate.TotalMonthly)
		assert.Zero(t, s.SavingsPercent)
	}
}

func TestValidateProfile(t *testing.T) {
	tbl := pricing.Default()

	assert.Empty(t, ValidateProfile(exampleProfile(), tbl))

	tests := []struct {
		name  string
		mod   func(*models.UsageProfile)
		field string
	}{
		{"CacheAboveOne", func(p *models.UsageProfile) { p.CacheHitRate = 1.5 }, "cache_hit_rate"},
		{"NegativeBatching", func(p *models.UsageProfile) { p.BatchingRate = -0.1 }, "batching_rate"},
		{"NaNStreaming", func(p *models.UsageProfile) { p.StreamingRate = math.NaN() }, "streaming_rate"},
		{"NegativeLength", func(p *models.UsageProfile) { p.AvgTextLengthChars = -1 }, "avg_text_length_chars"},
		{"SharesOff", func(p *models.UsageProfile) { p.ProviderDistribution[models.ProviderOpenAI] = 0.5 }, "provider_distribution"},
		{"Unpriced", func(p *models.UsageProfile) {
			p.ProviderDistribution = map[models.Provider]float64{"azure": 1}
		}, "provider_distribution"},
		{"Empty", func(p *models.UsageProfile) { p.ProviderDistribution = nil }, "provider_distribution"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := exampleProfile()
			tt.mod(&p)
			warns := ValidateProfile(p, tbl)
			require.NotEmpty(t, warns)
			assert.Equal(t, tt.field, warns[0].Field)
			assert.Contains(t, warns[0].String(), tt.field)
		})
	}
}

func TestEstimate_UnclampedRates(t *testing.T) {
	// Out of range rates flow through unchanged.
	p := exampleProfile()
	p.CacheHitRate = 1.2
	est := Estimate(p, 100, pricing.Default())

	line, ok := est.Line(models.ProviderElevenLabs, models.ModeStandard)
	require.True(t, ok)
	assert.InDelta(t, line.Requests*1.2, line.CachedRequests, delta)
	assert.Negative(t, line.UncachedRequests)
}
