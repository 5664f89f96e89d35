package models

import (
	"maps"
	"slices"
	"time"
)

const (
	// DaysPerMonth is the month length used when scaling observed usage.
	DaysPerMonth = 30

	// DefaultSessionsPerUser applies when a profile carries no session frequency.
	DefaultSessionsPerUser = 30.0

	// DefaultRequestsPerSession applies when a profile carries no session depth.
	DefaultRequestsPerSession = 1.0
)

// UsageProfile summarizes recent request volume. It is derived from log rows
// on every refresh and never stored.
type UsageProfile struct {
	WindowStart time.Time
	WindowEnd   time.Time

	// ProviderDistribution maps each provider to its share of requests.
	ProviderDistribution map[Provider]float64

	AvgTextLengthChars float64
	RequestsPerSession float64
	SessionsPerUser    float64 // per month
	CacheHitRate       float64
	BatchingRate       float64
	StreamingRate      float64

	SampleSize     int
	UniqueUsers    int
	UniqueSessions int
}

// IsEmpty returns true if the profile was built from no requests.
func (p UsageProfile) IsEmpty() bool {
	return p.SampleSize == 0
}

// Clone returns a copy that does not share the distribution map.
func (p UsageProfile) Clone() UsageProfile {
	c := p
	if p.ProviderDistribution != nil {
		c.ProviderDistribution = maps.Clone(p.ProviderDistribution)
	}
	return c
}

// MonthlyRequestsPerUser returns requests per user per month. Zero or
// negative volume fields fall back to the package defaults.
func (p UsageProfile) MonthlyRequestsPerUser() float64 {
	rps := p.RequestsPerSession
	if rps <= 0 {
		rps = DefaultRequestsPerSession
	}
	spu := p.SessionsPerUser
	if spu <= 0 {
		spu = DefaultSessionsPerUser
	}
	return rps * spu
}

// DistributionProviders returns the providers present in the distribution in
// a stable order: known providers first, then the rest alphabetically.
func (p UsageProfile) DistributionProviders() []Provider {
	var out []Provider
	seen := make(map[Provider]bool, len(p.ProviderDistribution))
	for _, known := range Providers() {
		if _, ok := p.ProviderDistribution[known]; ok {
			out = append(out, known)
			seen[known] = true
		}
	}

	var extra []Provider
	for k := range p.ProviderDistribution {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)

	return append(out, extra...)
}

// ProfileAggregates holds the raw counts a UsageProfile is built from.
type ProfileAggregates struct {
	FirstRequest   time.Time
	LastRequest    time.Time
	ProviderCounts map[Provider]int
	TotalChars     int64
	Requests       int
	CacheHits      int
	Batched        int
	Streaming      int
	UniqueSessions int
	UniqueUsers    int
}
