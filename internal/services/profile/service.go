// Package profile derives usage profiles from stored speech request logs.
package profile

import (
	"fmt"
	"math"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/j-veylop/speechcost-tui/internal/db"
	"github.com/j-veylop/speechcost-tui/internal/logger"
	"github.com/j-veylop/speechcost-tui/internal/models"
)

// Store is the subset of the database the service reads from.
type Store interface {
	GetProfileAggregates(days int) (*models.ProfileAggregates, error)
	GetProfileAggregatesBetween(start, end time.Time) (*models.ProfileAggregates, error)
}

var _ Store = (*db.DB)(nil)

// Service builds and memoizes usage profiles per time range.
type Service struct {
	mu    sync.RWMutex
	store Store
	cache *gocache.Cache
	now   func() time.Time

	builds int
}

// New creates a profile service. Profiles are memoized for ttl; a ttl of
// zero disables memoization.
func New(store Store, ttl time.Duration) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
	}
	if ttl > 0 {
		s.cache = gocache.New(ttl, 2*ttl)
	}
	return s
}

func cacheKey(tr models.TimeRange) string {
	return "profile:" + tr.Flag()
}

// Build returns the usage profile for a time range.
func (s *Service) Build(tr models.TimeRange) (models.UsageProfile, error) {
	key := cacheKey(tr)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if p, ok := v.(models.UsageProfile); ok {
				return p.Clone(), nil
			}
		}
	}

	agg, err := s.store.GetProfileAggregates(tr.Days())
	if err != nil {
		return models.UsageProfile{}, fmt.Errorf("failed to load profile aggregates: %w", err)
	}

	now := s.now()
	p := FromAggregates(agg, windowDays(agg, tr.Days(), now))
	p.WindowEnd = now
	if days := tr.Days(); days > 0 {
		p.WindowStart = now.AddDate(0, 0, -days)
	} else {
		p.WindowStart = agg.FirstRequest
	}

	s.mu.Lock()
	s.builds++
	s.mu.Unlock()

	if s.cache != nil {
		s.cache.Set(key, p.Clone(), gocache.DefaultExpiration)
	}
	logger.Debug("built usage profile", "window", tr.Flag(), "samples", p.SampleSize)
	return p, nil
}

// Invalidate drops every memoized profile.
func (s *Service) Invalidate() {
	if s.cache != nil {
		s.cache.Flush()
	}
}

// Builds returns how many profiles were computed from the database.
func (s *Service) Builds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.builds
}

// Previous returns the profile of the window immediately before tr.
// All-time ranges have no previous window.
func (s *Service) Previous(tr models.TimeRange) (models.UsageProfile, error) {
	days := tr.Days()
	if days <= 0 {
		return models.UsageProfile{}, nil
	}

	end := s.now().AddDate(0, 0, -days)
	start := end.AddDate(0, 0, -days)
	agg, err := s.store.GetProfileAggregatesBetween(start, end)
	if err != nil {
		return models.UsageProfile{}, fmt.Errorf("failed to load previous window: %w", err)
	}

	p := FromAggregates(agg, float64(days))
	p.WindowStart = start
	p.WindowEnd = end
	return p, nil
}

// windowDays is the observed span in days, capped at the window length and
// never below one.
func windowDays(agg *models.ProfileAggregates, days int, now time.Time) float64 {
	span := 1.0
	if !agg.FirstRequest.IsZero() {
		span = math.Ceil(now.Sub(agg.FirstRequest).Hours() / 24)
	}
	if days > 0 && span > float64(days) {
		span = float64(days)
	}
	return math.Max(span, 1)
}

// FromAggregates turns raw counts into a profile. observedDays scales
// session frequency to a 30-day month.
func FromAggregates(agg *models.ProfileAggregates, observedDays float64) models.UsageProfile {
	p := models.UsageProfile{
		ProviderDistribution: make(map[models.Provider]float64, len(agg.ProviderCounts)),
		SampleSize:           agg.Requests,
		UniqueUsers:          agg.UniqueUsers,
		UniqueSessions:       agg.UniqueSessions,
	}
	if agg.Requests == 0 {
		return p
	}

	n := float64(agg.Requests)
	p.AvgTextLengthChars = float64(agg.TotalChars) / n
	p.CacheHitRate = float64(agg.CacheHits) / n
	p.BatchingRate = float64(agg.Batched) / n
	p.StreamingRate = float64(agg.Streaming) / n
	for prov, count := range agg.ProviderCounts {
		p.ProviderDistribution[prov] = float64(count) / n
	}

	if agg.UniqueSessions > 0 {
		p.RequestsPerSession = n / float64(agg.UniqueSessions)
	}
	if agg.UniqueUsers > 0 && agg.UniqueSessions > 0 && observedDays > 0 {
		perUser := float64(agg.UniqueSessions) / float64(agg.UniqueUsers)
		p.SessionsPerUser = perUser * models.DaysPerMonth / observedDays
	}

	return p
}

// CompareWindows describes how the current profile differs from an earlier
// one, one line per metric that has a reference value.
func CompareWindows(current, previous models.UsageProfile) []string {
	if previous.IsEmpty() {
		return []string{"No prior data"}
	}
	return []string{
		formatComparison("Text length", current.AvgTextLengthChars, previous.AvgTextLengthChars),
		formatComparison("Cache hits", current.CacheHitRate, previous.CacheHitRate),
		formatComparison("Batching", current.BatchingRate, previous.BatchingRate),
		formatComparison("Requests/session", current.RequestsPerSession, previous.RequestsPerSession),
	}
}

func formatComparison(label string, current, reference float64) string {
	if reference <= 0 {
		return label + ": no prior data"
	}
	diff := ((current - reference) / reference) * 100
	if math.Abs(diff) < 10 {
		return label + ": similar to previous window"
	} else if diff > 0 {
		return fmt.Sprintf("%s: %.0f%% higher than previous window", label, diff)
	}
	return fmt.Sprintf("%s: %.0f%% lower than previous window", label, -diff)
}
