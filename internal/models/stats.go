package models

import "time"

// TotalStats represents overall aggregated request statistics.
type TotalStats struct {
	FirstRequest      time.Time
	LastRequest       time.Time
	TotalRequests     int
	TotalCharacters   int64
	CacheHits         int
	BatchedRequests   int
	StreamingRequests int
	ErrorCount        int
	UniqueUsers       int
	UniqueSessions    int
	AvgDurationMs     float64
}

// CacheHitRate returns the fraction of requests served from cache.
func (s *TotalStats) CacheHitRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(s.TotalRequests)
}

// ErrorRate returns the fraction of failed requests.
func (s *TotalStats) ErrorRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.ErrorCount) / float64(s.TotalRequests)
}

// ProviderStats aggregates requests for a single provider.
type ProviderStats struct {
	Provider      Provider
	Requests      int
	Characters    int64
	CacheHits     int
	ErrorCount    int
	AvgDurationMs float64
	SharePercent  float64
}
