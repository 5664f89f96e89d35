package models

import (
	"fmt"
	"strings"
	"time"
)

// TimeRange is the observation window for profiles and history charts.
type TimeRange int

const (
	TimeRange24Hours TimeRange = iota
	TimeRange7Days
	TimeRange30Days
	TimeRangeAllTime // everything in the database
)

var timeRanges = [...]struct {
	label string
	flag  string
	days  int
}{
	TimeRange24Hours: {"24 Hours", "24h", 1},
	TimeRange7Days:   {"7 Days", "7d", 7},
	TimeRange30Days:  {"30 Days", "30d", 30},
	TimeRangeAllTime: {"All Time", "all", 0},
}

func (t TimeRange) valid() bool {
	return t >= 0 && int(t) < len(timeRanges)
}

func (t TimeRange) String() string {
	if !t.valid() {
		return "Unknown"
	}
	return timeRanges[t].label
}

// Flag returns the short form accepted by ParseTimeRange.
func (t TimeRange) Flag() string {
	if !t.valid() {
		return ""
	}
	return timeRanges[t].flag
}

// Days is the window length in days, 0 for All Time. Unknown values span 30.
func (t TimeRange) Days() int {
	if !t.valid() {
		return 30
	}
	return timeRanges[t].days
}

// Next cycles to the next time range, wrapping after All Time.
func (t TimeRange) Next() TimeRange {
	return (t + 1) % TimeRange(len(timeRanges))
}

// Prev is the inverse of Next.
func (t TimeRange) Prev() TimeRange {
	n := TimeRange(len(timeRanges))
	return (t + n - 1) % n
}

// ParseTimeRange parses "24h", "7d", "30d" or "all".
func ParseTimeRange(s string) (TimeRange, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "24h", "1d", "day":
		return TimeRange24Hours, nil
	case "7d", "week":
		return TimeRange7Days, nil
	case "30d", "month":
		return TimeRange30Days, nil
	case "all", "0":
		return TimeRangeAllTime, nil
	default:
		return TimeRange7Days, fmt.Errorf("unknown time range %q (want 24h, 7d, 30d or all)", s)
	}
}

// DailyUsagePoint contains data for a single day in trend charts.
type DailyUsagePoint struct {
	Date               time.Time
	Requests           int
	ElevenLabsRequests int
	OpenAIRequests     int
	Characters         int64
	CacheHits          int
	ErrorCount         int
	SessionCount       int
}

// HourlyPattern represents request volume by hour of day.
type HourlyPattern struct {
	Hour          int // 0-23
	AvgRequests   float64
	AvgTextLength float64
	Occurrences   int // days this hour slot had traffic
}

// EstimateSnapshot is a persisted point of the projected monthly cost.
type EstimateSnapshot struct {
	Timestamp     time.Time
	TimeRange     string
	ID            int64
	MonthlyUsers  int
	SampleSize    int
	TotalMonthly  float64
	Cached        float64
	Uncached      float64
	CharacterCost float64
	APICallCost   float64
}

// UsageHistory contains the history tab data for a time range.
type UsageHistory struct {
	FirstRequest   time.Time
	LastRequest    time.Time
	LastUpdated    time.Time
	DailyUsage     []DailyUsagePoint
	HourlyPatterns []HourlyPattern
	Providers      []ProviderStats
	Snapshots      []EstimateSnapshot
	Recent         []SpeechRequest
	TotalRequests  int
	TotalDataDays  int
	TimeRange      TimeRange
}

// HasData returns true if any requests fall in the range.
func (h *UsageHistory) HasData() bool {
	return h.TotalRequests > 0
}

// GetPeakHour returns the hour with the highest average request volume.
func (h *UsageHistory) GetPeakHour() (peakHour int, peakVal float64) {
	for _, p := range h.HourlyPatterns {
		if p.AvgRequests > peakVal {
			peakVal = p.AvgRequests
			peakHour = p.Hour
		}
	}
	return peakHour, peakVal
}
