package db

import (
	"fmt"
	"time"
)

const (
	// sqlTimeFormat is how timestamps are stored; it matches datetime('now').
	sqlTimeFormat = "2006-01-02 15:04:05"

	sqlTimeFilterClause = "AND timestamp >= datetime('now', ?)"

	// snapshotTrendLimit caps the estimate snapshots loaded for the trend chart.
	snapshotTrendLimit = 60

	recentRequestLimit = 8
)

// readLayouts covers the stored format plus what older imports and
// time.Time.String() wrote before NormalizeTimestamps ran.
var readLayouts = [...]string{
	sqlTimeFormat,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999 -0700 MST",
}

func parseTimeString(s string) (time.Time, bool) {
	for _, layout := range readLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// windowArgs returns the WHERE fragment and argument limiting a query to the
// last days. Zero means no limit.
func windowArgs(days int) (string, []any) {
	if days <= 0 {
		return "", nil
	}
	return sqlTimeFilterClause, []any{fmt.Sprintf("-%d days", days)}
}
