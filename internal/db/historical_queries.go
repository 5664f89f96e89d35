package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/j-veylop/speechcost-tui/internal/models"
)

// collect scans every row with scan, closing rows when done.
func collect[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer func() { _ = rows.Close() }()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

const dailyUsageQuery = `
	SELECT
		day,
		COUNT(*),
		COALESCE(SUM(provider = 'elevenlabs'), 0),
		COALESCE(SUM(provider = 'openai'), 0),
		COALESCE(SUM(text_length), 0),
		COALESCE(SUM(cache_hit), 0),
		COALESCE(SUM(status_code >= 400), 0),
		COUNT(DISTINCT session_id)
	FROM speech_requests
	WHERE day IS NOT NULL %s
	GROUP BY day
	ORDER BY day`

// GetDailyUsage returns per-day request totals for the last days (0 = all).
func (db *DB) GetDailyUsage(days int) ([]models.DailyUsagePoint, error) {
	filter, args := windowArgs(days)
	rows, err := db.QueryContext(context.Background(), fmt.Sprintf(dailyUsageQuery, filter), args...)
	if err != nil {
		return nil, fmt.Errorf("daily usage: %w", err)
	}

	points, err := collect(rows, func(r *sql.Rows) (models.DailyUsagePoint, error) {
		var p models.DailyUsagePoint
		var day string
		err := r.Scan(&day, &p.Requests, &p.ElevenLabsRequests, &p.OpenAIRequests,
			&p.Characters, &p.CacheHits, &p.ErrorCount, &p.SessionCount)
		p.Date, _ = time.Parse(time.DateOnly, day)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("daily usage: %w", err)
	}
	return points, nil
}

const hourlyPatternQuery = `
	SELECT hour, AVG(requests), AVG(avg_len), COUNT(*)
	FROM (
		SELECT day, hour, COUNT(*) AS requests, AVG(text_length) AS avg_len
		FROM speech_requests
		WHERE day IS NOT NULL %s
		GROUP BY day, hour
	)
	GROUP BY hour`

// GetHourlyPatterns returns the average request volume for each hour of day,
// averaged over the days that saw traffic in that hour. The result always
// has 24 entries.
func (db *DB) GetHourlyPatterns(days int) ([]models.HourlyPattern, error) {
	filter, args := windowArgs(days)
	rows, err := db.QueryContext(context.Background(), fmt.Sprintf(hourlyPatternQuery, filter), args...)
	if err != nil {
		return nil, fmt.Errorf("hourly patterns: %w", err)
	}

	seen, err := collect(rows, func(r *sql.Rows) (models.HourlyPattern, error) {
		var p models.HourlyPattern
		err := r.Scan(&p.Hour, &p.AvgRequests, &p.AvgTextLength, &p.Occurrences)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("hourly patterns: %w", err)
	}

	var day [24]models.HourlyPattern
	for h := range day {
		day[h].Hour = h
	}
	for _, p := range seen {
		if p.Hour >= 0 && p.Hour < len(day) {
			day[p.Hour] = p
		}
	}
	return day[:], nil
}

// InsertEstimateSnapshot records a point-in-time projected monthly cost and
// sets s.ID. A zero timestamp means now.
func (db *DB) InsertEstimateSnapshot(s *models.EstimateSnapshot) error {
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}

	res, err := db.ExecContext(context.Background(), `
		INSERT INTO estimate_snapshots (
			timestamp, time_range, monthly_users, sample_size, total_monthly,
			cached, uncached, character_cost, api_call_cost
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Timestamp.UTC().Format(sqlTimeFormat), s.TimeRange, s.MonthlyUsers, s.SampleSize,
		s.TotalMonthly, s.Cached, s.Uncached, s.CharacterCost, s.APICallCost,
	)
	if err != nil {
		return fmt.Errorf("insert estimate snapshot: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		s.ID = id
	}
	return nil
}

// GetEstimateSnapshots returns the most recent snapshots, oldest first.
func (db *DB) GetEstimateSnapshots(limit int) ([]models.EstimateSnapshot, error) {
	rows, err := db.QueryContext(context.Background(), `
		SELECT id, timestamp, time_range, monthly_users, sample_size, total_monthly,
		       cached, uncached, character_cost, api_call_cost
		FROM (
			SELECT * FROM estimate_snapshots
			ORDER BY timestamp DESC, id DESC
			LIMIT ?
		)
		ORDER BY timestamp, id`, limit)
	if err != nil {
		return nil, fmt.Errorf("estimate snapshots: %w", err)
	}

	snaps, err := collect(rows, func(r *sql.Rows) (models.EstimateSnapshot, error) {
		var s models.EstimateSnapshot
		var ts string
		err := r.Scan(&s.ID, &ts, &s.TimeRange, &s.MonthlyUsers, &s.SampleSize,
			&s.TotalMonthly, &s.Cached, &s.Uncached, &s.CharacterCost, &s.APICallCost)
		s.Timestamp, _ = parseTimeString(ts)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("estimate snapshots: %w", err)
	}
	return snaps, nil
}

// GetUsageHistory gathers everything the history tab shows for timeRange.
func (db *DB) GetUsageHistory(timeRange models.TimeRange) (*models.UsageHistory, error) {
	days := timeRange.Days()
	h := &models.UsageHistory{TimeRange: timeRange, LastUpdated: time.Now()}

	var err error
	if h.DailyUsage, err = db.GetDailyUsage(days); err != nil {
		return nil, err
	}
	if h.HourlyPatterns, err = db.GetHourlyPatterns(days); err != nil {
		return nil, err
	}
	if h.Providers, err = db.GetProviderStats(days); err != nil {
		return nil, err
	}
	if h.Snapshots, err = db.GetEstimateSnapshots(snapshotTrendLimit); err != nil {
		return nil, err
	}
	if h.Recent, err = db.GetRecentSpeechRequests(recentRequestLimit); err != nil {
		return nil, err
	}

	h.TotalDataDays = len(h.DailyUsage)
	if n := len(h.DailyUsage); n > 0 {
		h.FirstRequest = h.DailyUsage[0].Date
		h.LastRequest = h.DailyUsage[n-1].Date
	}
	for _, d := range h.DailyUsage {
		h.TotalRequests += d.Requests
	}
	return h, nil
}
