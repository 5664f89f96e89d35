package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/j-veylop/speechcost-tui/internal/logger"
	"github.com/j-veylop/speechcost-tui/internal/models"
)

// GetProfileAggregates returns the raw counts a usage profile is derived
// from. Failed requests are excluded since providers do not bill them.
func (db *DB) GetProfileAggregates(days int) (*models.ProfileAggregates, error) {
	timeFilter, args := windowArgs(days)
	return db.profileAggregates(timeFilter, args)
}

// GetProfileAggregatesBetween is GetProfileAggregates over [start, end).
func (db *DB) GetProfileAggregatesBetween(start, end time.Time) (*models.ProfileAggregates, error) {
	return db.profileAggregates("AND timestamp >= ? AND timestamp < ?", []any{
		start.UTC().Format(sqlTimeFormat),
		end.UTC().Format(sqlTimeFormat),
	})
}

func (db *DB) profileAggregates(timeFilter string, args []any) (*models.ProfileAggregates, error) {
	query := fmt.Sprintf(`
		SELECT
			COUNT(*) as requests,
			COALESCE(SUM(text_length), 0) as total_chars,
			COALESCE(SUM(cache_hit), 0) as cache_hits,
			COALESCE(SUM(batched), 0) as batched,
			COALESCE(SUM(CASE WHEN mode = 'streaming' THEN 1 ELSE 0 END), 0) as streaming,
			COUNT(DISTINCT session_id) as unique_sessions,
			COUNT(DISTINCT user_id) as unique_users,
			MIN(timestamp) as first_request,
			MAX(timestamp) as last_request
		FROM speech_requests
		WHERE status_code < 400 %s
	`, timeFilter)

	agg := &models.ProfileAggregates{ProviderCounts: make(map[models.Provider]int)}
	var first, last sql.NullString
	err := db.QueryRowContext(context.Background(), query, args...).Scan(
		&agg.Requests,
		&agg.TotalChars,
		&agg.CacheHits,
		&agg.Batched,
		&agg.Streaming,
		&agg.UniqueSessions,
		&agg.UniqueUsers,
		&first,
		&last,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query profile aggregates: %w", err)
	}
	if first.Valid {
		agg.FirstRequest, _ = parseTimeString(first.String)
	}
	if last.Valid {
		agg.LastRequest, _ = parseTimeString(last.String)
	}

	if agg.Requests == 0 {
		return agg, nil
	}

	providerQuery := fmt.Sprintf(`
		SELECT provider, COUNT(*)
		FROM speech_requests
		WHERE status_code < 400 %s
		GROUP BY provider
	`, timeFilter)

	rows, err := db.QueryContext(context.Background(), providerQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query provider counts: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	for rows.Next() {
		var provider string
		var n int
		if err := rows.Scan(&provider, &n); err != nil {
			return nil, fmt.Errorf("failed to scan provider count: %w", err)
		}
		agg.ProviderCounts[models.Provider(provider)] = n
	}

	return agg, rows.Err()
}
