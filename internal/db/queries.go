package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/j-veylop/speechcost-tui/internal/logger"
	"github.com/j-veylop/speechcost-tui/internal/models"
)

const insertSpeechRequestQuery = `
	INSERT OR IGNORE INTO speech_requests (
		request_id, timestamp, session_id, user_id, provider, mode, voice_id,
		text_length, duration_ms, status_code, cache_hit, batched, batch_id, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func speechRequestArgs(req *models.SpeechRequest) []any {
	timestamp := req.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	mode := req.Mode
	if mode == "" {
		mode = models.ModeStandard
	}
	status := req.StatusCode
	if status == 0 {
		status = 200
	}

	return []any{
		nullString(req.RequestID),
		timestamp.UTC().Format(sqlTimeFormat),
		nullString(req.SessionID),
		nullString(req.UserID),
		string(req.Provider),
		string(mode),
		nullString(req.VoiceID),
		req.TextLength,
		req.DurationMs,
		status,
		req.CacheHit,
		req.Batched,
		nullString(req.BatchID),
		nullString(req.Error),
	}
}

// InsertSpeechRequests logs a batch in one transaction and returns how many
// rows were new.
func (db *DB) InsertSpeechRequests(ctx context.Context, reqs []models.SpeechRequest) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertSpeechRequestQuery)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for i := range reqs {
		result, err := stmt.ExecContext(ctx, speechRequestArgs(&reqs[i])...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert speech request %q: %w", reqs[i].RequestID, err)
		}
		if n, err := result.RowsAffected(); err == nil && n > 0 {
			inserted++
			if id, err := result.LastInsertId(); err == nil {
				reqs[i].ID = id
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit speech requests: %w", err)
	}
	return inserted, nil
}

// GetRecentSpeechRequests returns the most recent speech requests.
func (db *DB) GetRecentSpeechRequests(limit int) ([]models.SpeechRequest, error) {
	query := `
		SELECT id, request_id, timestamp, session_id, user_id, provider, mode,
			   voice_id, text_length, duration_ms, status_code, cache_hit, batched,
			   batch_id, error
		FROM speech_requests
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(context.Background(), query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent speech requests: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var reqs []models.SpeechRequest
	for rows.Next() {
		var r models.SpeechRequest
		var reqID, sessID, userID, voiceID, batchID, errStr sql.NullString
		var ts, provider, mode string

		err := rows.Scan(
			&r.ID,
			&reqID,
			&ts,
			&sessID,
			&userID,
			&provider,
			&mode,
			&voiceID,
			&r.TextLength,
			&r.DurationMs,
			&r.StatusCode,
			&r.CacheHit,
			&r.Batched,
			&batchID,
			&errStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan speech request: %w", err)
		}

		r.Timestamp, _ = parseTimeString(ts)
		r.RequestID = reqID.String
		r.SessionID = sessID.String
		r.UserID = userID.String
		r.Provider = models.Provider(provider)
		r.Mode = models.Mode(mode)
		r.VoiceID = voiceID.String
		r.BatchID = batchID.String
		r.Error = errStr.String
		reqs = append(reqs, r)
	}

	return reqs, rows.Err()
}

// GetTotalStats returns overall aggregated statistics.
func (db *DB) GetTotalStats() (*models.TotalStats, error) {
	query := `
		SELECT
			COUNT(*) as total_requests,
			COALESCE(SUM(text_length), 0) as total_chars,
			COALESCE(SUM(cache_hit), 0) as cache_hits,
			COALESCE(SUM(batched), 0) as batched,
			COALESCE(SUM(CASE WHEN mode = 'streaming' THEN 1 ELSE 0 END), 0) as streaming,
			COALESCE(SUM(CASE WHEN status_code >= 400 THEN 1 ELSE 0 END), 0) as error_count,
			COUNT(DISTINCT user_id) as unique_users,
			COUNT(DISTINCT session_id) as unique_sessions,
			COALESCE(AVG(duration_ms), 0) as avg_duration,
			MIN(timestamp) as first_request,
			MAX(timestamp) as last_request
		FROM speech_requests
	`

	var stats models.TotalStats
	var first, last sql.NullString
	err := db.QueryRowContext(context.Background(), query).Scan(
		&stats.TotalRequests,
		&stats.TotalCharacters,
		&stats.CacheHits,
		&stats.BatchedRequests,
		&stats.StreamingRequests,
		&stats.ErrorCount,
		&stats.UniqueUsers,
		&stats.UniqueSessions,
		&stats.AvgDurationMs,
		&first,
		&last,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query total stats: %w", err)
	}
	if first.Valid {
		stats.FirstRequest, _ = parseTimeString(first.String)
	}
	if last.Valid {
		stats.LastRequest, _ = parseTimeString(last.String)
	}

	return &stats, nil
}

// GetProviderStats returns per-provider totals for the last days (0 = all).
func (db *DB) GetProviderStats(days int) ([]models.ProviderStats, error) {
	timeFilter := ""
	var args []any
	if days > 0 {
		timeFilter = sqlTimeFilterClause
		args = append(args, fmt.Sprintf("-%d days", days))
	}

	query := fmt.Sprintf(`
		SELECT
			provider,
			COUNT(*) as requests,
			COALESCE(SUM(text_length), 0) as chars,
			COALESCE(SUM(cache_hit), 0) as cache_hits,
			COALESCE(SUM(CASE WHEN status_code >= 400 THEN 1 ELSE 0 END), 0) as error_count,
			COALESCE(AVG(duration_ms), 0) as avg_duration
		FROM speech_requests
		WHERE 1=1 %s
		GROUP BY provider
		ORDER BY requests DESC, provider ASC
	`, timeFilter)

	rows, err := db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query provider stats: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var stats []models.ProviderStats
	total := 0
	for rows.Next() {
		var s models.ProviderStats
		var provider string
		if err := rows.Scan(&provider, &s.Requests, &s.Characters, &s.CacheHits, &s.ErrorCount, &s.AvgDurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan provider stats: %w", err)
		}
		s.Provider = models.Provider(provider)
		total += s.Requests
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if total > 0 {
		for i := range stats {
			stats[i].SharePercent = float64(stats[i].Requests) / float64(total) * 100
		}
	}
	return stats, nil
}

// PruneSpeechRequests deletes requests older than the given age.
func (db *DB) PruneSpeechRequests(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC().Format(sqlTimeFormat)
	result, err := db.ExecContext(context.Background(), "DELETE FROM speech_requests WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune speech requests: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// nullString returns a sql.NullString from a string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
