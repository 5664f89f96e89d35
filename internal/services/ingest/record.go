package ingest

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/j-veylop/speechcost-tui/internal/models"
)

// ErrUnsupportedFormat is returned for files that are neither JSON Lines nor CSV.
var ErrUnsupportedFormat = errors.New("unsupported log format")

// Format is an export file layout.
type Format int

const (
	FormatJSONL Format = iota
	FormatCSV
)

// sessionGap groups a user's requests without a session id into sessions.
const sessionGap = 30 * time.Minute

// Record is one exported log row as it appears on the wire.
type Record struct {
	RequestID  string     `json:"request_id" validate:"omitempty,max=128"`
	Timestamp  flexString `json:"timestamp" validate:"required"`
	SessionID  string     `json:"session_id" validate:"omitempty,max=128"`
	UserID     string     `json:"user_id" validate:"omitempty,max=128"`
	Provider   string     `json:"provider" validate:"required"`
	Mode       string     `json:"mode"`
	VoiceID    string     `json:"voice_id"`
	BatchID    string     `json:"batch_id"`
	Error      string     `json:"error"`
	TextLength int        `json:"text_length" validate:"gte=0"`
	DurationMs int        `json:"duration_ms" validate:"gte=0"`
	StatusCode int        `json:"status_code" validate:"omitempty,gte=100,lte=599"`
	CacheHit   bool       `json:"cache_hit"`
	Batched    bool       `json:"batched"`
}

// flexString accepts either a JSON string or a JSON number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

var validate = validator.New()

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil && n > 0 {
		// Milliseconds since epoch when the value is too large to be seconds.
		if n > 1e12 {
			return time.UnixMilli(int64(n)), nil
		}
		sec := int64(n)
		return time.Unix(sec, int64((n-float64(sec))*1e9)), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ToSpeechRequest validates the record and converts it to a domain row.
func (r *Record) ToSpeechRequest() (models.SpeechRequest, error) {
	if err := validate.Struct(r); err != nil {
		return models.SpeechRequest{}, err
	}

	ts, err := parseTimestamp(string(r.Timestamp))
	if err != nil {
		return models.SpeechRequest{}, err
	}

	provider, ok := models.ParseProvider(r.Provider)
	if !ok {
		return models.SpeechRequest{}, fmt.Errorf("unknown provider %q", r.Provider)
	}
	mode, ok := models.ParseMode(r.Mode)
	if !ok {
		return models.SpeechRequest{}, fmt.Errorf("unknown mode %q", r.Mode)
	}

	req := models.SpeechRequest{
		Timestamp:  ts,
		RequestID:  strings.TrimSpace(r.RequestID),
		SessionID:  strings.TrimSpace(r.SessionID),
		UserID:     strings.TrimSpace(r.UserID),
		Provider:   provider,
		Mode:       mode,
		VoiceID:    r.VoiceID,
		BatchID:    r.BatchID,
		Error:      r.Error,
		TextLength: r.TextLength,
		DurationMs: r.DurationMs,
		StatusCode: r.StatusCode,
		CacheHit:   r.CacheHit,
		Batched:    r.Batched || r.BatchID != "",
	}
	if req.StatusCode == 0 {
		req.StatusCode = 200
		if req.Error != "" {
			req.StatusCode = 500
		}
	}
	if req.SessionID == "" && req.UserID != "" {
		req.SessionID = deriveSessionID(req.UserID, ts)
	}
	if req.RequestID == "" {
		req.RequestID = deriveRequestID(req)
	}
	return req, nil
}

// requestNamespace scopes the name-based ids given to rows without one.
var requestNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("speechcost:speech_requests"))

// deriveRequestID names a row by its content, so importing the same export
// twice yields the same ids and the store drops the repeats.
func deriveRequestID(r models.SpeechRequest) string {
	key := strings.Join([]string{
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		r.UserID,
		r.SessionID,
		string(r.Provider),
		string(r.Mode),
		r.VoiceID,
		r.BatchID,
		strconv.Itoa(r.TextLength),
		strconv.Itoa(r.DurationMs),
		strconv.Itoa(r.StatusCode),
		strconv.FormatBool(r.CacheHit),
		strconv.FormatBool(r.Batched),
		r.Error,
	}, "\x1f")
	return uuid.NewSHA1(requestNamespace, []byte(key)).String()
}

// deriveSessionID buckets a user's requests into fixed windows.
func deriveSessionID(userID string, ts time.Time) string {
	bucket := ts.UTC().Truncate(sessionGap)
	data := fmt.Sprintf("%s:%d", userID, bucket.Unix())
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("ses_%x", hash[:8])
}

// RowError describes a row that was skipped.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// Batch is the result of parsing one export.
type Batch struct {
	Requests []models.SpeechRequest
	Skipped  []RowError
}

// DetectFormat picks a format from a file name.
func DetectFormat(name string) (Format, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".jsonl"), strings.HasSuffix(lower, ".ndjson"), strings.HasSuffix(lower, ".json"):
		return FormatJSONL, nil
	case strings.HasSuffix(lower, ".csv"):
		return FormatCSV, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// Parse reads an export in the given format. Invalid rows are skipped and
// reported; only I/O and header errors fail the whole parse.
func Parse(r io.Reader, f Format) (*Batch, error) {
	switch f {
	case FormatJSONL:
		return parseJSONL(r)
	case FormatCSV:
		return parseCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func parseJSONL(r io.Reader) (*Batch, error) {
	batch := &Batch{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(text, &rec); err != nil {
			batch.Skipped = append(batch.Skipped, RowError{Line: line, Err: err})
			continue
		}
		req, err := rec.ToSpeechRequest()
		if err != nil {
			batch.Skipped = append(batch.Skipped, RowError{Line: line, Err: err})
			continue
		}
		batch.Requests = append(batch.Requests, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	return batch, nil
}

func parseCSV(r io.Reader) (*Batch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Batch{}, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"timestamp", "provider"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv header missing %q column", required)
		}
	}

	batch := &Batch{}
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			batch.Skipped = append(batch.Skipped, RowError{Line: line, Err: err})
			continue
		}

		rec, err := csvRecord(cols, row)
		if err != nil {
			batch.Skipped = append(batch.Skipped, RowError{Line: line, Err: err})
			continue
		}
		req, err := rec.ToSpeechRequest()
		if err != nil {
			batch.Skipped = append(batch.Skipped, RowError{Line: line, Err: err})
			continue
		}
		batch.Requests = append(batch.Requests, req)
	}
	return batch, nil
}

func csvRecord(cols map[string]int, row []string) (Record, error) {
	get := func(name string) string {
		if i, ok := cols[name]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	atoi := func(name string) (int, error) {
		v := get(name)
		if v == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return n, nil
	}
	parseBool := func(name string) (bool, error) {
		v := get(name)
		if v == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("%s: %w", name, err)
		}
		return b, nil
	}

	rec := Record{
		RequestID: get("request_id"),
		Timestamp: flexString(get("timestamp")),
		SessionID: get("session_id"),
		UserID:    get("user_id"),
		Provider:  get("provider"),
		Mode:      get("mode"),
		VoiceID:   get("voice_id"),
		BatchID:   get("batch_id"),
		Error:     get("error"),
	}

	var err error
	if rec.TextLength, err = atoi("text_length"); err != nil {
		return rec, err
	}
	if rec.DurationMs, err = atoi("duration_ms"); err != nil {
		return rec, err
	}
	if rec.StatusCode, err = atoi("status_code"); err != nil {
		return rec, err
	}
	if rec.CacheHit, err = parseBool("cache_hit"); err != nil {
		return rec, err
	}
	if rec.Batched, err = parseBool("batched"); err != nil {
		return rec, err
	}
	return rec, nil
}
