// Package journal keeps a SQLite record of every mutating TestRail call so a
// sync can be audited or replayed by hand.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bgricker/karatesync/internal/testrail"
)

// Entry is one journaled call.
type Entry struct {
	ID           int64     `json:"id"`
	InvocationID string    `json:"invocation_id"`
	Operation    string    `json:"operation"`
	Method       string    `json:"method"`
	Target       string    `json:"target"`
	Payload      string    `json:"payload,omitempty"`
	StatusCode   int       `json:"status_code"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Journal is an open journal database.
type Journal struct {
	db      *sql.DB
	path    string
	version int
	now     func() time.Time
}

// Open opens or creates the journal at path and applies migrations.
func Open(ctx context.Context, path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir %q: %w", dir, err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	version, err := migrate(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal %q: %w", path, err)
	}
	return &Journal{db: db, path: path, version: version, now: time.Now}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Path returns the database file path.
func (j *Journal) Path() string { return j.path }

// SchemaVersion returns the applied migration version.
func (j *Journal) SchemaVersion() int { return j.version }

// Append stores e. A zero CreatedAt is set to the current time.
func (j *Journal) Append(ctx context.Context, e Entry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = j.now()
	}
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO calls(invocation_id, operation, method, target, payload, status_code, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.InvocationID, e.Operation, e.Method, e.Target, nullable(e.Payload), e.StatusCode, nullable(e.Error), e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("append journal entry: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	return j.query(ctx, `SELECT id, invocation_id, operation, method, target, payload, status_code, error, created_at FROM calls ORDER BY id DESC LIMIT ?`, limit)
}

// ForInvocation returns the entries of one invocation in call order.
func (j *Journal) ForInvocation(ctx context.Context, invocationID string) ([]Entry, error) {
	return j.query(ctx, `SELECT id, invocation_id, operation, method, target, payload, status_code, error, created_at FROM calls WHERE invocation_id = ? ORDER BY id`, invocationID)
}

func (j *Journal) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			payload   sql.NullString
			errText   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.InvocationID, &e.Operation, &e.Method, &e.Target, &payload, &e.StatusCode, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.Payload = payload.String
		e.Error = errText.String
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return out, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Recorder journals TestRail calls under one invocation id.
type Recorder struct {
	journal      *Journal
	invocationID string
}

// Recorder returns a testrail.Recorder bound to invocationID.
func (j *Journal) Recorder(invocationID string) *Recorder {
	return &Recorder{journal: j, invocationID: invocationID}
}

var _ testrail.Recorder = (*Recorder)(nil)

// Record stores call. Payloads that are not JSON are stored as a JSON string.
func (r *Recorder) Record(ctx context.Context, call testrail.Call) error {
	payload := string(call.Payload)
	if len(call.Payload) > 0 && !json.Valid(call.Payload) {
		quoted, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		payload = string(quoted)
	}
	e := Entry{
		InvocationID: r.invocationID,
		Operation:    call.Operation,
		Method:       call.Method,
		Target:       call.Endpoint,
		Payload:      payload,
		StatusCode:   call.StatusCode,
	}
	if call.Err != nil {
		e.Error = call.Err.Error()
	}
	_, err := r.journal.Append(ctx, e)
	return err
}
