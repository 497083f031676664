// Package store keeps a sqlite journal of accessibility events.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mj1618/a11y-chain/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    type         TEXT NOT NULL,
    gesture      TEXT NOT NULL DEFAULT '',
    source       TEXT NOT NULL,
    device       INTEGER NOT NULL DEFAULT 0,
    timestamp_ns INTEGER NOT NULL,
    x            REAL NOT NULL DEFAULT 0,
    y            REAL NOT NULL DEFAULT 0,
    scale        REAL NOT NULL DEFAULT 0,
    text         TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp_ns);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(type, timestamp_ns);
`

// ErrClosed is returned by operations on a closed journal.
var ErrClosed = errors.New("journal closed")

// Entry is one journaled event.
type Entry struct {
	ID    int64                    `yaml:"id"    json:"id"`
	Event model.AccessibilityEvent `yaml:"event" json:"event"`
}

// Query selects journal entries. Zero fields do not filter.
type Query struct {
	Type  model.EventType
	Since time.Time
	Limit int
}

// Journal is a sqlite-backed event log. It is a chain.Observer, meant to be
// subscribed to an observer.Hub so inserts happen off the input path.
type Journal struct {
	db     *sql.DB
	log    *slog.Logger
	failed atomic.Uint64

	mu       sync.RWMutex
	onInsert []func(model.AccessibilityEvent)
}

// OnInsert registers fn to run after every successful insert, on the
// inserting goroutine.
func (j *Journal) OnInsert(fn func(model.AccessibilityEvent)) {
	j.mu.Lock()
	j.onInsert = append(j.onInsert, fn)
	j.mu.Unlock()
}

// Open opens or creates the journal at path.
func Open(path string, log *slog.Logger) (*Journal, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Journal{db: db, log: log.With("component", "journal")}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

// Insert appends ev and returns its id.
func (j *Journal) Insert(ev model.AccessibilityEvent) (int64, error) {
	if j.db == nil {
		return 0, ErrClosed
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	res, err := j.db.Exec(`
		INSERT INTO events (type, gesture, source, device, timestamp_ns, x, y, scale, text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(ev.Type), string(ev.Gesture), ev.Source, int64(ev.Device), ts.UnixNano(), ev.X, ev.Y, ev.Scale, ev.Text,
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	j.mu.RLock()
	hooks := j.onInsert
	j.mu.RUnlock()
	for _, fn := range hooks {
		fn(ev)
	}
	return id, nil
}

// OnAccessibilityEvent journals ev. Failures are logged and counted.
func (j *Journal) OnAccessibilityEvent(ev model.AccessibilityEvent) {
	if _, err := j.Insert(ev); err != nil {
		j.failed.Add(1)
		j.log.Warn("journal insert failed", "type", ev.Type, "error", err)
	}
}

// Failed returns how many events could not be journaled.
func (j *Journal) Failed() uint64 { return j.failed.Load() }

// Recent returns matching entries, newest first.
func (j *Journal) Recent(q Query) ([]Entry, error) {
	if j.db == nil {
		return nil, ErrClosed
	}
	stmt := `SELECT id, type, gesture, source, device, timestamp_ns, x, y, scale, text FROM events WHERE 1=1`
	var args []any
	if q.Type != "" {
		stmt += ` AND type = ?`
		args = append(args, string(q.Type))
	}
	if !q.Since.IsZero() {
		stmt += ` AND timestamp_ns >= ?`
		args = append(args, q.Since.UnixNano())
	}
	stmt += ` ORDER BY id DESC`
	if q.Limit > 0 {
		stmt += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := j.db.Query(stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			typ     string
			gesture string
			device  int64
			tsNs    int64
		)
		if err := rows.Scan(&e.ID, &typ, &gesture, &e.Event.Source, &device, &tsNs,
			&e.Event.X, &e.Event.Y, &e.Event.Scale, &e.Event.Text); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Event.Type = model.EventType(typ)
		e.Event.Gesture = model.GestureType(gesture)
		e.Event.Device = model.SourceID(device)
		e.Event.Timestamp = time.Unix(0, tsNs)
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByType returns the number of journaled events of each type.
func (j *Journal) CountByType() (map[model.EventType]int, error) {
	if j.db == nil {
		return nil, ErrClosed
	}
	rows, err := j.db.Query(`SELECT type, COUNT(*) FROM events GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := map[model.EventType]int{}
	for rows.Next() {
		var (
			typ string
			n   int
		)
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[model.EventType(typ)] = n
	}
	return counts, rows.Err()
}

// Prune deletes events older than before and returns how many went.
func (j *Journal) Prune(before time.Time) (int64, error) {
	if j.db == nil {
		return 0, ErrClosed
	}
	res, err := j.db.Exec(`DELETE FROM events WHERE timestamp_ns < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}
