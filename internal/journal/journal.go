// Package journal stores an append-only audit trail of station events in
// sqlite. It is never read back to restore a session.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/marcus/portrait/internal/models"
	_ "modernc.org/sqlite"
)

// fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Recorder accepts journal events
type Recorder interface {
	Record(e models.Event) error
}

// Journal wraps the database connection
type Journal struct {
	conn *sql.DB
	path string
}

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// one writer; the station never writes concurrently
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if _, err := conn.Exec(
		`INSERT INTO schema_info (key, value) VALUES ('version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(SchemaVersion),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set schema version: %w", err)
	}

	return &Journal{conn: conn, path: path}, nil
}

// Path returns the database file.
func (j *Journal) Path() string { return j.path }

// Close closes the database
func (j *Journal) Close() error {
	return j.conn.Close()
}

// SchemaVersion reads the stored schema version.
func (j *Journal) SchemaVersion() (int, error) {
	var v string
	if err := j.conn.QueryRow(`SELECT value FROM schema_info WHERE key = 'version'`).Scan(&v); err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

// Record appends e. A zero timestamp is replaced by the current time.
func (j *Journal) Record(e models.Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	_, err := j.conn.Exec(
		`INSERT INTO events (session_id, type, location, class_name, student_id, name, path, detail, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, string(e.Type), e.Location, e.ClassName, e.StudentID, e.Name, e.Path, e.Detail,
		e.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record %s event: %w", e.Type, err)
	}
	return nil
}

// Filter narrows event queries. Empty fields match everything.
type Filter struct {
	Location  string
	ClassName string
	SessionID string
	Since     time.Time
	Limit     int
}

func (f Filter) where() (string, []any) {
	var conds []string
	var args []any
	if f.Location != "" {
		conds = append(conds, "location = ?")
		args = append(args, f.Location)
	}
	if f.ClassName != "" {
		conds = append(conds, "class_name = ?")
		args = append(args, f.ClassName)
	}
	if f.SessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if !f.Since.IsZero() {
		conds = append(conds, "timestamp >= ?")
		args = append(args, f.Since.UTC().Format(timeLayout))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Events returns matching events, oldest first.
func (j *Journal) Events(f Filter) ([]models.Event, error) {
	where, args := f.where()
	query := `SELECT id, session_id, type, location, class_name, student_id, name, path, detail, timestamp
		FROM events` + where + ` ORDER BY id`
	if f.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(f.Limit)
	}

	rows, err := j.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		var typ, ts string
		if err := rows.Scan(&e.ID, &e.SessionID, &typ, &e.Location, &e.ClassName,
			&e.StudentID, &e.Name, &e.Path, &e.Detail, &ts); err != nil {
			return nil, err
		}
		e.Type = models.EventType(typ)
		e.Timestamp, _ = time.Parse(timeLayout, ts)
		events = append(events, e)
	}
	return events, rows.Err()
}

// ClassSummary counts events for one class
type ClassSummary struct {
	Location  string
	ClassName string
	Counts    map[models.EventType]int
	Last      time.Time
}

// Count returns the number of events of type t.
func (s ClassSummary) Count(t models.EventType) int { return s.Counts[t] }

// Summary groups matching events by location and class.
func (j *Journal) Summary(f Filter) ([]ClassSummary, error) {
	where, args := f.where()
	rows, err := j.conn.Query(
		`SELECT location, class_name, type, COUNT(*), MAX(timestamp) FROM events`+where+
			` GROUP BY location, class_name, type`, args...)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	byKey := make(map[[2]string]*ClassSummary)
	for rows.Next() {
		var loc, class, typ, last string
		var n int
		if err := rows.Scan(&loc, &class, &typ, &n, &last); err != nil {
			return nil, err
		}
		key := [2]string{loc, class}
		s, ok := byKey[key]
		if !ok {
			s = &ClassSummary{Location: loc, ClassName: class, Counts: make(map[models.EventType]int)}
			byKey[key] = s
		}
		s.Counts[models.EventType(typ)] = n
		if ts, err := time.Parse(timeLayout, last); err == nil && ts.After(s.Last) {
			s.Last = ts
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]ClassSummary, 0, len(byKey))
	for _, s := range byKey {
		out = append(out, *s)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Location != out[b].Location {
			return out[a].Location < out[b].Location
		}
		return out[a].ClassName < out[b].ClassName
	})
	return out, nil
}
