// Package missed keeps the append-only log of skipped appointments.
package missed

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/marcus/portrait/internal/models"
	"github.com/xuri/excelize/v2"
)

// Header is the fixed first row of a new log.
var Header = []string{"Standort", "Klasse", "Nachname", "Vorname", "SchuelerID", "Datum", "Grund"}

const timestampLayout = "2006-01-02T15:04:05"

// Appender records missed appointments
type Appender interface {
	Append(entry models.MissedEntry) error
}

// Log is an Appender writing to an .xlsx workbook. The file is created
// with Header on first use.
type Log struct {
	path string
	mu   sync.Mutex
}

// NewLog returns a log stored at path.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the log location.
func (l *Log) Path() string { return l.path }

// Append adds entry as a new last row.
func (l *Log) Append(entry models.MissedEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, sheet, err := l.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read missed log: %w", err)
	}
	next := len(rows) + 1

	row := []interface{}{
		entry.Location,
		entry.ClassName,
		entry.LastName,
		entry.FirstName,
		entry.StudentID,
		entry.Timestamp.Format(timestampLayout),
		entry.Reason,
	}
	cellRef, _ := excelize.CoordinatesToCellName(1, next)
	if err := f.SetSheetRow(sheet, cellRef, &row); err != nil {
		return fmt.Errorf("append missed entry: %w", err)
	}
	return l.save(f)
}

// Entries reads all logged entries in file order. A missing log is empty.
func (l *Log) Entries() ([]models.MissedEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		return nil, nil
	}
	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("open missed log: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		return nil, fmt.Errorf("read missed log: %w", err)
	}

	var entries []models.MissedEntry
	for i, row := range rows {
		if i == 0 {
			continue
		}
		for len(row) < len(Header) {
			row = append(row, "")
		}
		ts, _ := time.ParseInLocation(timestampLayout, row[5], time.Local)
		entries = append(entries, models.MissedEntry{
			Location:  row[0],
			ClassName: row[1],
			LastName:  row[2],
			FirstName: row[3],
			StudentID: row[4],
			Timestamp: ts,
			Reason:    row[6],
		})
	}
	return entries, nil
}

// open loads the workbook or creates a new one with the header row.
func (l *Log) open() (*excelize.File, string, error) {
	if _, err := os.Stat(l.path); err == nil {
		f, err := excelize.OpenFile(l.path)
		if err != nil {
			return nil, "", fmt.Errorf("open missed log: %w", err)
		}
		return f, f.GetSheetName(f.GetActiveSheetIndex()), nil
	} else if !os.IsNotExist(err) {
		return nil, "", fmt.Errorf("stat missed log: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return nil, "", fmt.Errorf("create missed log dir: %w", err)
	}
	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		f.Close()
		return nil, "", fmt.Errorf("write missed log header: %w", err)
	}
	return f, sheet, nil
}

// save replaces the log atomically.
func (l *Log) save(f *excelize.File) error {
	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".missed-*.xlsx.tmp")
	if err != nil {
		return fmt.Errorf("save missed log: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("save missed log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save missed log: %w", err)
	}
	return os.Rename(tmpName, l.path)
}
