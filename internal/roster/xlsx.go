package roster

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/marcus/portrait/internal/models"
	"github.com/xuri/excelize/v2"
)

// Workbook is a Source backed by an .xlsx file. The first row of every
// sheet is a header. Writes go through an exclusive file lock and an
// atomic replace of the workbook.
type Workbook struct {
	path        string
	cols        Columns
	file        *excelize.File
	locker      *writeLocker
	lockTimeout time.Duration
	logger      *slog.Logger
	mu          sync.Mutex
}

// OpenWorkbook opens the roster at path.
func OpenWorkbook(path string, cols Columns, logger *slog.Logger) (*Workbook, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open roster %s: %w", filepath.Base(path), err)
	}
	return &Workbook{
		path:        path,
		cols:        cols,
		file:        f,
		locker:      newWriteLocker(path),
		lockTimeout: defaultTimeout,
		logger:      logger,
	}, nil
}

// Path returns the workbook location on disk.
func (w *Workbook) Path() string { return w.path }

// SetColumns changes the column mapping for later reads and writes.
func (w *Workbook) SetColumns(cols Columns) {
	w.mu.Lock()
	w.cols = cols
	w.mu.Unlock()
}

func (w *Workbook) columns() Columns {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cols
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// Locations implements Source
func (w *Workbook) Locations() ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.GetSheetList(), nil
}

// Classes implements Source
func (w *Workbook) Classes(location string) ([]string, error) {
	rows, err := w.rows(location)
	if err != nil {
		return nil, err
	}
	classIdx, err := columnIndex(w.columns().Class)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var classes []string
	for _, row := range rows {
		name := cell(row, classIdx)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		classes = append(classes, name)
	}
	sort.Strings(classes)
	return classes, nil
}

// People implements Source
func (w *Workbook) People(location, className string) ([]models.Person, error) {
	rows, err := w.rows(location)
	if err != nil {
		return nil, err
	}

	cols := w.columns()
	idx := make(map[string]int, 4)
	for name, col := range map[string]string{
		"class": cols.Class, "last": cols.LastName,
		"first": cols.FirstName, "id": cols.StudentID,
	} {
		i, err := columnIndex(col)
		if err != nil {
			return nil, err
		}
		idx[name] = i
	}

	var people []models.Person
	for i, row := range rows {
		if cell(row, idx["class"]) != className {
			continue
		}
		p := models.Person{
			ClassName: className,
			LastName:  cell(row, idx["last"]),
			FirstName: cell(row, idx["first"]),
			StudentID: cell(row, idx["id"]),
			Row:       i + 2, // header row + 1-based
		}
		if p.LastName == "" || p.FirstName == "" || p.StudentID == "" {
			w.logger.Debug("roster: skip incomplete row", "location", location, "row", p.Row)
			continue
		}
		people = append(people, p)
	}

	sort.SliceStable(people, func(i, j int) bool {
		if people[i].LastName != people[j].LastName {
			return people[i].LastName < people[j].LastName
		}
		return people[i].FirstName < people[j].FirstName
	})
	return people, nil
}

// MarkPhotographed implements Marker
func (w *Workbook) MarkPhotographed(location string, row int, photographed bool, date, reason string) error {
	if row < 2 {
		return fmt.Errorf("mark row %d: not a data row", row)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if idx, _ := w.file.GetSheetIndex(location); idx < 0 {
		return fmt.Errorf("location %q not found in roster", location)
	}

	if err := w.locker.acquire(w.lockTimeout); err != nil {
		return err
	}
	defer w.locker.release()

	status, when, why := PhotographedNo, "", reason
	if photographed {
		status, when, why = PhotographedYes, date, ""
	}
	prev := make(map[string]string, 3)
	for col, value := range map[string]string{
		w.cols.Photographed: status,
		w.cols.Date:         when,
		w.cols.Reason:       why,
	} {
		if col == "" {
			continue
		}
		ref := fmt.Sprintf("%s%d", col, row)
		old, err := w.file.GetCellValue(location, ref)
		if err != nil {
			w.restore(location, prev)
			return fmt.Errorf("read %s: %w", ref, err)
		}
		prev[ref] = old
		if err := w.file.SetCellStr(location, ref, value); err != nil {
			w.restore(location, prev)
			return fmt.Errorf("write %s: %w", ref, err)
		}
	}

	if err := w.save(); err != nil {
		w.restore(location, prev)
		return err
	}
	return nil
}

// restore puts back cell values after a failed write so a later save does
// not persist them.
func (w *Workbook) restore(location string, cells map[string]string) {
	for ref, value := range cells {
		if err := w.file.SetCellStr(location, ref, value); err != nil {
			w.logger.Warn("roster: restore cell failed", "cell", ref, "err", err)
		}
	}
}

// save writes the workbook to a temp file next to it and renames it over
// the original.
func (w *Workbook) save() error {
	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, ".roster-*.xlsx.tmp")
	if err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := w.file.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("save roster: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save roster: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save roster: %w", err)
	}
	return nil
}

// rows returns the data rows of a sheet, header excluded.
func (w *Workbook) rows(location string) ([][]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rows, err := w.file.GetRows(location)
	if err != nil {
		return nil, fmt.Errorf("read location %q: %w", location, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[1:], nil
}

func columnIndex(col string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.TrimSpace(col))
	if err != nil {
		return 0, fmt.Errorf("roster column %q: %w", col, err)
	}
	return n - 1, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
