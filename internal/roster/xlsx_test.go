package roster

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

// writeRoster creates a two-location roster workbook and returns its path.
func writeRoster(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Bern"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.NewSheet("Thun"); err != nil {
		t.Fatal(err)
	}

	bern := [][]interface{}{
		{"Klasse", "Nachname", "Vorname", "SchuelerID"},
		{"1a", "Meier", "Zoe", 1005},
		{"1a", "Albrecht", "Tim", 1001},
		{"2b", "Keller", "Lea", 2001},
		{"1a", "", "Ohne", 1009},
		{"1a", "Baum", "Jan", 1002},
		{"1a", "Kein", "Id", ""},
	}
	for i, row := range bern {
		cellRef, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Bern", cellRef, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SetSheetRow("Thun", "A1", &[]interface{}{"Klasse", "Nachname", "Vorname", "SchuelerID"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow("Thun", "A2", &[]interface{}{"3c", "Zahn", "Eva", 3001}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "roster.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func openTestWorkbook(t *testing.T, path string) *Workbook {
	t.Helper()
	wb, err := OpenWorkbook(path, DefaultColumns(), nil)
	if err != nil {
		t.Fatalf("OpenWorkbook: %v", err)
	}
	t.Cleanup(func() { wb.Close() })
	return wb
}

func TestWorkbook_LocationsAndClasses(t *testing.T) {
	wb := openTestWorkbook(t, writeRoster(t))

	locs, err := wb.Locations()
	if err != nil {
		t.Fatal(err)
	}
	if len(locs) != 2 || locs[0] != "Bern" || locs[1] != "Thun" {
		t.Errorf("Locations() = %v", locs)
	}

	classes, err := wb.Classes("Bern")
	if err != nil {
		t.Fatal(err)
	}
	if len(classes) != 2 || classes[0] != "1a" || classes[1] != "2b" {
		t.Errorf("Classes(Bern) = %v", classes)
	}

	if _, err := wb.Classes("Nowhere"); err == nil {
		t.Error("expected error for unknown location")
	}
}

func TestWorkbook_People(t *testing.T) {
	wb := openTestWorkbook(t, writeRoster(t))

	people, err := wb.People("Bern", "1a")
	if err != nil {
		t.Fatal(err)
	}

	wantIDs := []string{"1001", "1002", "1005"}
	wantRows := []int{3, 6, 2}
	if len(people) != len(wantIDs) {
		t.Fatalf("People() returned %d, want %d: %v", len(people), len(wantIDs), people)
	}
	for i, p := range people {
		if p.StudentID != wantIDs[i] || p.Row != wantRows[i] {
			t.Errorf("person %d = id %s row %d, want id %s row %d", i, p.StudentID, p.Row, wantIDs[i], wantRows[i])
		}
		if p.IsNew || p.ClassName != "1a" {
			t.Errorf("person %d: unexpected %+v", i, p)
		}
	}
}

func TestWorkbook_MarkPhotographed(t *testing.T) {
	path := writeRoster(t)
	wb := openTestWorkbook(t, path)

	if err := wb.MarkPhotographed("Bern", 3, true, "15.10.2026", ""); err != nil {
		t.Fatalf("mark photographed: %v", err)
	}
	if err := wb.MarkPhotographed("Bern", 2, false, "", "Krank"); err != nil {
		t.Fatalf("mark skipped: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	checks := map[string]string{
		"E3": PhotographedYes, "F3": "15.10.2026", "G3": "",
		"E2": PhotographedNo, "F2": "", "G2": "Krank",
	}
	for ref, want := range checks {
		got, err := f.GetCellValue("Bern", ref)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", ref, got, want)
		}
	}
}

func TestWorkbook_MarkPhotographedErrors(t *testing.T) {
	wb := openTestWorkbook(t, writeRoster(t))

	if err := wb.MarkPhotographed("Nowhere", 2, true, "x", ""); err == nil {
		t.Error("expected error for unknown location")
	}
	if err := wb.MarkPhotographed("Bern", 1, true, "x", ""); err == nil {
		t.Error("expected error for header row")
	}
}

func TestWorkbook_MarkPhotographedLockTimeout(t *testing.T) {
	path := writeRoster(t)
	wb := openTestWorkbook(t, path)
	wb.lockTimeout = 50 * time.Millisecond

	holder := newWriteLocker(path)
	if err := holder.acquire(time.Second); err != nil {
		t.Fatal(err)
	}
	if err := wb.MarkPhotographed("Bern", 3, true, "15.10.2026", ""); err == nil {
		t.Fatal("expected lock timeout")
	}
	holder.release()

	// a later save must not carry the change that timed out
	if err := wb.MarkPhotographed("Bern", 2, false, "", "Krank"); err != nil {
		t.Fatalf("mark after release: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	for ref, want := range map[string]string{"E3": "", "F3": "", "E2": PhotographedNo, "G2": "Krank"} {
		got, err := f.GetCellValue("Bern", ref)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", ref, got, want)
		}
	}
}

func TestWorkbook_OptionalStatusColumns(t *testing.T) {
	path := writeRoster(t)
	cols := DefaultColumns()
	cols.Date, cols.Reason = "", ""
	wb, err := OpenWorkbook(path, cols, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()

	if err := wb.MarkPhotographed("Bern", 3, true, "15.10.2026", ""); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if got, _ := f.GetCellValue("Bern", "F3"); got != "" {
		t.Errorf("F3 = %q, want untouched", got)
	}
	if got, _ := f.GetCellValue("Bern", "E3"); got != PhotographedYes {
		t.Errorf("E3 = %q, want %q", got, PhotographedYes)
	}
}
