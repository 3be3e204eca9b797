package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/marcus/portrait/internal/models"
)

func openTest(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal", "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpen_SchemaVersion(t *testing.T) {
	j := openTest(t)
	v, err := j.SchemaVersion()
	if err != nil || v != SchemaVersion {
		t.Errorf("SchemaVersion = %d, %v", v, err)
	}
}

func TestRecordAndEvents(t *testing.T) {
	j := openTest(t)
	at := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	events := []models.Event{
		{SessionID: "s1", Type: models.EventCommitted, Location: "Bern", ClassName: "5a", StudentID: "1001", Timestamp: at},
		{SessionID: "s1", Type: models.EventSkipped, Location: "Bern", ClassName: "5a", StudentID: "1002", Detail: "Krank", Timestamp: at.Add(time.Minute)},
		{SessionID: "s1", Type: models.EventCommitted, Location: "Thun", ClassName: "6b", StudentID: "2001", Timestamp: at.Add(2 * time.Minute)},
	}
	for _, e := range events {
		if err := j.Record(e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := j.Events(Filter{Location: "Bern"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}
	if got[1].Type != models.EventSkipped || got[1].Detail != "Krank" || !got[1].Timestamp.Equal(at.Add(time.Minute)) {
		t.Errorf("event = %+v", got[1])
	}

	limited, _ := j.Events(Filter{Limit: 1})
	if len(limited) != 1 || limited[0].StudentID != "1001" {
		t.Errorf("limited = %+v", limited)
	}
}

func TestSummary(t *testing.T) {
	j := openTest(t)
	for _, typ := range []models.EventType{models.EventCommitted, models.EventCommitted, models.EventDiscarded, models.EventSkipped} {
		j.Record(models.Event{SessionID: "s", Type: typ, Location: "Bern", ClassName: "5a"})
	}
	j.Record(models.Event{SessionID: "s", Type: models.EventArchived, Location: "Bern", ClassName: "4c"})

	sums, err := j.Summary(Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(sums) != 2 {
		t.Fatalf("summaries = %d", len(sums))
	}
	if sums[0].ClassName != "4c" || sums[1].ClassName != "5a" {
		t.Errorf("order = %s, %s", sums[0].ClassName, sums[1].ClassName)
	}
	s := sums[1]
	if s.Count(models.EventCommitted) != 2 || s.Count(models.EventDiscarded) != 1 || s.Count(models.EventSkipped) != 1 {
		t.Errorf("counts = %v", s.Counts)
	}
	if s.Last.IsZero() {
		t.Error("last timestamp not set")
	}
}
