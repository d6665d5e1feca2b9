package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleJob() Job {
	return Job{
		Customer:      "Acme",
		Ticket:        "T-1001",
		InlayType:     "U9",
		Quantity:      250,
		LabelsPerRoll: 100,
		PrinterName:   "Printer_1",
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "jobs.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open with missing parent dirs: %v", err)
	}
	s.Close()
}

func TestAddAndGetJob(t *testing.T) {
	s := openTestStore(t)

	id, err := s.AddJob(sampleJob())
	if err != nil {
		t.Fatalf("add job: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a non-zero job id")
	}

	j, err := s.GetJob(id)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if j.Customer != "Acme" || j.Ticket != "T-1001" || j.InlayType != "U9" {
		t.Errorf("unexpected job fields: %+v", j)
	}
	if j.Quantity != 250 || j.LabelsPerRoll != 100 {
		t.Errorf("unexpected quantities: %+v", j)
	}
	if j.Completed {
		t.Error("new job should not be completed")
	}
	if j.CreatedAt.IsZero() {
		t.Error("created_at should have been filled in")
	}
}

func TestGetJobNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetJob(42)
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestJobLists(t *testing.T) {
	s := openTestStore(t)

	first := sampleJob()
	first.CreatedAt = time.Now().Add(-time.Hour)
	id1, err := s.AddJob(first)
	if err != nil {
		t.Fatalf("add job: %v", err)
	}

	second := sampleJob()
	second.Ticket = "T-1002"
	id2, err := s.AddJob(second)
	if err != nil {
		t.Fatalf("add job: %v", err)
	}

	if err := s.UpdateJobCompletion(id2, true); err != nil {
		t.Fatalf("mark complete: %v", err)
	}

	active, err := s.GetActiveJobs()
	if err != nil {
		t.Fatalf("active jobs: %v", err)
	}
	if len(active) != 1 || active[0].ID != id1 {
		t.Errorf("unexpected active jobs: %+v", active)
	}

	completed, err := s.GetCompletedJobs()
	if err != nil {
		t.Fatalf("completed jobs: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != id2 {
		t.Errorf("unexpected completed jobs: %+v", completed)
	}
	if !completed[0].Completed {
		t.Error("completed flag should round-trip")
	}
}

func TestUpdateJob(t *testing.T) {
	s := openTestStore(t)

	id, err := s.AddJob(sampleJob())
	if err != nil {
		t.Fatalf("add job: %v", err)
	}

	edited := sampleJob()
	edited.Customer = "Globex"
	edited.Quantity = 500
	edited.PrinterName = "Printer_2"
	if err := s.UpdateJob(id, edited); err != nil {
		t.Fatalf("update job: %v", err)
	}

	j, err := s.GetJob(id)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if j.Customer != "Globex" || j.Quantity != 500 || j.PrinterName != "Printer_2" {
		t.Errorf("update did not stick: %+v", j)
	}

	if err := s.UpdateJob(999, edited); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound for missing id, got %v", err)
	}
}

func TestUpdateJobCompletionNotFound(t *testing.T) {
	s := openTestStore(t)

	if err := s.UpdateJobCompletion(999, true); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestRollActions(t *testing.T) {
	s := openTestStore(t)

	id, err := s.AddJob(sampleJob())
	if err != nil {
		t.Fatalf("add job: %v", err)
	}

	steps := []struct {
		roll   int
		action string
		note   string
	}{
		{1, "start", ""},
		{1, "pause note", "[2026-01-05 10:12:00] Paused at 37: core jam"},
		{1, "resume", ""},
		{1, "completed", "Roll complete"},
		{0, "job completed", "Job marked as complete"},
	}
	for _, st := range steps {
		if err := s.LogRollAction(id, st.roll, st.action, st.note); err != nil {
			t.Fatalf("log %q: %v", st.action, err)
		}
	}

	actions, err := s.GetRollActions(id)
	if err != nil {
		t.Fatalf("get roll actions: %v", err)
	}
	if len(actions) != len(steps) {
		t.Fatalf("expected %d actions, got %d", len(steps), len(actions))
	}
	for i, st := range steps {
		a := actions[i]
		if a.RollNumber != st.roll || a.Action != st.action || a.Note != st.note {
			t.Errorf("action %d: expected %+v, got %+v", i, st, a)
		}
		if a.Timestamp.IsZero() {
			t.Errorf("action %d: timestamp missing", i)
		}
	}
}

func TestRollActionsScopedToJob(t *testing.T) {
	s := openTestStore(t)

	id1, _ := s.AddJob(sampleJob())
	id2, _ := s.AddJob(sampleJob())
	if err := s.LogRollAction(id1, 1, "start", ""); err != nil {
		t.Fatalf("log action: %v", err)
	}

	actions, err := s.GetRollActions(id2)
	if err != nil {
		t.Fatalf("get roll actions: %v", err)
	}
	if len(actions) != 0 {
		t.Errorf("expected no actions for job %d, got %d", id2, len(actions))
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id, err := s.AddJob(sampleJob())
	if err != nil {
		t.Fatalf("add job: %v", err)
	}
	if err := s.LogRollAction(id, 1, "start", ""); err != nil {
		t.Fatalf("log action: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	j, err := s.GetJob(id)
	if err != nil {
		t.Fatalf("get job after reopen: %v", err)
	}
	if j.Ticket != "T-1001" {
		t.Errorf("job did not survive reopen: %+v", j)
	}
	actions, err := s.GetRollActions(id)
	if err != nil || len(actions) != 1 {
		t.Errorf("actions did not survive reopen: %v, %d", err, len(actions))
	}
}
