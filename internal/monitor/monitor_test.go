package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rolltrackd/internal/counter"
	"rolltrackd/internal/ingest"
)

const logHeader = "Timestamp,Printer Name,Outcome Message\n"

func newTestMonitor(t *testing.T, dir string, ingestExisting bool) *Monitor {
	t.Helper()
	reader := ingest.NewReader(ingest.NewParser(""))
	agg := counter.NewAggregator()
	m, err := New(Options{Dir: dir, Extension: ".csv", IngestExisting: ingestExisting}, reader, agg)
	if err != nil {
		t.Fatalf("create monitor: %v", err)
	}
	return m
}

func waitForUpdate(t *testing.T, m *Monitor) Update {
	t.Helper()
	select {
	case u := <-m.Updates():
		return u
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for an update")
		return Update{}
	}
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append to %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
}

func TestNewRequiresDir(t *testing.T) {
	_, err := New(Options{}, ingest.NewReader(ingest.NewParser("")), counter.NewAggregator())
	if err == nil {
		t.Fatal("expected an error for a missing watch directory")
	}
}

func TestStartRejectsNonDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.csv")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := newTestMonitor(t, path, false)
	if err := m.Start(); err == nil {
		t.Error("expected an error watching a plain file")
		m.Stop()
	}
}

func TestMonitorPicksUpNewFile(t *testing.T) {
	dir := t.TempDir()
	m := newTestMonitor(t, dir, false)
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop()

	appendFile(t, filepath.Join(dir, "export.csv"), logHeader+
		"10:00:00,Printer_1,Pass (Label)\n"+
		"10:00:01,Printer_1,Fail (Label)\n")

	u := waitForUpdate(t, m)
	c := u.Counters["Printer_1"]
	if c.Pass != 1 || c.Fail != 1 {
		t.Errorf("expected {1 1}, got %+v", c)
	}
}

func TestMonitorAppendsAccumulate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.csv")

	m := newTestMonitor(t, dir, false)
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop()

	appendFile(t, path, logHeader+"10:00:00,Printer_1,Pass (Label)\n")
	u := waitForUpdate(t, m)
	if c := u.Counters["Printer_1"]; c.Pass != 1 {
		t.Fatalf("after first append: %+v", c)
	}

	appendFile(t, path, "10:00:01,Printer_1,Pass (Label)\n")

	// Coalesced notifications can publish intermediate snapshots; wait for
	// the cumulative total to arrive.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case u := <-m.Updates():
			if u.Counters["Printer_1"].Pass == 2 {
				return
			}
		case <-deadline:
			t.Fatal("never saw the cumulative total")
		}
	}
}

func TestMonitorIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	m := newTestMonitor(t, dir, false)
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop()

	appendFile(t, filepath.Join(dir, "notes.txt"), "Pass (Label)\n")
	appendFile(t, filepath.Join(dir, "export.csv"), logHeader+"10:00:00,Printer_1,Pass (Label)\n")

	u := waitForUpdate(t, m)
	if len(u.Counters) != 1 {
		t.Errorf("expected counters for one printer only, got %+v", u.Counters)
	}
}

func TestMonitorIngestsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	appendFile(t, filepath.Join(dir, "old.csv"), logHeader+
		"09:00:00,Printer_2,Pass (Label)\n"+
		"09:00:01,Printer_2,Pass (Label)\n")

	m := newTestMonitor(t, dir, true)
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop()

	u := waitForUpdate(t, m)
	if c := u.Counters["Printer_2"]; c.Pass != 2 {
		t.Errorf("expected the pre-existing file to be consumed, got %+v", c)
	}
}

func TestMonitorStartupIngestManyFiles(t *testing.T) {
	dir := t.TempDir()

	// Far more event-bearing files than the updates channel buffers; Start
	// must still return before a consumer attaches.
	const files = 24
	for i := 0; i < files; i++ {
		appendFile(t, filepath.Join(dir, fmt.Sprintf("export_%02d.csv", i)),
			logHeader+"10:00:00,Printer_1,Pass (Label)\n")
	}

	m := newTestMonitor(t, dir, true)
	started := make(chan error, 1)
	go func() { started <- m.Start() }()

	select {
	case err := <-started:
		if err != nil {
			t.Fatalf("start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return while pre-existing files awaited ingestion")
	}
	defer m.Stop()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case u := <-m.Updates():
			if u.Counters["Printer_1"].Pass == files {
				return
			}
		case <-deadline:
			t.Fatalf("never saw all %d pre-existing rows", files)
		}
	}
}

func TestMonitorStopClosesChannels(t *testing.T) {
	m := newTestMonitor(t, t.TempDir(), false)
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if _, ok := <-m.Updates(); ok {
		t.Error("updates channel should be closed")
	}
	if _, ok := <-m.Errors(); ok {
		t.Error("errors channel should be closed")
	}
}
