package counter

import (
	"os"
	"path/filepath"
	"testing"

	"rolltrackd/internal/ingest"
)

func TestApplyAccumulates(t *testing.T) {
	agg := NewAggregator()
	agg.Apply([]ingest.LogEvent{
		{Printer: "Printer_1", Outcome: ingest.OutcomePass},
		{Printer: "Printer_1", Outcome: ingest.OutcomeFail},
		{Printer: "Printer_2", Outcome: ingest.OutcomePass},
	})
	agg.Apply([]ingest.LogEvent{
		{Printer: "Printer_1", Outcome: ingest.OutcomePass},
	})

	c, ok := agg.Printer("Printer_1")
	if !ok {
		t.Fatal("Printer_1 should exist")
	}
	if c.Pass != 2 || c.Fail != 1 {
		t.Errorf("Printer_1: expected {2 1}, got %+v", c)
	}

	c, ok = agg.Printer("Printer_2")
	if !ok {
		t.Fatal("Printer_2 should exist")
	}
	if c.Pass != 1 || c.Fail != 0 {
		t.Errorf("Printer_2: expected {1 0}, got %+v", c)
	}
}

func TestPrinterUnknown(t *testing.T) {
	agg := NewAggregator()
	if _, ok := agg.Printer("Printer_9"); ok {
		t.Error("printers appear only once an event names them")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	agg := NewAggregator()
	agg.Apply([]ingest.LogEvent{{Printer: "Printer_1", Outcome: ingest.OutcomePass}})

	snap := agg.Snapshot()
	snap["Printer_1"] = Counts{Pass: 99, Fail: 99}
	snap["Printer_2"] = Counts{Pass: 1}

	c, _ := agg.Printer("Printer_1")
	if c.Pass != 1 {
		t.Errorf("mutating a snapshot must not affect the aggregator, got %+v", c)
	}
	if _, ok := agg.Printer("Printer_2"); ok {
		t.Error("mutating a snapshot must not add printers")
	}
}

func TestTotalsSumAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	fileA := filepath.Join(dir, "line_a.csv")
	fileB := filepath.Join(dir, "line_b.csv")
	header := "Timestamp,Printer Name,Outcome Message\n"

	write := func(path, content string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	reader := ingest.NewReader(ingest.NewParser(""))
	agg := NewAggregator()
	consume := func(path string) {
		t.Helper()
		events, err := reader.Consume(path)
		if err != nil {
			t.Fatalf("consume %s: %v", path, err)
		}
		agg.Apply(events)
	}

	// Two export files grow in interleaved steps, with one duplicate
	// notification thrown in; the totals must equal the sum of the rows
	// across both files regardless of order.
	write(fileA, header+"10:00:00,Printer_1,Pass (Label)\n")
	consume(fileA)

	write(fileB, header+
		"10:00:01,Printer_1,Fail (Label)\n"+
		"10:00:02,Printer_2,Pass (Label)\n")
	consume(fileB)

	write(fileA, header+
		"10:00:00,Printer_1,Pass (Label)\n"+
		"10:00:03,Printer_1,Pass (Label)\n")
	consume(fileA)
	consume(fileB)

	write(fileB, header+
		"10:00:01,Printer_1,Fail (Label)\n"+
		"10:00:02,Printer_2,Pass (Label)\n"+
		"10:00:04,Printer_2,Fail (Label)\n")
	consume(fileB)

	snap := agg.Snapshot()
	if snap["Printer_1"] != (Counts{Pass: 2, Fail: 1}) {
		t.Errorf("Printer_1: expected {2 1}, got %+v", snap["Printer_1"])
	}
	if snap["Printer_2"] != (Counts{Pass: 1, Fail: 1}) {
		t.Errorf("Printer_2: expected {1 1}, got %+v", snap["Printer_2"])
	}
}

func TestCountersNeverReset(t *testing.T) {
	agg := NewAggregator()
	agg.Apply([]ingest.LogEvent{
		{Printer: "Printer_1", Outcome: ingest.OutcomePass},
		{Printer: "Printer_1", Outcome: ingest.OutcomePass},
	})
	// Empty batches leave the totals alone.
	agg.Apply(nil)
	agg.Apply([]ingest.LogEvent{})

	c, _ := agg.Printer("Printer_1")
	if c.Pass != 2 {
		t.Errorf("expected pass total 2, got %d", c.Pass)
	}
}
