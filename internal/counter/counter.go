// Package counter maintains cumulative pass/fail totals per printer.
//
// Counters cover the printer's entire history for the life of the process:
// they are never decremented and never reset, even between jobs sharing a
// printer. Roll-local progress is derived downstream by subtracting a
// baseline captured when the roll starts.
package counter

import (
	"sync"

	"rolltrackd/internal/ingest"
)

// Counts holds the lifetime totals for one printer.
type Counts struct {
	Pass int `json:"pass"`
	Fail int `json:"fail"`
}

// Aggregator accumulates label events into per-printer counters. Safe for
// concurrent use; a batch apply and a snapshot never interleave.
type Aggregator struct {
	mu     sync.Mutex
	counts map[string]Counts
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{counts: make(map[string]Counts)}
}

// Apply folds a batch of events into the counters, creating a printer's
// record on first sight. The whole batch is applied under one lock so no
// consumer observes a half-applied batch.
func (a *Aggregator) Apply(events []ingest.LogEvent) {
	if len(events) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, ev := range events {
		c := a.counts[ev.Printer]
		switch ev.Outcome {
		case ingest.OutcomePass:
			c.Pass++
		case ingest.OutcomeFail:
			c.Fail++
		}
		a.counts[ev.Printer] = c
	}
}

// Snapshot returns a consistent point-in-time copy of all counters.
func (a *Aggregator) Snapshot() map[string]Counts {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := make(map[string]Counts, len(a.counts))
	for printer, c := range a.counts {
		snap[printer] = c
	}
	return snap
}

// Printer returns the counters for one printer and whether it has been
// observed yet.
func (a *Aggregator) Printer(name string) (Counts, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, ok := a.counts[name]
	return c, ok
}
