// Package ingest reads newly appended rows from printer log exports and
// turns them into typed label events.
//
// The encoding software appends one CSV row per printed label. Each row
// carries an outcome message and the name of the printer that produced it.
// Only two outcome values are countable; everything else is consumed
// without contributing to any counter.
package ingest

import "strings"

// Recognized outcome sentinels, matched exactly after trimming.
const (
	outcomePassLabel = "Pass (Label)"
	outcomeFailLabel = "Fail (Label)"
)

// Column headers expected in the log export.
const (
	outcomeHeader = "Outcome Message"
	printerHeader = "Printer Name"
)

// DefaultPrinter is used when a row has no printer name.
const DefaultPrinter = "Printer_1"

// Outcome classifies a single label row.
type Outcome int

const (
	// OutcomePass is a successfully encoded label.
	OutcomePass Outcome = iota
	// OutcomeFail is a label the printer voided.
	OutcomeFail
)

// LogEvent is one countable label row. Produced transiently per row and
// never persisted.
type LogEvent struct {
	Printer string
	Outcome Outcome
}

// columns maps the fields we care about to their positions in a file's
// header row. A value of -1 means the column is absent.
type columns struct {
	outcome int
	printer int
}

func resolveColumns(header []string) columns {
	cols := columns{outcome: -1, printer: -1}
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case outcomeHeader:
			cols.outcome = i
		case printerHeader:
			cols.printer = i
		}
	}
	return cols
}

// Parser converts raw CSV records into LogEvents.
type Parser struct {
	fallback string
}

// NewParser creates a parser. An empty fallback selects DefaultPrinter.
func NewParser(fallbackPrinter string) *Parser {
	if fallbackPrinter == "" {
		fallbackPrinter = DefaultPrinter
	}
	return &Parser{fallback: fallbackPrinter}
}

// Parse classifies one record. The second return value is false when the
// row contributes no counter increment: a missing or blank outcome field,
// or an outcome that matches neither sentinel. Such rows are still
// consumed by the reader and advance the cursor.
func (p *Parser) Parse(cols columns, record []string) (LogEvent, bool) {
	if cols.outcome < 0 || cols.outcome >= len(record) {
		return LogEvent{}, false
	}

	printer := p.fallback
	if cols.printer >= 0 && cols.printer < len(record) {
		if name := strings.TrimSpace(record[cols.printer]); name != "" {
			printer = name
		}
	}

	switch strings.TrimSpace(record[cols.outcome]) {
	case outcomePassLabel:
		return LogEvent{Printer: printer, Outcome: OutcomePass}, true
	case outcomeFailLabel:
		return LogEvent{Printer: printer, Outcome: OutcomeFail}, true
	default:
		return LogEvent{}, false
	}
}
