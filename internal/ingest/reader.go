package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"rolltrackd/internal/logging"
	"rolltrackd/internal/metrics"
)

// fileCursor tracks how many data rows of one watched file have already
// been consumed. The count excludes the header row, is monotonically
// non-decreasing, and only resets when the file itself shrinks.
type fileCursor struct {
	mu   sync.Mutex
	rows int
}

// Reader performs incremental, replay-safe ingestion of append-only log
// files. One cursor exists per path; repeated or duplicated notifications
// for the same path are harmless because only rows beyond the cursor are
// ever parsed.
type Reader struct {
	parser *Parser

	mu      sync.Mutex
	cursors map[string]*fileCursor
}

// NewReader creates a reader that classifies rows with the given parser.
func NewReader(parser *Parser) *Reader {
	return &Reader{
		parser:  parser,
		cursors: make(map[string]*fileCursor),
	}
}

// cursor returns the cursor for path, creating it at zero on first sight.
// Creation and modification notifications both land here, so a brand-new
// file needs no special casing.
func (r *Reader) cursor(path string) *fileCursor {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.cursors[path]
	if !ok {
		cur = &fileCursor{}
		r.cursors[path] = cur
	}
	return cur
}

// RowsConsumed reports the current cursor position for path. Zero for
// paths that have never been consumed.
func (r *Reader) RowsConsumed(path string) int {
	r.mu.Lock()
	cur, ok := r.cursors[path]
	r.mu.Unlock()
	if !ok {
		return 0
	}

	cur.mu.Lock()
	defer cur.mu.Unlock()
	return cur.rows
}

// Consume reads all records currently in the file at path, skips the rows
// already consumed, and returns the countable events among the remainder.
// The cursor advances to the new total even when no countable events
// resulted, so malformed or unclassified rows are never reprocessed.
//
// Read failures are transient: the cursor is left unchanged and the error
// is returned so a later notification can retry. When the file holds fewer
// rows than the cursor has consumed, the file was truncated or replaced
// behind our back; the cursor resets to zero and everything is reprocessed
// rather than dropping rows.
func (r *Reader) Consume(path string) ([]LogEvent, error) {
	records, err := readRecords(path)
	if err != nil {
		metrics.TransientReadFailures.Inc()
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var header []string
	var data [][]string
	if len(records) > 0 {
		header = records[0]
		data = records[1:]
	}
	cols := resolveColumns(header)

	cur := r.cursor(path)
	cur.mu.Lock()
	defer cur.mu.Unlock()

	start := cur.rows
	if len(data) < start {
		logging.Warn("log file shrank, reprocessing from start",
			"path", path, "rows_consumed", start, "rows_present", len(data))
		metrics.ShrinkAnomalies.Inc()
		start = 0
	}

	var events []LogEvent
	for _, record := range data[start:] {
		if ev, ok := r.parser.Parse(cols, record); ok {
			events = append(events, ev)
		}
	}
	cur.rows = len(data)

	metrics.RowsIngested.Add(uint64(len(data) - start))
	metrics.ParseSkips.Add(uint64(len(data) - start - len(events)))

	return events, nil
}

// readRecords loads the file and parses every complete CSV record in it.
// The export software appends whole lines, but a notification can arrive
// mid-write; anything after the final newline is an unfinished row and is
// left for the next pass.
func readRecords(path string) ([][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if i := bytes.LastIndexByte(raw, '\n'); i >= 0 {
		raw = raw[:i+1]
	} else {
		// No complete line yet.
		raw = nil
	}

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	return records, nil
}
