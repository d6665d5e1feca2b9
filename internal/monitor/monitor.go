// Package monitor watches a directory of printer log exports and drives
// the ingestion pipeline.
//
// The monitor owns a single ingest goroutine: every create or write
// notification for a matching file triggers one incremental pass through
// the reader, and batches that produced countable events are folded into
// the aggregator and published as a cumulative snapshot. One goroutine
// means passes for the same path can never interleave, and duplicated or
// coalesced notifications collapse into harmless re-reads past the cursor.
package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"rolltrackd/internal/counter"
	"rolltrackd/internal/ingest"
	"rolltrackd/internal/logging"
	"rolltrackd/internal/metrics"
)

// Update carries the full cumulative snapshot published after a batch of
// newly ingested rows. Snapshots supersede each other, so a consumer that
// misses one only waits for the next.
type Update struct {
	Counters map[string]counter.Counts
}

// Monitor ties the file-system watcher to the incremental reader and the
// printer aggregator.
type Monitor struct {
	dir            string
	ext            string
	ingestExisting bool

	fsWatcher *fsnotify.Watcher
	reader    *ingest.Reader
	agg       *counter.Aggregator

	updates chan Update
	errors  chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// Options configure a Monitor.
type Options struct {
	// Dir is the directory to watch, non-recursively.
	Dir string

	// Extension filters files by extension, case-insensitively.
	Extension string

	// IngestExisting consumes files already present at Start.
	IngestExisting bool
}

// New creates a monitor over the given reader and aggregator.
func New(opts Options, reader *ingest.Reader, agg *counter.Aggregator) (*Monitor, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("monitor: watch directory is required")
	}
	ext := opts.Extension
	if ext == "" {
		ext = ".csv"
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Monitor{
		dir:            opts.Dir,
		ext:            strings.ToLower(ext),
		ingestExisting: opts.IngestExisting,
		fsWatcher:      fsWatcher,
		reader:         reader,
		agg:            agg,
		updates:        make(chan Update, 16),
		errors:         make(chan error, 10),
		done:           make(chan struct{}),
	}, nil
}

// Updates returns the channel of cumulative counter snapshots.
func (m *Monitor) Updates() <-chan Update {
	return m.updates
}

// Errors returns the channel of non-fatal ingestion errors.
func (m *Monitor) Errors() <-chan error {
	return m.errors
}

// Aggregator exposes the underlying counters for on-demand snapshots.
func (m *Monitor) Aggregator() *counter.Aggregator {
	return m.agg
}

// Start begins watching the directory.
func (m *Monitor) Start() error {
	absDir, err := filepath.Abs(m.dir)
	if err != nil {
		return err
	}
	m.dir = absDir

	info, err := os.Stat(absDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("monitor: %s is not a directory", absDir)
	}

	if err := m.fsWatcher.Add(absDir); err != nil {
		return err
	}

	var existing []string
	if m.ingestExisting {
		entries, err := os.ReadDir(absDir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(absDir, entry.Name())
			if m.matches(path) {
				existing = append(existing, path)
			}
		}
	}

	m.wg.Add(1)
	go m.eventLoop(existing)

	logging.Info("monitoring log directory", "dir", absDir, "extension", m.ext)
	return nil
}

// Stop drains in-flight work and shuts the monitor down.
func (m *Monitor) Stop() error {
	close(m.done)
	m.wg.Wait()
	close(m.updates)
	close(m.errors)
	return m.fsWatcher.Close()
}

// matches reports whether path passes the extension filter.
func (m *Monitor) matches(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == m.ext
}

// eventLoop ingests any pre-existing files, then handles fsnotify events.
// Both run on the single ingest goroutine: Start returns before any file is
// read, so a directory full of event-bearing files can never block startup
// on the updates channel.
func (m *Monitor) eventLoop(existing []string) {
	defer m.wg.Done()

	for _, path := range existing {
		select {
		case <-m.done:
			return
		default:
		}
		m.process(path)
	}

	for {
		select {
		case <-m.done:
			return

		case event, ok := <-m.fsWatcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !m.matches(event.Name) {
				continue
			}

			m.process(event.Name)

		case err, ok := <-m.fsWatcher.Errors:
			if !ok {
				return
			}
			m.reportError(err)
		}
	}
}

// process runs one incremental ingestion pass for path. Transient read
// failures leave the cursor untouched; the next notification retries. A
// batch with zero countable events advances the cursor but emits nothing.
func (m *Monitor) process(path string) {
	events, err := m.reader.Consume(path)
	if err != nil {
		logging.Debug("ingestion pass failed, awaiting retry", "path", path, "error", err)
		m.reportError(err)
		return
	}
	if len(events) == 0 {
		return
	}

	m.agg.Apply(events)
	snapshot := m.agg.Snapshot()
	metrics.SnapshotsEmitted.Inc()

	select {
	case m.updates <- Update{Counters: snapshot}:
	case <-m.done:
	}
}

func (m *Monitor) reportError(err error) {
	select {
	case m.errors <- err:
	default:
	}
}
