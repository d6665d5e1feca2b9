package job

import (
	"sync"

	"rolltrackd/internal/counter"
	"rolltrackd/internal/metrics"
	"rolltrackd/internal/store"
)

// Manager holds the coordinators for every open job and fans printer
// counter snapshots out to them. Coordinators are created when a job is
// opened for tracking and discarded when it is closed; their lifecycle
// events live on in the durable audit trail either way.
type Manager struct {
	mu   sync.RWMutex
	st   Store
	jobs map[int64]*Coordinator
}

// NewManager creates an empty manager backed by the given store.
func NewManager(st Store) *Manager {
	return &Manager{
		st:   st,
		jobs: make(map[int64]*Coordinator),
	}
}

// Open returns the coordinator for a job, creating it on first open.
func (m *Manager) Open(j store.Job) *Coordinator {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.jobs[j.ID]; ok {
		return c
	}

	c := NewCoordinator(j, m.st)
	m.jobs[j.ID] = c
	metrics.OpenJobs.Set(int64(len(m.jobs)))
	return c
}

// Get returns the coordinator for an open job.
func (m *Manager) Get(jobID int64) (*Coordinator, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.jobs[jobID]
	return c, ok
}

// Close discards the coordinator for a job, releasing its in-memory roll
// state.
func (m *Manager) Close(jobID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.jobs, jobID)
	metrics.OpenJobs.Set(int64(len(m.jobs)))
}

// Dispatch routes a cumulative counter snapshot to every open job. Each
// coordinator filters on its own printer, and each holds its own lock, so
// updates for unrelated jobs never serialize on one another.
func (m *Manager) Dispatch(snapshot map[string]counter.Counts) {
	m.mu.RLock()
	coordinators := make([]*Coordinator, 0, len(m.jobs))
	for _, c := range m.jobs {
		coordinators = append(coordinators, c)
	}
	m.mu.RUnlock()

	for _, c := range coordinators {
		printer := c.Job().PrinterName
		if counts, ok := snapshot[printer]; ok {
			c.RouteUpdate(printer, counts)
		}
	}
}
