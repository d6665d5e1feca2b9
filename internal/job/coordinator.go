// Package job coordinates the rolls belonging to a print job and routes
// printer counter updates to the roll currently running.
package job

import (
	"fmt"
	"sync"

	"rolltrackd/internal/counter"
	"rolltrackd/internal/logging"
	"rolltrackd/internal/metrics"
	"rolltrackd/internal/roll"
	"rolltrackd/internal/store"
)

// Store is the slice of the durable store the coordinator needs.
type Store interface {
	roll.ActionLogger
	UpdateJobCompletion(jobID int64, completed bool) error
}

// ErrRollRunning is returned when a start or resume would put a second
// roll of the same job into the running state. Rolls within a job execute
// sequentially; the printer's counters cannot be attributed to two rolls
// at once.
type ErrRollRunning struct {
	Running int
}

func (e *ErrRollRunning) Error() string {
	return fmt.Sprintf("job: roll %d is already running", e.Running)
}

// ErrJobCompleted is returned for operations on a job already marked
// complete.
type ErrJobCompleted struct {
	JobID int64
}

func (e *ErrJobCompleted) Error() string {
	return fmt.Sprintf("job %d is already completed", e.JobID)
}

// ErrNoSuchRoll is returned for a roll number outside 1..TotalRolls.
type ErrNoSuchRoll struct {
	JobID int64
	Roll  int
}

func (e *ErrNoSuchRoll) Error() string {
	return fmt.Sprintf("job %d has no roll %d", e.JobID, e.Roll)
}

// RollStatus is a point-in-time view of one roll for rendering.
type RollStatus struct {
	Number    int         `json:"number"`
	Goal      int         `json:"goal"`
	State     roll.State  `json:"state"`
	Progress  int         `json:"progress"`
	PassDelta int         `json:"pass_delta"`
	FailDelta int         `json:"fail_delta"`
	Notes     []roll.Note `json:"notes,omitempty"`
}

// Coordinator owns the rolls of one job for as long as the job is open.
// All access is serialized by a per-job lock so unrelated jobs never
// contend with each other.
type Coordinator struct {
	mu    sync.Mutex
	job   store.Job
	rolls []*roll.Roll
	st    Store
}

// TotalRolls computes how many rolls a job needs: quantity divided by
// labels per roll, rounded up.
func TotalRolls(quantity, labelsPerRoll int) int {
	if quantity <= 0 || labelsPerRoll <= 0 {
		return 0
	}
	return (quantity + labelsPerRoll - 1) / labelsPerRoll
}

// NewCoordinator materializes the rolls for a job, numbered 1..TotalRolls.
// Every roll's goal is the job's labels-per-roll figure, including the
// last one.
func NewCoordinator(j store.Job, st Store) *Coordinator {
	total := TotalRolls(j.Quantity, j.LabelsPerRoll)
	rolls := make([]*roll.Roll, total)
	for i := range rolls {
		rolls[i] = roll.New(j.ID, i+1, j.LabelsPerRoll, st)
	}
	return &Coordinator{job: j, rolls: rolls, st: st}
}

// Job returns the job this coordinator owns.
func (c *Coordinator) Job() store.Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.job
}

// TotalRolls returns the number of rolls in this job.
func (c *Coordinator) TotalRolls() int {
	return len(c.rolls)
}

// rollByNumber returns the roll with the given 1-based number.
func (c *Coordinator) rollByNumber(n int) (*roll.Roll, error) {
	if n < 1 || n > len(c.rolls) {
		return nil, &ErrNoSuchRoll{JobID: c.job.ID, Roll: n}
	}
	return c.rolls[n-1], nil
}

// runningRoll returns the roll currently running, or nil.
func (c *Coordinator) runningRoll() *roll.Roll {
	for _, r := range c.rolls {
		if r.State() == roll.StateRunning {
			return r
		}
	}
	return nil
}

// StartRoll starts roll n. Rejected when the job is complete or when
// another roll is already running.
func (c *Coordinator) StartRoll(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.job.Completed {
		return &ErrJobCompleted{JobID: c.job.ID}
	}
	if running := c.runningRoll(); running != nil {
		return &ErrRollRunning{Running: running.Number()}
	}

	r, err := c.rollByNumber(n)
	if err != nil {
		return err
	}
	return r.Start()
}

// PauseRoll pauses roll n.
func (c *Coordinator) PauseRoll(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.rollByNumber(n)
	if err != nil {
		return err
	}
	return r.Pause()
}

// ResumeRoll resumes roll n. Like StartRoll, it refuses to create a second
// running roll.
func (c *Coordinator) ResumeRoll(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if running := c.runningRoll(); running != nil {
		return &ErrRollRunning{Running: running.Number()}
	}

	r, err := c.rollByNumber(n)
	if err != nil {
		return err
	}
	return r.Resume()
}

// StopRoll stops roll n. Confirmation is the caller's responsibility.
func (c *Coordinator) StopRoll(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.rollByNumber(n)
	if err != nil {
		return err
	}
	return r.Stop()
}

// SubmitNote appends an operator note to roll n.
func (c *Coordinator) SubmitNote(n int, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.rollByNumber(n)
	if err != nil {
		return err
	}
	return r.SubmitNote(text)
}

// DiscardNote clears staged note input on roll n.
func (c *Coordinator) DiscardNote(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.rollByNumber(n)
	if err != nil {
		return err
	}
	r.DiscardNote()
	return nil
}

// RouteUpdate forwards a cumulative counter snapshot to the running roll,
// provided the update is for this job's printer. At most one roll is
// running at a time, so the attribution is unambiguous.
func (c *Coordinator) RouteUpdate(printer string, counts counter.Counts) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if printer != c.job.PrinterName {
		return
	}
	if r := c.runningRoll(); r != nil {
		r.UpdateProgress(counts)
	}
}

// CompleteJob marks the job complete in the durable store and records a
// job-level audit action. Irreversible; the caller confirms with the
// operator first.
func (c *Coordinator) CompleteJob() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.job.Completed {
		return &ErrJobCompleted{JobID: c.job.ID}
	}

	if err := c.st.UpdateJobCompletion(c.job.ID, true); err != nil {
		return fmt.Errorf("complete job %d: %w", c.job.ID, err)
	}
	c.job.Completed = true

	if err := c.st.LogRollAction(c.job.ID, 0, "job completed", "Job marked as complete"); err != nil {
		metrics.StoreWriteFailures.Inc()
		logging.Error("job completion not recorded in audit trail",
			"job_id", c.job.ID, "error", err)
	}

	return nil
}

// Rolls returns a snapshot of every roll's state for rendering.
func (c *Coordinator) Rolls() []RollStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]RollStatus, len(c.rolls))
	for i, r := range c.rolls {
		pass, fail := r.Deltas()
		out[i] = RollStatus{
			Number:    r.Number(),
			Goal:      r.Goal(),
			State:     r.State(),
			Progress:  r.Progress(),
			PassDelta: pass,
			FailDelta: fail,
			Notes:     r.Notes(),
		}
	}
	return out
}
