// Package roll implements the progress state machine for a single roll of
// label stock.
//
// A roll advances idle → running → (paused ⇄ running) → stopped or
// completed. Stopped and completed are terminal. Progress is derived from
// the printer's cumulative counters: when a roll starts, the first counter
// observation is captured as a baseline and subsequent observations are
// measured against it, because the counters span the printer's entire
// history and not just this roll.
package roll

import (
	"fmt"
	"strings"
	"time"

	"rolltrackd/internal/counter"
	"rolltrackd/internal/logging"
	"rolltrackd/internal/metrics"
)

// State is the lifecycle state of a roll.
type State string

// Roll states.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateStopped   State = "stopped"
	StateCompleted State = "completed"
)

// Action names recorded in the durable audit trail.
const (
	ActionStart     = "start"
	ActionResume    = "resume"
	ActionStop      = "stop"
	ActionCompleted = "completed"
	ActionPauseNote = "pause note"
)

// TransitionError reports an operation requested from a state that forbids
// it. The operation is rejected; the state is never silently repaired.
type TransitionError struct {
	Op    string
	State State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("roll: cannot %s from state %q", e.Op, e.State)
}

// ActionLogger records roll lifecycle actions durably. Write failures are
// surfaced but never block a state transition.
type ActionLogger interface {
	LogRollAction(jobID int64, rollNumber int, action, note string) error
}

// Note is one operator note submitted while the roll was paused.
type Note struct {
	Timestamp time.Time `json:"timestamp"`
	Progress  int       `json:"progress_at_time"`
	Text      string    `json:"text"`
}

// Roll tracks progress for one numbered roll of a job. Not safe for
// concurrent use on its own; the owning job coordinator serializes access.
type Roll struct {
	jobID  int64
	number int
	goal   int

	state State

	baselinePass int
	baselineFail int
	baselineSet  bool

	progress  int
	passDelta int
	failDelta int

	pendingNote string
	notes       []Note

	actions ActionLogger
}

// New creates an idle roll. The goal is the job's labels-per-roll figure,
// including the last roll of a job whose quantity is not an exact multiple;
// that roll's target can exceed the labels remaining, matching the
// long-standing behavior operators work around today.
func New(jobID int64, number, goal int, actions ActionLogger) *Roll {
	return &Roll{
		jobID:   jobID,
		number:  number,
		goal:    goal,
		state:   StateIdle,
		actions: actions,
	}
}

// Start moves the roll from idle to running. The baseline is cleared so the
// next counter observation establishes the roll's zero point.
func (r *Roll) Start() error {
	if r.state != StateIdle {
		return &TransitionError{Op: "start", State: r.state}
	}

	r.state = StateRunning
	r.baselineSet = false
	r.logAction(ActionStart, "")
	return nil
}

// Pause suspends a running roll and opens the note entry surface. No store
// action is recorded until a note is submitted or discarded.
func (r *Roll) Pause() error {
	if r.state != StateRunning {
		return &TransitionError{Op: "pause", State: r.state}
	}

	r.state = StatePaused
	return nil
}

// Resume returns a paused roll to running.
func (r *Roll) Resume() error {
	if r.state != StatePaused {
		return &TransitionError{Op: "resume", State: r.state}
	}

	r.state = StateRunning
	r.pendingNote = ""
	r.logAction(ActionResume, "")
	return nil
}

// Stop terminates the roll. Irreversible; further progress updates are
// ignored. The caller is responsible for confirming with the operator
// before invoking.
func (r *Roll) Stop() error {
	if r.state != StateRunning && r.state != StatePaused {
		return &TransitionError{Op: "stop", State: r.state}
	}

	r.state = StateStopped
	r.pendingNote = ""
	r.logAction(ActionStop, "")
	return nil
}

// UpdateProgress folds a cumulative counter observation into the roll.
// A no-op unless the roll is running. The first observation after a start
// only captures the baseline: a printer that has already passed thousands
// of labels must not make a fresh roll look complete.
func (r *Roll) UpdateProgress(c counter.Counts) {
	if r.state != StateRunning {
		return
	}

	if !r.baselineSet {
		r.baselinePass = c.Pass
		r.baselineFail = c.Fail
		r.baselineSet = true
		return
	}

	r.passDelta = c.Pass - r.baselinePass
	r.failDelta = c.Fail - r.baselineFail
	r.progress = min(r.passDelta, r.goal)

	if r.progress >= r.goal {
		r.state = StateCompleted
		r.pendingNote = ""
		r.logAction(ActionCompleted, "Roll complete")
	}
}

// SetPendingNote stages note text while the roll is paused.
func (r *Roll) SetPendingNote(text string) error {
	if r.state != StatePaused {
		return &TransitionError{Op: "enter note", State: r.state}
	}
	r.pendingNote = text
	return nil
}

// SubmitNote appends an operator note. Valid only while paused and when
// the text is non-empty after trimming. The note records the progress at
// the moment of submission and is logged durably.
func (r *Roll) SubmitNote(text string) error {
	if r.state != StatePaused {
		return &TransitionError{Op: "submit note", State: r.state}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("roll: note text is empty")
	}

	note := Note{
		Timestamp: time.Now(),
		Progress:  r.progress,
		Text:      text,
	}
	r.notes = append(r.notes, note)
	r.pendingNote = ""

	full := fmt.Sprintf("[%s] Paused at %d: %s",
		note.Timestamp.Format("2006-01-02 15:04:05"), note.Progress, note.Text)
	r.logAction(ActionPauseNote, full)
	return nil
}

// DiscardNote clears any staged note input without appending anything.
func (r *Roll) DiscardNote() {
	r.pendingNote = ""
}

// logAction records an action in the durable store. A failed write leaves
// a gap in the audit trail but the in-memory transition stands.
func (r *Roll) logAction(action, note string) {
	if r.actions == nil {
		return
	}
	if err := r.actions.LogRollAction(r.jobID, r.number, action, note); err != nil {
		metrics.StoreWriteFailures.Inc()
		logging.Error("roll action not recorded",
			"job_id", r.jobID, "roll", r.number, "action", action, "error", err)
	}
}

// Number returns the 1-based roll number.
func (r *Roll) Number() int { return r.number }

// Goal returns the labels goal for this roll.
func (r *Roll) Goal() int { return r.goal }

// State returns the current lifecycle state.
func (r *Roll) State() State { return r.state }

// Progress returns labels completed toward the goal, clamped to the goal.
func (r *Roll) Progress() int { return r.progress }

// Deltas returns the pass and fail counts attributed to this roll since
// its baseline was captured.
func (r *Roll) Deltas() (pass, fail int) { return r.passDelta, r.failDelta }

// PendingNote returns staged note text, if any.
func (r *Roll) PendingNote() string { return r.pendingNote }

// Notes returns a copy of the submitted notes in order.
func (r *Roll) Notes() []Note {
	out := make([]Note, len(r.notes))
	copy(out, r.notes)
	return out
}
