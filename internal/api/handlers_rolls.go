// handlers_rolls.go - Roll state machine handlers
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"rolltrackd/internal/job"
)

// noteRequest is the payload for submitting a pause note.
type noteRequest struct {
	Text string `json:"text"`
}

// handleRollTransition applies one of the confirmation-gated transitions.
// The front end confirms stop with the operator before calling; this
// handler only enforces state legality.
func (h *handlers) handleRollTransition(op string) echo.HandlerFunc {
	return func(c echo.Context) error {
		coord, num, err := h.openRoll(c)
		if err != nil {
			return err
		}

		switch op {
		case "start":
			err = coord.StartRoll(num)
		case "pause":
			err = coord.PauseRoll(num)
		case "resume":
			err = coord.ResumeRoll(num)
		case "stop":
			err = coord.StopRoll(num)
		default:
			return NewInternalError(fmt.Sprintf("unknown transition %q", op), nil)
		}
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, h.rollStatus(coord, num))
	}
}

func (h *handlers) handleSubmitNote(c echo.Context) error {
	coord, num, err := h.openRoll(c)
	if err != nil {
		return err
	}

	var req noteRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid note payload", err)
	}
	if err := coord.SubmitNote(num, req.Text); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, h.rollStatus(coord, num))
}

func (h *handlers) handleDiscardNote(c echo.Context) error {
	coord, num, err := h.openRoll(c)
	if err != nil {
		return err
	}

	if err := coord.DiscardNote(num); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// openRoll resolves the coordinator and roll number from the route. The
// job must already be open: roll state only exists while the detail view
// is open.
func (h *handlers) openRoll(c echo.Context) (*job.Coordinator, int, error) {
	id, err := jobID(c)
	if err != nil {
		return nil, 0, err
	}

	coord, ok := h.deps.Manager.Get(id)
	if !ok {
		return nil, 0, NewNotFoundError("open job", c.Param("id"))
	}

	num, err := strconv.Atoi(c.Param("num"))
	if err != nil || num < 1 {
		return nil, 0, NewBadRequestError("invalid roll number", err)
	}

	return coord, num, nil
}

// rollStatus returns the fresh status of a single roll after a mutation.
func (h *handlers) rollStatus(coord *job.Coordinator, num int) job.RollStatus {
	rolls := coord.Rolls()
	return rolls[num-1]
}
