// handlers_jobs.go - Job CRUD and lifecycle handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"rolltrackd/internal/job"
	"rolltrackd/internal/store"
)

// jobRequest is the payload for creating or editing a job.
type jobRequest struct {
	Customer      string `json:"customer"`
	Ticket        string `json:"ticket"`
	InlayType     string `json:"inlay_type"`
	Quantity      int    `json:"quantity"`
	LabelsPerRoll int    `json:"labels_per_roll"`
	PrinterName   string `json:"printer_name"`
}

func (r *jobRequest) validate() error {
	if r.Customer == "" {
		return NewValidationError("customer")
	}
	if r.Ticket == "" {
		return NewValidationError("ticket")
	}
	if r.Quantity <= 0 {
		return NewValidationError("quantity")
	}
	if r.LabelsPerRoll <= 0 {
		return NewValidationError("labels_per_roll")
	}
	return nil
}

func (r *jobRequest) toJob() store.Job {
	printer := r.PrinterName
	if printer == "" {
		printer = "Printer_1"
	}
	return store.Job{
		Customer:      r.Customer,
		Ticket:        r.Ticket,
		InlayType:     r.InlayType,
		Quantity:      r.Quantity,
		LabelsPerRoll: r.LabelsPerRoll,
		PrinterName:   printer,
	}
}

// jobDetail is the full view of a job including roll state when open.
type jobDetail struct {
	Job        store.Job        `json:"job"`
	TotalRolls int              `json:"total_rolls"`
	Open       bool             `json:"open"`
	Rolls      []job.RollStatus `json:"rolls,omitempty"`
}

func (h *handlers) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"version": h.deps.Version,
	})
}

func (h *handlers) handleCounters(c echo.Context) error {
	return c.JSON(http.StatusOK, h.deps.Aggregator.Snapshot())
}

func (h *handlers) handleAddJob(c echo.Context) error {
	var req jobRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid job payload", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	id, err := h.deps.Store.AddJob(req.toJob())
	if err != nil {
		return NewInternalError("add job", err)
	}

	return c.JSON(http.StatusCreated, map[string]any{"id": id})
}

func (h *handlers) handleListJobs(c echo.Context) error {
	completed := c.QueryParam("completed") == "true"

	var (
		jobs []store.Job
		err  error
	)
	if completed {
		jobs, err = h.deps.Store.GetCompletedJobs()
	} else {
		jobs, err = h.deps.Store.GetActiveJobs()
	}
	if err != nil {
		return NewInternalError("list jobs", err)
	}

	if jobs == nil {
		jobs = []store.Job{}
	}
	return c.JSON(http.StatusOK, jobs)
}

func (h *handlers) handleGetJob(c echo.Context) error {
	id, err := jobID(c)
	if err != nil {
		return err
	}

	j, err := h.deps.Store.GetJob(id)
	if err != nil {
		return err
	}

	detail := jobDetail{
		Job:        *j,
		TotalRolls: job.TotalRolls(j.Quantity, j.LabelsPerRoll),
	}
	if coord, ok := h.deps.Manager.Get(id); ok {
		detail.Open = true
		detail.Rolls = coord.Rolls()
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *handlers) handleUpdateJob(c echo.Context) error {
	id, err := jobID(c)
	if err != nil {
		return err
	}

	var req jobRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid job payload", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	// Editing a job's size or printer invalidates any in-memory roll
	// tracking; the job must be reopened to pick the changes up.
	if _, open := h.deps.Manager.Get(id); open {
		h.deps.Manager.Close(id)
	}

	if err := h.deps.Store.UpdateJob(id, req.toJob()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) handleOpenJob(c echo.Context) error {
	id, err := jobID(c)
	if err != nil {
		return err
	}

	j, err := h.deps.Store.GetJob(id)
	if err != nil {
		return err
	}

	coord := h.deps.Manager.Open(*j)
	return c.JSON(http.StatusOK, jobDetail{
		Job:        coord.Job(),
		TotalRolls: coord.TotalRolls(),
		Open:       true,
		Rolls:      coord.Rolls(),
	})
}

func (h *handlers) handleCloseJob(c echo.Context) error {
	id, err := jobID(c)
	if err != nil {
		return err
	}

	h.deps.Manager.Close(id)
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) handleCompleteJob(c echo.Context) error {
	id, err := jobID(c)
	if err != nil {
		return err
	}

	coord, ok := h.deps.Manager.Get(id)
	if !ok {
		j, err := h.deps.Store.GetJob(id)
		if err != nil {
			return err
		}
		coord = h.deps.Manager.Open(*j)
		// Opened only to complete; do not leave it in the dispatch set.
		defer h.deps.Manager.Close(id)
	}

	if err := coord.CompleteJob(); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) handleJobActions(c echo.Context) error {
	id, err := jobID(c)
	if err != nil {
		return err
	}

	actions, err := h.deps.Store.GetRollActions(id)
	if err != nil {
		return NewInternalError("load roll actions", err)
	}
	if actions == nil {
		actions = []store.RollAction{}
	}
	return c.JSON(http.StatusOK, actions)
}

// jobID parses the :id route parameter.
func jobID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, NewBadRequestError("invalid job id", err)
	}
	return id, nil
}
