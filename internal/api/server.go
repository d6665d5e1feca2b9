// Package api exposes rolltrackd state to the presentation layer over
// HTTP and WebSocket. All destructive confirmation (stop, complete) is the
// front end's responsibility; the API applies transitions as requested and
// rejects invalid ones.
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"rolltrackd/internal/counter"
	"rolltrackd/internal/job"
	"rolltrackd/internal/metrics"
	"rolltrackd/internal/store"
)

// Dependencies holds all handler dependencies.
type Dependencies struct {
	Store      *store.Store
	Manager    *job.Manager
	Aggregator *counter.Aggregator
	Hub        *Hub
	Version    string
}

// NewServer builds the Echo instance with all routes registered.
func NewServer(deps *Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpErrorHandler
	e.Use(middleware.Recover())

	h := &handlers{deps: deps}

	e.GET("/health", h.handleHealth)
	e.GET("/metrics", echo.WrapHandler(metrics.Default.Handler()))
	e.GET("/ws", h.handleWebSocket)

	g := e.Group("/api")
	g.GET("/counters", h.handleCounters)

	jobs := g.Group("/jobs")
	jobs.POST("", h.handleAddJob)
	jobs.GET("", h.handleListJobs)
	jobs.GET("/:id", h.handleGetJob)
	jobs.PUT("/:id", h.handleUpdateJob)
	jobs.POST("/:id/open", h.handleOpenJob)
	jobs.DELETE("/:id/open", h.handleCloseJob)
	jobs.POST("/:id/complete", h.handleCompleteJob)
	jobs.GET("/:id/actions", h.handleJobActions)

	rolls := jobs.Group("/:id/rolls/:num")
	rolls.POST("/start", h.handleRollTransition("start"))
	rolls.POST("/pause", h.handleRollTransition("pause"))
	rolls.POST("/resume", h.handleRollTransition("resume"))
	rolls.POST("/stop", h.handleRollTransition("stop"))
	rolls.POST("/note", h.handleSubmitNote)
	rolls.DELETE("/note", h.handleDiscardNote)

	return e
}

// handlers bundles the route implementations around shared dependencies.
type handlers struct {
	deps *Dependencies
}
