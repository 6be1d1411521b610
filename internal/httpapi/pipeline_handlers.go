package httpapi

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/time/rate"

	"hiring-signals/internal/logging"
	"hiring-signals/internal/pipeline"
)

type PipelineHandler struct {
	Runner  *pipeline.Runner
	Limiter *rate.Limiter // nil disables throttling
	Logger  logging.Logger
}

// Status serves the runner's current snapshot: whether a run is in flight,
// the last run's timestamps and its full report.
func (h PipelineHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Runner.Status())
}

// Run triggers one pipeline run asynchronously. The response is 202 with
// the status snapshot; the caller follows progress via /pipeline/status or
// the SSE stream. A run already in flight answers 409, a trigger burst
// beyond the limiter 429.
func (h PipelineHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.Limiter != nil && !h.Limiter.Allow() {
		WriteError(w, r, http.StatusTooManyRequests, "rate_limited", "pipeline trigger rate exceeded; retry later")
		return
	}
	if h.Runner.Status().Running {
		WriteError(w, r, http.StatusConflict, "already_running", pipeline.ErrAlreadyRunning.Error())
		return
	}

	go func() {
		// Detached from the request: the run outlives the HTTP exchange.
		if _, err := h.Runner.Run(context.Background()); err != nil {
			if errors.Is(err, pipeline.ErrAlreadyRunning) {
				return // lost the race to another trigger; that run reports instead
			}
			h.Logger.WithError(err).Error("triggered pipeline run failed")
		}
	}()

	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true, "status": h.Runner.Status()})
}
