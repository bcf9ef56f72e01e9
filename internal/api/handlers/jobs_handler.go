package handlers

import (
	"net/http"

	"funnel/internal/engine/jobs"
	"funnel/internal/pkg/errors"
)

type JobsHandler struct {
	runner *jobs.Runner
}

func NewJobsHandler(runner *jobs.Runner) *JobsHandler {
	return &JobsHandler{runner: runner}
}

// Run executes one batch of due jobs. The request body is ignored.
func (h *JobsHandler) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.runner.RunDue(r.Context())
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "failed to run jobs", nil)
		return
	}
	errors.WriteJSON(w, http.StatusOK, report)
}
