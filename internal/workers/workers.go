// Package workers drives the job runner on a fixed cadence for deployments
// without an external scheduler.
package workers

import (
	"context"
	"time"

	"funnel/internal/engine/jobs"
	"funnel/internal/pkg/logger"
)

// JobRunner runs one batch of due jobs.
type JobRunner interface {
	RunDue(ctx context.Context) (*jobs.Report, error)
}

// RunJobs runs a batch immediately and then once per interval until ctx is
// canceled. Batches never overlap within one process; a failed batch is
// logged and the next tick tries again.
func RunJobs(ctx context.Context, runner JobRunner, interval time.Duration) {
	log := logger.Component("job-worker")
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("job worker started")
	for {
		if _, err := runner.RunDue(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("job batch failed")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("job worker stopped")
			return
		case <-ticker.C:
		}
	}
}
