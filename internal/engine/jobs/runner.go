package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"funnel/internal/pkg/logger"
	"funnel/internal/platform/database"
	"funnel/internal/platform/metrics"
	"funnel/internal/platform/models"
	"funnel/internal/platform/repositories"

	"github.com/rs/zerolog"
)

var ErrUnknownJobType = errors.New("no handler for job type")

// Handler executes one claimed job inside the claiming transaction and
// returns the number of sequence runs it created. A returned error rolls
// the claim back.
type Handler func(ctx context.Context, exec database.Executor, job *models.Job) (int, error)

type Config struct {
	// BatchSize caps how many due jobs one invocation pulls.
	BatchSize int
	// MaxAttempts is how many failed executions move a job to failed.
	MaxAttempts int
}

func DefaultConfig() Config {
	return Config{BatchSize: 100, MaxAttempts: 5}
}

// Report summarises one RunDue invocation.
type Report struct {
	Processed   int `json:"processed"`
	Completed   int `json:"completed"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
	RunsCreated int `json:"runs_created"`
}

// Runner executes due jobs. Several runners may work the same store at once;
// each job is claimed with a conditional update before its handler runs.
type Runner struct {
	db       *database.DB
	cfg      Config
	handlers map[string]Handler
	metrics  *metrics.Registry
	log      zerolog.Logger
	now      func() time.Time
}

func NewRunner(db *database.DB, cfg Config, m *metrics.Registry) *Runner {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}

	r := &Runner{
		db:       db,
		cfg:      cfg,
		handlers: make(map[string]Handler),
		metrics:  m,
		log:      logger.Component("job-runner"),
		now:      time.Now,
	}
	r.Handle(models.JobCheckAbandonment, CheckAbandonment)
	return r
}

// Handle registers h for jobType, replacing any previous handler.
func (r *Runner) Handle(jobType string, h Handler) {
	r.handlers[jobType] = h
}

// RunDue executes one bounded batch of due jobs. Only a failure to list the
// batch is returned as an error; individual job failures are counted.
func (r *Runner) RunDue(ctx context.Context) (*Report, error) {
	due, err := Due(ctx, r.db, r.now(), r.cfg.BatchSize)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to list due jobs")
		return nil, err
	}

	report := &Report{Processed: len(due)}
	for _, job := range due {
		if ctx.Err() != nil {
			break
		}
		r.runOne(ctx, job, report)
	}

	if report.Processed > 0 {
		r.log.Info().
			Int("processed", report.Processed).
			Int("completed", report.Completed).
			Int("skipped", report.Skipped).
			Int("failed", report.Failed).
			Msg("job batch finished")
	}
	return report, nil
}

func (r *Runner) runOne(ctx context.Context, job *models.Job, report *Report) {
	var claimed bool
	var runs int

	err := r.db.InTx(ctx, func(tx database.Executor) error {
		ok, err := repositories.NewJobRepository(tx).CompleteIfPending(ctx, job.ID)
		if err != nil || !ok {
			return err
		}
		claimed = true

		h, found := r.handlers[job.Type]
		if !found {
			return fmt.Errorf("%w %q", ErrUnknownJobType, job.Type)
		}
		runs, err = h(ctx, tx, job)
		return err
	})

	switch {
	case err == nil && !claimed:
		report.Skipped++
		r.metrics.Inc(metrics.JobsSkipped, "", "")
		r.log.Debug().Str("job_id", job.ID).Msg("job no longer pending, skipped")

	case err == nil:
		report.Completed++
		report.RunsCreated += runs
		r.metrics.Inc(metrics.JobsCompleted, "job_type", job.Type)
		r.metrics.Add(metrics.RunsCreated, "source", "job", float64(runs))
		r.log.Info().
			Str("job_id", job.ID).
			Str("job_type", job.Type).
			Str("dedup_key", job.DedupKey).
			Int("runs_created", runs).
			Msg("job completed")

	default:
		report.Failed++
		r.recordFailure(ctx, job, err)
	}
}

func (r *Runner) recordFailure(ctx context.Context, job *models.Job, cause error) {
	r.metrics.Inc(metrics.JobsFailed, "job_type", job.Type)

	if err := repositories.NewJobRepository(r.db).RecordFailure(ctx, job.ID, cause.Error(), r.cfg.MaxAttempts); err != nil {
		r.log.Error().Err(err).Str("job_id", job.ID).AnErr("cause", cause).Msg("failed to record job failure")
		return
	}

	attempts := job.Attempts + 1
	event := r.log.Warn()
	msg := "job failed, will retry"
	if attempts >= r.cfg.MaxAttempts {
		event = r.log.Error()
		msg = "job failed permanently"
		r.metrics.Inc(metrics.JobsDeadLetters, "job_type", job.Type)
	}
	event.Err(cause).
		Str("job_id", job.ID).
		Str("job_type", job.Type).
		Int("attempts", attempts).
		Int("max_attempts", r.cfg.MaxAttempts).
		Msg(msg)
}
