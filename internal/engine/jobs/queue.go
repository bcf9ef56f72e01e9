// Package jobs is the durable delayed-work queue and the runner that
// executes due jobs.
package jobs

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"funnel/internal/platform/database"
	"funnel/internal/platform/models"
	"funnel/internal/platform/repositories"
)

// AbandonmentKey identifies the pending abandonment check for one user and
// product.
func AbandonmentKey(userID, productID string) string {
	return userID + ":" + productID
}

// Schedule inserts a new pending job, first canceling any pending job with
// the same type and key so at most one stays pending per key. Pass a
// transaction to make the replacement atomic.
func Schedule(ctx context.Context, exec database.Executor, jobType, dedupKey string, executeAfter time.Time, payload interface{}) (*models.Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	repo := repositories.NewJobRepository(exec)
	if _, err := repo.CancelPending(ctx, jobType, dedupKey); err != nil {
		return nil, err
	}

	job := &models.Job{
		Type:         jobType,
		DedupKey:     dedupKey,
		ExecuteAfter: executeAfter.Unix(),
		Payload:      raw,
	}
	if err := repo.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Cancel moves every pending job of jobType with dedupKey to canceled and
// returns how many there were. Zero is not an error.
func Cancel(ctx context.Context, exec database.Executor, jobType, dedupKey string) (int64, error) {
	return repositories.NewJobRepository(exec).CancelPending(ctx, jobType, dedupKey)
}

// Due returns up to limit pending jobs with execute_after at or before asOf,
// oldest first. A limit of zero or less means no limit.
func Due(ctx context.Context, exec database.Executor, asOf time.Time, limit int) ([]*models.Job, error) {
	if limit <= 0 {
		limit = math.MaxInt32
	}
	return repositories.NewJobRepository(exec).Due(ctx, asOf.Unix(), limit)
}
