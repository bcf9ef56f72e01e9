package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"funnel/internal/engine/triggers"
	"funnel/internal/platform/database"
	"funnel/internal/platform/models"
)

// CheckAbandonment runs when the abandonment window of a checkout has
// elapsed without a purchase canceling the job. It starts every
// cart_abandon_1h sequence that matches the job's product.
func CheckAbandonment(ctx context.Context, exec database.Executor, job *models.Job) (int, error) {
	var p models.AbandonmentPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return 0, fmt.Errorf("decode abandonment payload: %w", err)
	}
	if p.UserID == "" || p.ProductID == "" {
		return 0, errors.New("abandonment payload needs user_id and product_id")
	}

	return triggers.Fire(ctx, exec, triggers.Firing{
		Type:      models.TriggerCartAbandon1h,
		UserID:    p.UserID,
		ProductID: p.ProductID,
		Source:    job.ID,
	})
}
