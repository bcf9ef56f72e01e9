// Package triggers resolves which sequence triggers an event satisfies and
// starts a run for each of them.
package triggers

import (
	"context"

	"funnel/internal/platform/database"
	"funnel/internal/platform/models"
	"funnel/internal/platform/repositories"
)

// Firing describes one attempt to start sequences for a user.
type Firing struct {
	Type      models.TriggerType
	UserID    string
	ProductID string
	// Source is the id of the webhook event or job that caused the firing.
	Source string
}

// Matches reports whether trigger applies to an event for productID. A
// trigger without a product scope matches everything; a scoped trigger
// never matches an event that carries no product.
func Matches(trigger *models.SequenceTrigger, productID string) bool {
	if trigger.ProductID == "" {
		return true
	}
	return productID != "" && trigger.ProductID == productID
}

// Fire creates one pending run per matching trigger using exec, which is
// normally the caller's transaction. It returns the number of runs created.
func Fire(ctx context.Context, exec database.Executor, f Firing) (int, error) {
	candidates, err := repositories.NewTriggerRepository(exec).ListByType(ctx, f.Type)
	if err != nil {
		return 0, err
	}

	runs := repositories.NewRunRepository(exec)
	created := 0
	for _, t := range candidates {
		if !Matches(t, f.ProductID) {
			continue
		}

		run := &models.SequenceRun{
			SequenceID: t.SequenceID,
			UserID:     f.UserID,
			Status:     models.RunPending,
			Metadata: map[string]interface{}{
				"trigger_id":   t.ID,
				"trigger_type": string(t.Type),
				"product_id":   f.ProductID,
				"source":       f.Source,
			},
		}
		if err := runs.Create(ctx, run); err != nil {
			return created, err
		}
		created++
	}

	return created, nil
}
