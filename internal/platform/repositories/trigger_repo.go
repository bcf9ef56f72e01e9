package repositories

import (
	"context"
	"database/sql"
	"time"

	"funnel/internal/platform/database"
	"funnel/internal/platform/models"

	"github.com/google/uuid"
)

type TriggerRepository struct {
	db database.Executor
}

func NewTriggerRepository(db database.Executor) *TriggerRepository {
	return &TriggerRepository{db: db}
}

// Upsert writes the single trigger of trigger.SequenceID, replacing the
// existing one if present. The stored row is read back into trigger.
func (r *TriggerRepository) Upsert(ctx context.Context, trigger *models.SequenceTrigger) error {
	now := time.Now().Unix()

	var delay sql.NullInt64
	if trigger.DelayMinutes != nil {
		delay = sql.NullInt64{Int64: int64(*trigger.DelayMinutes), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sequence_triggers (id, sequence_id, trigger_type, product_id, delay_minutes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (sequence_id) DO UPDATE SET
			trigger_type = excluded.trigger_type,
			product_id = excluded.product_id,
			delay_minutes = excluded.delay_minutes,
			updated_at = excluded.updated_at
	`, "trg_"+uuid.New().String(), trigger.SequenceID, string(trigger.Type), trigger.ProductID, delay, now, now)
	if err != nil {
		return storeErr("upsert trigger", err)
	}

	stored, err := r.GetBySequence(ctx, trigger.SequenceID)
	if err != nil {
		return err
	}
	*trigger = *stored
	return nil
}

func (r *TriggerRepository) GetBySequence(ctx context.Context, sequenceID string) (*models.SequenceTrigger, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, sequence_id, trigger_type, product_id, delay_minutes, created_at, updated_at
		FROM sequence_triggers WHERE sequence_id = ?
	`, sequenceID)
	t, err := scanTrigger(row)
	if err != nil {
		return nil, storeErr("get trigger", err)
	}
	return t, nil
}

// ListByType returns every trigger of the given type regardless of product scope.
func (r *TriggerRepository) ListByType(ctx context.Context, triggerType models.TriggerType) ([]*models.SequenceTrigger, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sequence_id, trigger_type, product_id, delay_minutes, created_at, updated_at
		FROM sequence_triggers WHERE trigger_type = ?
		ORDER BY created_at ASC, id ASC
	`, string(triggerType))
	if err != nil {
		return nil, storeErr("list triggers", err)
	}
	defer rows.Close()

	var triggers []*models.SequenceTrigger
	for rows.Next() {
		t, err := scanTrigger(rows)
		if err != nil {
			return nil, storeErr("scan trigger", err)
		}
		triggers = append(triggers, t)
	}
	return triggers, storeErr("list triggers", rows.Err())
}

func scanTrigger(s interface {
	Scan(dest ...interface{}) error
}) (*models.SequenceTrigger, error) {
	var t models.SequenceTrigger
	var triggerType string
	var delay sql.NullInt64

	if err := s.Scan(&t.ID, &t.SequenceID, &triggerType, &t.ProductID, &delay, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}

	t.Type = models.TriggerType(triggerType)
	if delay.Valid {
		v := int(delay.Int64)
		t.DelayMinutes = &v
	}
	return &t, nil
}
