package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"funnel/internal/platform/database"
	"funnel/internal/platform/models"

	"github.com/google/uuid"
)

type RunRepository struct {
	db database.Executor
}

func NewRunRepository(db database.Executor) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run. There is deliberately no uniqueness on
// (sequence_id, user_id): every qualifying event starts its own run.
func (r *RunRepository) Create(ctx context.Context, run *models.SequenceRun) error {
	if run.ID == "" {
		run.ID = "run_" + uuid.New().String()
	}
	if run.Status == "" {
		run.Status = models.RunPending
	}
	if run.StartedAt == 0 {
		run.StartedAt = time.Now().Unix()
	}

	var metadata sql.NullString
	if run.Metadata != nil {
		raw, err := json.Marshal(run.Metadata)
		if err != nil {
			return err
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sequence_runs (id, sequence_id, user_id, current_step_ref, status, started_at, completed_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.SequenceID, run.UserID, run.CurrentStepRef, string(run.Status), run.StartedAt, run.CompletedAt, metadata)
	return storeErr("create run", err)
}

func (r *RunRepository) ListBySequence(ctx context.Context, sequenceID string) ([]*models.SequenceRun, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sequence_id, user_id, current_step_ref, status, started_at, completed_at, metadata
		FROM sequence_runs WHERE sequence_id = ?
		ORDER BY started_at ASC, id ASC
	`, sequenceID)
	if err != nil {
		return nil, storeErr("list runs", err)
	}
	defer rows.Close()

	var runs []*models.SequenceRun
	for rows.Next() {
		var run models.SequenceRun
		var status string
		var stepRef, metadata sql.NullString
		var completedAt sql.NullInt64

		if err := rows.Scan(&run.ID, &run.SequenceID, &run.UserID, &stepRef, &status, &run.StartedAt, &completedAt, &metadata); err != nil {
			return nil, storeErr("scan run", err)
		}

		run.Status = models.RunStatus(status)
		if stepRef.Valid {
			v := stepRef.String
			run.CurrentStepRef = &v
		}
		if completedAt.Valid {
			v := completedAt.Int64
			run.CompletedAt = &v
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &run.Metadata); err != nil {
				return nil, storeErr("scan run", err)
			}
		}
		runs = append(runs, &run)
	}
	return runs, storeErr("list runs", rows.Err())
}

func (r *RunRepository) CountBySequence(ctx context.Context, sequenceID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sequence_runs WHERE sequence_id = ?`, sequenceID).Scan(&n)
	return n, storeErr("count runs", err)
}
