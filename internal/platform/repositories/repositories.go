package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"funnel/internal/platform/database"
	"funnel/internal/platform/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// StoreError is the only error type repositories return for failed
// statements. Callers treat it as "store unavailable" for the current unit of
// work.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return &StoreError{Op: op, Err: err}
}

type SequenceRepository struct {
	db database.Executor
}

func NewSequenceRepository(db database.Executor) *SequenceRepository {
	return &SequenceRepository{db: db}
}

func (r *SequenceRepository) Create(ctx context.Context, seq *models.Sequence) error {
	if seq.ID == "" {
		seq.ID = uuid.New().String()
	}
	if seq.Status == "" {
		seq.Status = "draft"
	}
	now := time.Now().Unix()
	seq.CreatedAt = now
	seq.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sequences (id, company_id, name, category, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, seq.ID, seq.CompanyID, seq.Name, seq.Category, seq.Status, seq.CreatedAt, seq.UpdatedAt)
	return storeErr("create sequence", err)
}

func (r *SequenceRepository) GetByID(ctx context.Context, id string) (*models.Sequence, error) {
	seq := &models.Sequence{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, company_id, name, category, status, created_at, updated_at
		FROM sequences WHERE id = ?
	`, id).Scan(&seq.ID, &seq.CompanyID, &seq.Name, &seq.Category, &seq.Status, &seq.CreatedAt, &seq.UpdatedAt)
	if err != nil {
		return nil, storeErr("get sequence", err)
	}
	return seq, nil
}

func (r *SequenceRepository) ListByCompany(ctx context.Context, companyID string) ([]*models.Sequence, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, company_id, name, category, status, created_at, updated_at
		FROM sequences WHERE company_id = ?
		ORDER BY created_at DESC
	`, companyID)
	if err != nil {
		return nil, storeErr("list sequences", err)
	}
	defer rows.Close()

	sequences := []*models.Sequence{}
	for rows.Next() {
		var s models.Sequence
		if err := rows.Scan(&s.ID, &s.CompanyID, &s.Name, &s.Category, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, storeErr("scan sequence", err)
		}
		sequences = append(sequences, &s)
	}
	return sequences, storeErr("list sequences", rows.Err())
}
