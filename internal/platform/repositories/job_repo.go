package repositories

import (
	"context"
	"database/sql"
	"time"

	"funnel/internal/platform/database"
	"funnel/internal/platform/models"

	"github.com/google/uuid"
)

type JobRepository struct {
	db database.Executor
}

func NewJobRepository(db database.Executor) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, job_type, dedup_key, execute_after, status, payload, attempts, last_error, created_at, updated_at`

func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		job.ID = "job_" + uuid.New().String()
	}
	now := time.Now().Unix()
	job.Status = models.JobPending
	job.CreatedAt = now
	job.UpdatedAt = now
	if len(job.Payload) == 0 {
		job.Payload = []byte("{}")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (id, job_type, dedup_key, execute_after, status, payload, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, job.ID, job.Type, job.DedupKey, job.ExecuteAfter, string(job.Status), string(job.Payload), job.CreatedAt, job.UpdatedAt)
	return storeErr("create job", err)
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		return nil, storeErr("get job", err)
	}
	return job, nil
}

// CancelPending moves every pending job with the given type and key to
// canceled and returns how many rows changed.
func (r *JobRepository) CancelPending(ctx context.Context, jobType, dedupKey string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, updated_at = ?
		WHERE job_type = ? AND dedup_key = ? AND status = ?
	`, string(models.JobCanceled), time.Now().Unix(), jobType, dedupKey, string(models.JobPending))
	if err != nil {
		return 0, storeErr("cancel jobs", err)
	}
	n, err := res.RowsAffected()
	return n, storeErr("cancel jobs", err)
}

// Due lists pending jobs whose execute_after is at or before asOf, oldest first.
func (r *JobRepository) Due(ctx context.Context, asOf int64, limit int) ([]*models.Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status = ? AND execute_after <= ?
		ORDER BY execute_after ASC, created_at ASC, id ASC
		LIMIT ?
	`, string(models.JobPending), asOf, limit)
	if err != nil {
		return nil, storeErr("due jobs", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, storeErr("scan job", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, storeErr("due jobs", rows.Err())
}

// CompleteIfPending is the claim: it succeeds for exactly one caller and
// only while the job is still pending.
func (r *JobRepository) CompleteIfPending(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(models.JobCompleted), time.Now().Unix(), id, string(models.JobPending))
	if err != nil {
		return false, storeErr("complete job", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("complete job", err)
	}
	return n == 1, nil
}

// RecordFailure counts a failed attempt on a still pending job and moves it
// to failed once maxAttempts is reached.
func (r *JobRepository) RecordFailure(ctx context.Context, id, lastError string, maxAttempts int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET
			attempts = attempts + 1,
			last_error = ?,
			status = CASE WHEN attempts + 1 >= ? THEN ? ELSE status END,
			updated_at = ?
		WHERE id = ? AND status = ?
	`, lastError, maxAttempts, string(models.JobFailed), time.Now().Unix(), id, string(models.JobPending))
	return storeErr("record job failure", err)
}

func (r *JobRepository) ListByKey(ctx context.Context, jobType, dedupKey string) ([]*models.Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs WHERE job_type = ? AND dedup_key = ?
		ORDER BY created_at ASC, id ASC
	`, jobType, dedupKey)
	if err != nil {
		return nil, storeErr("list jobs", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, storeErr("scan job", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, storeErr("list jobs", rows.Err())
}

func scanJob(s interface {
	Scan(dest ...interface{}) error
}) (*models.Job, error) {
	var job models.Job
	var status, payload string
	var lastError sql.NullString

	err := s.Scan(
		&job.ID,
		&job.Type,
		&job.DedupKey,
		&job.ExecuteAfter,
		&status,
		&payload,
		&job.Attempts,
		&lastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = models.JobStatus(status)
	job.Payload = []byte(payload)
	job.LastError = lastError.String
	return &job, nil
}
