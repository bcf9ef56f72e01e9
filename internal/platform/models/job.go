package models

import "encoding/json"

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobCompleted JobStatus = "completed"
	JobCanceled  JobStatus = "canceled"
	// JobFailed is terminal: the job exhausted its attempts.
	JobFailed JobStatus = "failed"
)

const JobCheckAbandonment = "check_abandonment"

type Job struct {
	ID           string          `json:"id"`
	Type         string          `json:"job_type"`
	DedupKey     string          `json:"dedup_key"`
	ExecuteAfter int64           `json:"execute_after"`
	Status       JobStatus       `json:"status"`
	Payload      json.RawMessage `json:"payload"`
	Attempts     int             `json:"attempts"`
	LastError    string          `json:"last_error,omitempty"`
	CreatedAt    int64           `json:"created_at"`
	UpdatedAt    int64           `json:"updated_at"`
}

// AbandonmentPayload is the payload of a check_abandonment job.
type AbandonmentPayload struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	EventID   string `json:"event_id,omitempty"`
}
