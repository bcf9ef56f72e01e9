package repositories

import (
	"context"
	"database/sql"
	"time"

	"funnel/internal/platform/database"
	"funnel/internal/platform/models"

	"github.com/google/uuid"
)

type WebhookEventRepository struct {
	db database.Executor
}

func NewWebhookEventRepository(db database.Executor) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Create appends the event. When event.DedupeKey is set and a row with the
// same key already exists nothing is written and inserted is false.
func (r *WebhookEventRepository) Create(ctx context.Context, event *models.WebhookEvent) (inserted bool, err error) {
	if event.ID == "" {
		event.ID = "evt_" + uuid.New().String()
	}
	if event.ReceivedAt == 0 {
		event.ReceivedAt = time.Now().Unix()
	}

	var providerID, dedupeKey sql.NullString
	if event.ProviderID != "" {
		providerID = sql.NullString{String: event.ProviderID, Valid: true}
	}
	if event.DedupeKey != "" {
		dedupeKey = sql.NullString{String: event.DedupeKey, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_events (id, provider_id, dedupe_key, event_type, payload, received_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (dedupe_key) DO NOTHING
	`, event.ID, providerID, dedupeKey, event.EventType, string(event.Payload), event.ReceivedAt)
	if err != nil {
		return false, storeErr("record webhook event", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("record webhook event", err)
	}
	return n == 1, nil
}

func (r *WebhookEventRepository) GetByID(ctx context.Context, id string) (*models.WebhookEvent, error) {
	var e models.WebhookEvent
	var providerID, dedupeKey sql.NullString
	var payload string

	err := r.db.QueryRowContext(ctx, `
		SELECT id, provider_id, dedupe_key, event_type, payload, received_at
		FROM webhook_events WHERE id = ?
	`, id).Scan(&e.ID, &providerID, &dedupeKey, &e.EventType, &payload, &e.ReceivedAt)
	if err != nil {
		return nil, storeErr("get webhook event", err)
	}

	e.ProviderID = providerID.String
	e.DedupeKey = dedupeKey.String
	e.Payload = []byte(payload)
	return &e, nil
}

func (r *WebhookEventRepository) CountByType(ctx context.Context, eventType string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM webhook_events WHERE event_type = ?`, eventType).Scan(&n)
	return n, storeErr("count webhook events", err)
}
