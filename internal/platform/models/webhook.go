package models

import "encoding/json"

// WebhookEvent is an inbound delivery exactly as received. Rows are never
// updated or deleted.
type WebhookEvent struct {
	ID         string          `json:"id"`
	ProviderID string          `json:"provider_id,omitempty"`
	DedupeKey  string          `json:"-"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt int64           `json:"received_at"`
}
