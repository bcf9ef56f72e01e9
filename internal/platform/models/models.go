package models

type TriggerType string

const (
	TriggerWelcomeJoin     TriggerType = "welcome_join"
	TriggerCartAbandon1h   TriggerType = "cart_abandon_1h"
	TriggerProductPurchase TriggerType = "product_purchase"
	TriggerUpsellPurchase  TriggerType = "upsell_purchase"
	TriggerWinBackCancel   TriggerType = "win_back_cancel"
)

func (t TriggerType) Valid() bool {
	switch t {
	case TriggerWelcomeJoin, TriggerCartAbandon1h, TriggerProductPurchase, TriggerUpsellPurchase, TriggerWinBackCancel:
		return true
	}
	return false
}

type Sequence struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
	Category  string `json:"category"` // welcome, cart_abandonment, product_purchase, upsell, win_back
	Status    string `json:"status"`   // draft, active, paused
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

var SequenceCategories = []string{"welcome", "cart_abandonment", "product_purchase", "upsell", "win_back"}

// SequenceTrigger starts its sequence when a matching platform event arrives.
// An empty ProductID applies to every product.
type SequenceTrigger struct {
	ID           string      `json:"id"`
	SequenceID   string      `json:"sequence_id"`
	Type         TriggerType `json:"type"`
	ProductID    string      `json:"product_id,omitempty"`
	DelayMinutes *int        `json:"delay_minutes,omitempty"`
	CreatedAt    int64       `json:"created_at"`
	UpdatedAt    int64       `json:"updated_at"`
}

type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunPaused    RunStatus = "paused"
)

type SequenceRun struct {
	ID             string                 `json:"id"`
	SequenceID     string                 `json:"sequence_id"`
	UserID         string                 `json:"user_id"`
	CurrentStepRef *string                `json:"current_step_ref,omitempty"`
	Status         RunStatus              `json:"status"`
	StartedAt      int64                  `json:"started_at"`
	CompletedAt    *int64                 `json:"completed_at,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"` // JSON in DB
}
