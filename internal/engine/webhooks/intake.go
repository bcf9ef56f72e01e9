// Package webhooks turns inbound provider deliveries into stored events,
// scheduled or canceled jobs, and sequence runs.
package webhooks

import (
	"context"
	"errors"
	"time"

	"funnel/internal/engine/jobs"
	"funnel/internal/engine/triggers"
	"funnel/internal/pkg/logger"
	"funnel/internal/platform/database"
	"funnel/internal/platform/metrics"
	"funnel/internal/platform/models"
	"funnel/internal/platform/repositories"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

type Config struct {
	// Secret is the shared HMAC key. Empty skips verification.
	Secret string
	// AbandonmentDelay is how long after checkout the abandonment check runs.
	AbandonmentDelay time.Duration
	// DedupeByProviderID drops deliveries whose provider id was already stored.
	DedupeByProviderID bool
}

// Delivery is one inbound webhook request.
type Delivery struct {
	Body      []byte
	Signature string
	// ProviderID is the delivery id from the transport, used when the body
	// carries none.
	ProviderID string
}

// Receipt describes what a delivery caused.
type Receipt struct {
	EventID       string `json:"event_id,omitempty"`
	EventType     string `json:"event_type"`
	Kind          Kind   `json:"kind,omitempty"`
	Duplicate     bool   `json:"duplicate,omitempty"`
	RunsCreated   int    `json:"runs_created"`
	JobsScheduled int    `json:"jobs_scheduled"`
	JobsCanceled  int64  `json:"jobs_canceled"`
}

type Intake struct {
	db      *database.DB
	cfg     Config
	metrics *metrics.Registry
	log     zerolog.Logger
	now     func() time.Time
}

func NewIntake(db *database.DB, cfg Config, m *metrics.Registry) *Intake {
	if cfg.AbandonmentDelay <= 0 {
		cfg.AbandonmentDelay = 60 * time.Minute
	}
	return &Intake{
		db:      db,
		cfg:     cfg,
		metrics: m,
		log:     logger.Component("webhook-intake"),
		now:     time.Now,
	}
}

// Receive authenticates, stores and applies one delivery. Every write it
// causes commits together or not at all.
func (in *Intake) Receive(ctx context.Context, d Delivery) (*Receipt, error) {
	if !Verify(in.cfg.Secret, d.Body, d.Signature) {
		in.metrics.Inc(metrics.Rejections, "reason", "invalid_signature")
		in.log.Warn().Int("body_bytes", len(d.Body)).Msg("rejected delivery with invalid signature")
		return nil, ErrInvalidSignature
	}

	c, err := Classify(d.Body)
	if err != nil {
		in.metrics.Inc(metrics.Rejections, "reason", "malformed_payload")
		in.log.Warn().Int("body_bytes", len(d.Body)).Msg("rejected malformed delivery")
		return nil, err
	}

	event := &models.WebhookEvent{
		ProviderID: c.ProviderEventID(),
		EventType:  c.EventType(),
		Payload:    d.Body,
	}
	if event.ProviderID == "" {
		event.ProviderID = d.ProviderID
	}
	if in.cfg.DedupeByProviderID && event.ProviderID != "" {
		event.DedupeKey = event.ProviderID
	}

	receipt := &Receipt{EventType: event.EventType}
	err = in.db.InTx(ctx, func(tx database.Executor) error {
		inserted, err := repositories.NewWebhookEventRepository(tx).Create(ctx, event)
		if err != nil {
			return err
		}
		if !inserted {
			receipt.Duplicate = true
			return nil
		}
		receipt.EventID = event.ID

		rec, ok := c.(Recognized)
		if !ok {
			return nil
		}
		receipt.Kind = rec.Kind
		return in.apply(ctx, tx, rec, event.ID, receipt)
	})
	if err != nil {
		in.metrics.Inc(metrics.Rejections, "reason", "storage")
		in.log.Error().Err(err).Str("event_type", event.EventType).Str("provider_id", event.ProviderID).Msg("failed to process delivery")
		return nil, err
	}

	in.observe(c, receipt)
	return receipt, nil
}

func (in *Intake) apply(ctx context.Context, tx database.Executor, rec Recognized, eventID string, receipt *Receipt) error {
	fire := func(t models.TriggerType, productID string) error {
		n, err := triggers.Fire(ctx, tx, triggers.Firing{Type: t, UserID: rec.UserID, ProductID: productID, Source: eventID})
		receipt.RunsCreated += n
		return err
	}

	switch rec.Kind {
	case KindCheckoutStarted:
		_, err := jobs.Schedule(ctx, tx,
			models.JobCheckAbandonment,
			jobs.AbandonmentKey(rec.UserID, rec.ProductID),
			in.now().Add(in.cfg.AbandonmentDelay),
			models.AbandonmentPayload{UserID: rec.UserID, ProductID: rec.ProductID, EventID: eventID},
		)
		if err != nil {
			return err
		}
		receipt.JobsScheduled++

	case KindMembershipActivated:
		return fire(models.TriggerWelcomeJoin, rec.ProductID)

	case KindMembershipDeactivated:
		return fire(models.TriggerWinBackCancel, "")

	case KindPaymentSucceeded:
		if err := fire(models.TriggerProductPurchase, rec.ProductID); err != nil {
			return err
		}
		if err := fire(models.TriggerUpsellPurchase, rec.ProductID); err != nil {
			return err
		}
		if rec.ProductID == "" {
			return nil
		}
		n, err := jobs.Cancel(ctx, tx, models.JobCheckAbandonment, jobs.AbandonmentKey(rec.UserID, rec.ProductID))
		if err != nil {
			return err
		}
		receipt.JobsCanceled = n
	}
	return nil
}

func (in *Intake) observe(c Classification, receipt *Receipt) {
	if receipt.Duplicate {
		in.metrics.Inc(metrics.Deliveries, "kind", "duplicate")
		in.log.Info().Str("provider_id", c.ProviderEventID()).Str("event_type", receipt.EventType).Msg("duplicate delivery ignored")
		return
	}

	switch v := c.(type) {
	case Recognized:
		in.metrics.Inc(metrics.Deliveries, "kind", string(v.Kind))
		in.metrics.Add(metrics.RunsCreated, "source", "webhook", float64(receipt.RunsCreated))
		in.metrics.Add(metrics.JobsScheduled, "job_type", models.JobCheckAbandonment, float64(receipt.JobsScheduled))
		in.metrics.Add(metrics.JobsCanceled, "job_type", models.JobCheckAbandonment, float64(receipt.JobsCanceled))
		in.log.Info().
			Str("event_id", receipt.EventID).
			Str("event_type", receipt.EventType).
			Str("user_id", v.UserID).
			Str("product_id", v.ProductID).
			Int("runs_created", receipt.RunsCreated).
			Int("jobs_scheduled", receipt.JobsScheduled).
			Int64("jobs_canceled", receipt.JobsCanceled).
			Msg("delivery processed")
	case Unrecognized:
		in.metrics.Inc(metrics.Deliveries, "kind", "unrecognized")
		in.log.Info().
			Str("event_id", receipt.EventID).
			Str("event_type", v.RawType).
			Str("reason", v.Reason).
			Msg("delivery stored without action")
	}
}
