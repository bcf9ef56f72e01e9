package triggers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"funnel/internal/pkg/logger"
	"funnel/internal/platform/database"
	"funnel/internal/platform/models"
	"funnel/internal/platform/repositories"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidTrigger   = errors.New("invalid trigger")
	ErrInvalidSequence  = errors.New("invalid sequence")
	ErrSequenceNotFound = errors.New("sequence not found")
	// ErrForbidden means the sequence belongs to another company.
	ErrForbidden = errors.New("sequence belongs to another company")
)

// TriggerInput is the writable part of a trigger.
type TriggerInput struct {
	Type         models.TriggerType `json:"type"`
	ProductID    string             `json:"product_id,omitempty"`
	DelayMinutes *int               `json:"delay_minutes,omitempty"`
}

func ValidateTrigger(in *TriggerInput) error {
	if in.Type == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidTrigger)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTrigger, in.Type)
	}
	if in.DelayMinutes != nil && *in.DelayMinutes < 0 {
		return fmt.Errorf("%w: delay_minutes must not be negative", ErrInvalidTrigger)
	}
	return nil
}

// Service manages sequences and their triggers on behalf of a company.
type Service struct {
	db  *database.DB
	log zerolog.Logger
}

func NewService(db *database.DB) *Service {
	return &Service{db: db, log: logger.Component("triggers")}
}

func (s *Service) CreateSequence(ctx context.Context, companyID, name, category string) (*models.Sequence, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidSequence)
	}
	if !validCategory(category) {
		return nil, fmt.Errorf("%w: category must be one of %s", ErrInvalidSequence, strings.Join(models.SequenceCategories, ", "))
	}

	seq := &models.Sequence{CompanyID: companyID, Name: name, Category: category, Status: "draft"}
	if err := repositories.NewSequenceRepository(s.db).Create(ctx, seq); err != nil {
		return nil, err
	}
	s.log.Info().Str("sequence_id", seq.ID).Str("company_id", companyID).Msg("sequence created")
	return seq, nil
}

func (s *Service) ListSequences(ctx context.Context, companyID string) ([]*models.Sequence, error) {
	return repositories.NewSequenceRepository(s.db).ListByCompany(ctx, companyID)
}

// GetTrigger returns the sequence's trigger, or nil if none is configured.
func (s *Service) GetTrigger(ctx context.Context, companyID, sequenceID string) (*models.SequenceTrigger, error) {
	if err := s.authorize(ctx, s.db, companyID, sequenceID); err != nil {
		return nil, err
	}

	trigger, err := repositories.NewTriggerRepository(s.db).GetBySequence(ctx, sequenceID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	return trigger, err
}

// PutTrigger creates or replaces the single trigger of a sequence.
func (s *Service) PutTrigger(ctx context.Context, companyID, sequenceID string, in TriggerInput) (*models.SequenceTrigger, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	if err := ValidateTrigger(&in); err != nil {
		return nil, err
	}

	trigger := &models.SequenceTrigger{
		SequenceID:   sequenceID,
		Type:         in.Type,
		ProductID:    in.ProductID,
		DelayMinutes: in.DelayMinutes,
	}

	err := s.db.InTx(ctx, func(tx database.Executor) error {
		if err := s.authorize(ctx, tx, companyID, sequenceID); err != nil {
			return err
		}
		return repositories.NewTriggerRepository(tx).Upsert(ctx, trigger)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("sequence_id", sequenceID).
		Str("trigger_type", string(trigger.Type)).
		Str("product_id", trigger.ProductID).
		Msg("trigger saved")
	return trigger, nil
}

func (s *Service) authorize(ctx context.Context, exec database.Executor, companyID, sequenceID string) error {
	seq, err := repositories.NewSequenceRepository(exec).GetByID(ctx, sequenceID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrSequenceNotFound
	}
	if err != nil {
		return err
	}
	if seq.CompanyID != companyID {
		return ErrForbidden
	}
	return nil
}

func validCategory(category string) bool {
	for _, c := range models.SequenceCategories {
		if c == category {
			return true
		}
	}
	return false
}
