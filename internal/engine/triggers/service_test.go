package triggers

import (
	"context"
	"testing"

	"funnel/internal/platform/database/dbtest"
	"funnel/internal/platform/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestValidateTrigger(t *testing.T) {
	tests := []struct {
		name    string
		in      TriggerInput
		wantErr bool
	}{
		{"valid unscoped", TriggerInput{Type: models.TriggerWelcomeJoin}, false},
		{"valid with delay", TriggerInput{Type: models.TriggerCartAbandon1h, DelayMinutes: intPtr(60)}, false},
		{"missing type", TriggerInput{}, true},
		{"unknown type", TriggerInput{Type: "birthday"}, true},
		{"negative delay", TriggerInput{Type: models.TriggerCartAbandon1h, DelayMinutes: intPtr(-1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTrigger(&tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTrigger)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestService_PutTriggerCreateThenReplace(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	ctx := context.Background()
	seqID := dbtest.SeedSequence(t, db, "s1", "co_1")

	got, err := svc.GetTrigger(ctx, "co_1", seqID)
	require.NoError(t, err)
	assert.Nil(t, got)

	created, err := svc.PutTrigger(ctx, "co_1", seqID, TriggerInput{Type: models.TriggerWelcomeJoin})
	require.NoError(t, err)
	assert.Equal(t, models.TriggerWelcomeJoin, created.Type)

	replaced, err := svc.PutTrigger(ctx, "co_1", seqID, TriggerInput{Type: models.TriggerProductPurchase, ProductID: " p1 "})
	require.NoError(t, err)
	assert.Equal(t, created.ID, replaced.ID)
	assert.Equal(t, "p1", replaced.ProductID)

	got, err = svc.GetTrigger(ctx, "co_1", seqID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.TriggerProductPurchase, got.Type)
}

func TestService_Ownership(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	ctx := context.Background()
	seqID := dbtest.SeedSequence(t, db, "s1", "co_1")

	_, err := svc.PutTrigger(ctx, "co_2", seqID, TriggerInput{Type: models.TriggerWelcomeJoin})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetTrigger(ctx, "co_2", seqID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.PutTrigger(ctx, "co_1", "missing", TriggerInput{Type: models.TriggerWelcomeJoin})
	assert.ErrorIs(t, err, ErrSequenceNotFound)
}

func TestService_Sequences(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	ctx := context.Background()

	seq, err := svc.CreateSequence(ctx, "co_1", "Welcome flow", "welcome")
	require.NoError(t, err)
	assert.Equal(t, "draft", seq.Status)

	_, err = svc.CreateSequence(ctx, "co_1", "", "welcome")
	assert.ErrorIs(t, err, ErrInvalidSequence)

	_, err = svc.CreateSequence(ctx, "co_1", "Bad", "newsletter")
	assert.ErrorIs(t, err, ErrInvalidSequence)

	_, err = svc.CreateSequence(ctx, "co_2", "Other", "upsell")
	require.NoError(t, err)

	list, err := svc.ListSequences(ctx, "co_1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, seq.ID, list[0].ID)
}
