package repositories

import (
	"context"
	"errors"
	"testing"

	"funnel/internal/platform/database"
	"funnel/internal/platform/database/dbtest"
	"funnel/internal/platform/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookEventRepository_DuplicatesWithoutKeyAreStored(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewWebhookEventRepository(db)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		inserted, err := repo.Create(ctx, &models.WebhookEvent{
			ProviderID: "evt_provider_1",
			EventType:  "payment_succeeded",
			Payload:    []byte(`{"type":"payment_succeeded"}`),
		})
		require.NoError(t, err)
		assert.True(t, inserted)
	}

	n, err := repo.CountByType(ctx, "payment_succeeded")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWebhookEventRepository_DedupeKeyRejectsSecondInsert(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewWebhookEventRepository(db)
	ctx := context.Background()

	first := &models.WebhookEvent{ProviderID: "p1", DedupeKey: "p1", EventType: "x", Payload: []byte(`{}`)}
	second := &models.WebhookEvent{ProviderID: "p1", DedupeKey: "p1", EventType: "x", Payload: []byte(`{}`)}

	inserted, err := repo.Create(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Create(ctx, second)
	require.NoError(t, err)
	assert.False(t, inserted)

	stored, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "p1", stored.ProviderID)
	assert.JSONEq(t, `{}`, string(stored.Payload))
}

func TestWebhookEventRepository_StoreUnavailable(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("INSERT INTO webhook_events").WillReturnError(errors.New("connection refused"))

	repo := NewWebhookEventRepository(database.New(conn, database.DialectSQLite))
	_, err = repo.Create(context.Background(), &models.WebhookEvent{EventType: "x", Payload: []byte(`{}`)})

	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "record webhook event", storeErr.Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}
