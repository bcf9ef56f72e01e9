package jobs

import (
	"context"
	"testing"
	"time"

	"funnel/internal/platform/database/dbtest"
	"funnel/internal/platform/models"
	"funnel/internal/platform/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbandonmentKey(t *testing.T) {
	assert.Equal(t, "u1:p1", AbandonmentKey("u1", "p1"))
}

func TestSchedule_ReplacesPendingJobForSameKey(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	at := time.Now().Add(time.Hour)

	first, err := Schedule(ctx, db, models.JobCheckAbandonment, "u1:p1", at, models.AbandonmentPayload{UserID: "u1", ProductID: "p1"})
	require.NoError(t, err)
	second, err := Schedule(ctx, db, models.JobCheckAbandonment, "u1:p1", at.Add(time.Minute), models.AbandonmentPayload{UserID: "u1", ProductID: "p1"})
	require.NoError(t, err)

	repo := repositories.NewJobRepository(db)
	list, err := repo.ListByKey(ctx, models.JobCheckAbandonment, "u1:p1")
	require.NoError(t, err)
	require.Len(t, list, 2)

	var pending []*models.Job
	for _, job := range list {
		if job.Status == models.JobPending {
			pending = append(pending, job)
		}
	}
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
	assert.Equal(t, at.Add(time.Minute).Unix(), pending[0].ExecuteAfter)
	assert.JSONEq(t, `{"user_id":"u1","product_id":"p1"}`, string(pending[0].Payload))

	old, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCanceled, old.Status)
}

func TestSchedule_LeavesOtherKeysAlone(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	at := time.Now().Add(time.Hour)

	_, err := Schedule(ctx, db, models.JobCheckAbandonment, "u1:p1", at, nil)
	require.NoError(t, err)
	_, err = Schedule(ctx, db, models.JobCheckAbandonment, "u1:p2", at, nil)
	require.NoError(t, err)
	_, err = Schedule(ctx, db, "send_digest", "u1:p1", at, nil)
	require.NoError(t, err)

	due, err := Due(ctx, db, at, 0)
	require.NoError(t, err)
	assert.Len(t, due, 3)
}

func TestCancel_CancelsPendingJobForKey(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	at := time.Now().Add(time.Hour)

	for _, key := range []string{"u1:p1", "u1:p2"} {
		_, err := Schedule(ctx, db, models.JobCheckAbandonment, key, at, nil)
		require.NoError(t, err)
	}

	n, err := Cancel(ctx, db, models.JobCheckAbandonment, "u1:p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = Cancel(ctx, db, models.JobCheckAbandonment, "u1:p1")
	require.NoError(t, err)
	assert.Zero(t, n)

	other, err := repositories.NewJobRepository(db).ListByKey(ctx, models.JobCheckAbandonment, "u1:p2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, models.JobPending, other[0].Status)
}

func TestDue_NeverReturnsFutureOrNonPendingJobs(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	asOf := time.Unix(1_700_000_000, 0)
	repo := repositories.NewJobRepository(db)

	offsets := []time.Duration{-3 * time.Hour, -time.Minute, 0, time.Second, time.Hour}
	for i, off := range offsets {
		_, err := Schedule(ctx, db, models.JobCheckAbandonment, AbandonmentKey("u", string(rune('a'+i))), asOf.Add(off), nil)
		require.NoError(t, err)
	}
	_, err := Cancel(ctx, db, models.JobCheckAbandonment, AbandonmentKey("u", "b"))
	require.NoError(t, err)

	due, err := Due(ctx, db, asOf, 0)
	require.NoError(t, err)
	require.Len(t, due, 2)

	var last int64
	for _, job := range due {
		assert.LessOrEqual(t, job.ExecuteAfter, asOf.Unix())
		assert.Equal(t, models.JobPending, job.Status)
		assert.GreaterOrEqual(t, job.ExecuteAfter, last)
		last = job.ExecuteAfter
	}

	stored, err := repo.ListByKey(ctx, models.JobCheckAbandonment, "u:b")
	require.NoError(t, err)
	assert.Equal(t, models.JobCanceled, stored[0].Status)
}
