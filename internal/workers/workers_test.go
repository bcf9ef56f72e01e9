package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"funnel/internal/engine/jobs"

	"github.com/stretchr/testify/assert"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
}

func (r *countingRunner) RunDue(ctx context.Context) (*jobs.Report, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return &jobs.Report{}, nil
}

func TestRunJobs_TicksUntilCanceled(t *testing.T) {
	runner := &countingRunner{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		RunJobs(ctx, runner, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return runner.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunJobs did not return after cancel")
	}
}

func TestRunJobs_KeepsGoingAfterFailure(t *testing.T) {
	runner := &countingRunner{err: errors.New("store down")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go RunJobs(ctx, runner, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return runner.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}
