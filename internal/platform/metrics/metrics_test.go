package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_WriteText(t *testing.T) {
	r := NewRegistry()
	r.Inc(Deliveries, "kind", "payment_succeeded")
	r.Inc(Deliveries, "kind", "payment_succeeded")
	r.Inc(Deliveries, "kind", "unknown")
	r.Add(RunsCreated, "source", "webhook", 3)
	r.Inc(JobsSkipped, "", "")

	var b strings.Builder
	require.NoError(t, r.WriteText(&b))
	out := b.String()

	assert.Contains(t, out, "# TYPE funnel_webhook_deliveries_total counter\n")
	assert.Contains(t, out, `funnel_webhook_deliveries_total{kind="payment_succeeded"} 2`+"\n")
	assert.Contains(t, out, `funnel_webhook_deliveries_total{kind="unknown"} 1`+"\n")
	assert.Contains(t, out, `funnel_sequence_runs_created_total{source="webhook"} 3`+"\n")
	assert.Contains(t, out, "funnel_jobs_skipped_total 1\n")
	assert.Equal(t, 1, strings.Count(out, "# TYPE funnel_webhook_deliveries_total"))
}

func TestRegistry_EscapesLabelValues(t *testing.T) {
	r := NewRegistry()
	r.Inc(Deliveries, "kind", `a"b`)

	var b strings.Builder
	require.NoError(t, r.WriteText(&b))
	assert.Contains(t, b.String(), `{kind="a\"b"}`)
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Inc(JobsCompleted, "job_type", "check_abandonment")
		}()
	}
	wg.Wait()
	assert.Equal(t, float64(50), r.Value(JobsCompleted, "job_type", "check_abandonment"))
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var r *Registry
	r.Inc(Deliveries, "kind", "x")
	assert.Zero(t, r.Value(Deliveries, "kind", "x"))
	assert.NoError(t, r.WriteText(&strings.Builder{}))
}
