// Package metrics keeps in-process counters and renders them in the
// Prometheus text exposition format.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

const (
	Deliveries      = "funnel_webhook_deliveries_total"
	Rejections      = "funnel_webhook_rejections_total"
	RunsCreated     = "funnel_sequence_runs_created_total"
	JobsScheduled   = "funnel_jobs_scheduled_total"
	JobsCanceled    = "funnel_jobs_canceled_total"
	JobsCompleted   = "funnel_jobs_completed_total"
	JobsSkipped     = "funnel_jobs_skipped_total"
	JobsFailed      = "funnel_jobs_failed_total"
	JobsDeadLetters = "funnel_jobs_dead_lettered_total"
)

var help = map[string]string{
	Deliveries:      "Webhook deliveries accepted, by classified kind.",
	Rejections:      "Webhook deliveries rejected, by reason.",
	RunsCreated:     "Sequence runs created, by what caused them.",
	JobsScheduled:   "Delayed jobs scheduled, by job type.",
	JobsCanceled:    "Pending delayed jobs canceled, by job type.",
	JobsCompleted:   "Delayed jobs executed successfully, by job type.",
	JobsSkipped:     "Due jobs skipped because they were no longer pending.",
	JobsFailed:      "Delayed job attempts that failed, by job type.",
	JobsDeadLetters: "Delayed jobs moved to failed after exhausting their attempts.",
}

type series struct {
	name  string
	label string
	value string
}

// Registry is safe for concurrent use. A nil *Registry discards everything.
type Registry struct {
	mu       sync.Mutex
	counters map[series]float64
}

func NewRegistry() *Registry {
	return &Registry{counters: make(map[series]float64)}
}

// Add increments the counter name by delta. label and value form the single
// optional label pair; pass empty strings for an unlabelled counter.
func (r *Registry) Add(name, label, value string, delta float64) {
	if r == nil || delta == 0 {
		return
	}
	r.mu.Lock()
	r.counters[series{name: name, label: label, value: value}] += delta
	r.mu.Unlock()
}

func (r *Registry) Inc(name, label, value string) {
	r.Add(name, label, value, 1)
}

// Value returns the current value of one series.
func (r *Registry) Value(name, label, value string) float64 {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[series{name: name, label: label, value: value}]
}

func (r *Registry) WriteText(w io.Writer) error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	keys := make([]series, 0, len(r.counters))
	values := make(map[series]float64, len(r.counters))
	for k, v := range r.counters {
		keys = append(keys, k)
		values[k] = v
	}
	r.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}
		if keys[i].label != keys[j].label {
			return keys[i].label < keys[j].label
		}
		return keys[i].value < keys[j].value
	})

	last := ""
	for _, k := range keys {
		if k.name != last {
			if h, ok := help[k.name]; ok {
				if _, err := fmt.Fprintf(w, "# HELP %s %s\n", k.name, h); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "# TYPE %s counter\n", k.name); err != nil {
				return err
			}
			last = k.name
		}

		line := k.name
		if k.label != "" {
			line += fmt.Sprintf(`{%s="%s"}`, k.label, escape(k.value))
		}
		if _, err := fmt.Fprintf(w, "%s %g\n", line, values[k]); err != nil {
			return err
		}
	}
	return nil
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escape(v string) string { return labelEscaper.Replace(v) }
