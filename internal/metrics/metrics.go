// Package metrics counts per-record outcomes of a migration run and pushes
// them to a Prometheus Pushgateway once the run ends. A nil *Recorder is
// valid and records nothing.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	OpMigrate = "migrate"
	OpRevert  = "revert"
	OpPlan    = "plan"
)

const (
	OutcomeMigrated = "migrated"
	OutcomeReverted = "reverted"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
	OutcomePartial  = "partial_write"
	OutcomePlanned  = "planned"
)

// Job is the Pushgateway job name.
const Job = "tokenmigrate"

type Recorder struct {
	registry *prometheus.Registry
	records  *prometheus.CounterVec
	duration *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tokenmigrate_records_total",
			Help: "Records processed by a token migration run, by operation and outcome.",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tokenmigrate_run_duration_seconds",
			Help: "Wall time of the last run, by operation.",
		}, []string{"op"}),
	}
	r.registry.MustRegister(r.records, r.duration)
	return r
}

func (r *Recorder) Record(op, outcome string) {
	if r == nil {
		return
	}
	r.records.WithLabelValues(op, outcome).Inc()
}

func (r *Recorder) ObserveRun(op string, seconds float64) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(op).Set(seconds)
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Push sends every collected series to the Pushgateway at url, replacing
// the previous push of the same job.
func (r *Recorder) Push(ctx context.Context, url string) error {
	if r == nil || url == "" {
		return nil
	}
	if err := push.New(url, Job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
