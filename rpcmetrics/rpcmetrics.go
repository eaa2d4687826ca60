// Package rpcmetrics exposes Prometheus counters and histograms for
// an rpc.Processor's dispatch loop: calls by method and outcome, plus
// per-method latency of each Process call, mirroring the request-metrics shape a
// gateway's own middleware stack tracks for its upstream calls.
package rpcmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements rpc.Metrics, recording one observation per
// dispatched call. Safe for concurrent use; backed by prometheus
// client_golang vectors rather than hand-rolled counters, so it
// registers cleanly with any prometheus.Registerer (including the
// default one, or a private one for tests).
type Recorder struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates a Recorder and registers its collectors with reg. Pass
// prometheus.NewRegistry() for an isolated registry, or
// prometheus.DefaultRegisterer to publish via the default /metrics
// handler.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thriftrt",
			Subsystem: "rpc",
			Name:      "calls_total",
			Help:      "Total number of dispatched RPC calls by method and outcome.",
		}, []string{"method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "thriftrt",
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "Time spent inside Processor.Process, from message read to reply flush.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	if err := reg.Register(r.calls); err != nil {
		return nil, err
	}
	if err := reg.Register(r.duration); err != nil {
		return nil, err
	}
	return r, nil
}

// ObserveCall satisfies rpc.Metrics: it increments the per-(method,
// outcome) counter. outcome is one of "success", "oneway",
// "declared_exception", "internal_error", "unknown_method",
// "invalid_message_type", or "no_handler".
func (r *Recorder) ObserveCall(method, outcome string) {
	r.calls.WithLabelValues(method, outcome).Inc()
}

// Timer starts a latency observation for method; call the returned
// func when the call completes (success or failure alike).
func (r *Recorder) Timer(method string) func() {
	start := time.Now()
	return func() {
		r.duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}
}
