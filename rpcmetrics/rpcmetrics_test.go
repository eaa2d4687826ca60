package rpcmetrics_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ritksm/thriftpy/rpcmetrics"
)

func TestObserveCallIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := rpcmetrics.New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r.ObserveCall("remove", "declared_exception")
	r.ObserveCall("remove", "declared_exception")
	r.ObserveCall("ping", "success")

	got, err := testutil.GatherAndCount(reg, "thriftrt_rpc_calls_total")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected 2 distinct label combinations, got %d", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var found bool
	for _, mf := range mfs {
		if mf.GetName() != "thriftrt_rpc_calls_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			var method, outcome string
			for _, l := range m.GetLabel() {
				switch l.GetName() {
				case "method":
					method = l.GetValue()
				case "outcome":
					outcome = l.GetValue()
				}
			}
			if method == "remove" && outcome == "declared_exception" {
				found = true
				if got := m.GetCounter().GetValue(); got != 2 {
					t.Fatalf("expected count 2, got %v", got)
				}
			}
		}
	}
	if !found {
		t.Fatal("expected a remove/declared_exception series")
	}
}

func TestTimerObservesDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := rpcmetrics.New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	stop := r.Timer("ping")
	stop()

	out, err := testutil.GatherAndCount(reg, "thriftrt_rpc_call_duration_seconds")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if out == 0 {
		t.Fatal("expected at least one histogram observation")
	}

	var buf strings.Builder
	mfs, _ := reg.Gather()
	for _, mf := range mfs {
		buf.WriteString(mf.GetName())
		buf.WriteString("\n")
	}
	if !strings.Contains(buf.String(), "thriftrt_rpc_call_duration_seconds") {
		t.Fatal("expected duration histogram to be registered")
	}
}
