package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRuleMatchedIncrementsFiringsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.RuleMatched("R1")
	m.RuleMatched("R1")

	got := testutil.ToFloat64(m.firings.WithLabelValues("R1", "matched"))
	if got != 2 {
		t.Fatalf("expected 2 matched firings for R1, got %v", got)
	}
}

func TestNilMetricsMethodsNoop(t *testing.T) {
	var m *Metrics
	m.RuleMatched("R1")
	m.RuleFailed("R1", "Supplier", "S1", nil)
	m.CascadeFinished(3)
	m.SetQueueDepth(5)
	m.ActionExecuted("Supplier", "block", "success")
	m.TranslateError("unsafe_label")
	m.EvalError("unknown_function")
}

func TestDuplicateRegistrationErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("first New: %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Fatal("expected error registering the same series twice against one registry")
	}
}
