package metrics

import "testing"

// A single New() call for the whole file — client_golang's default
// registry panics on duplicate metric registration, so tests here
// share one instance rather than constructing a fresh one per test.
var m = New()

func TestMetricsAreRegistered(t *testing.T) {
	if m.DetectTotal == nil || m.DecisionTotal == nil || m.PromotionTotal == nil {
		t.Fatal("expected core counters to be non-nil")
	}
	if m.SnapshotVersion == nil || m.DetectDuration == nil {
		t.Fatal("expected gauge and histogram to be non-nil")
	}
}

func TestHandlerIsUsable(t *testing.T) {
	m.DetectTotal.WithLabelValues("svc").Inc()
	if Handler() == nil {
		t.Fatal("expected a non-nil metrics HTTP handler")
	}
}
