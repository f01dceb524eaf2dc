package adaptive

import (
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		GracePeriod:     1000 * time.Millisecond,
		MinObservations: 3,
		MaxRecords:      100,
		PromoteThreshold: PromoteThreshold{
			FrequencyMin: 0.01,
			AnomalyMax:   0.5,
			EntropyMax:   0.8,
		},
	}
}

// S4 — Grace-period promotion.
func TestScenarioS4GracePeriodPromotion(t *testing.T) {
	base := time.Unix(0, 0)
	var allowed []string
	layer := New(testConfig(), func(serviceID, path string) error {
		allowed = append(allowed, path)
		return nil
	})

	feat := Features{Anomaly: 0.1, Entropy: 0.1, Frequency: 0.02}

	d1 := layer.OnEvent("svc", "data.new_field", feat, base)
	if d1.Outcome != "OBSERVE" {
		t.Fatalf("event 1: expected OBSERVE, got %s", d1.Outcome)
	}
	d2 := layer.OnEvent("svc", "data.new_field", feat, base.Add(500*time.Millisecond))
	if d2.Outcome != "OBSERVE" {
		t.Fatalf("event 2: expected OBSERVE, got %s", d2.Outcome)
	}
	d3 := layer.OnEvent("svc", "data.new_field", feat, base.Add(1100*time.Millisecond))
	if d3.Outcome != "ALLOW" {
		t.Fatalf("event 3: expected ALLOW, got %s (%s)", d3.Outcome, d3.Reason)
	}
	if len(allowed) != 1 || allowed[0] != "data.new_field" {
		t.Fatalf("expected allow side effect for data.new_field, got %v", allowed)
	}

	rec, ok := layer.Lookup("svc", "data.new_field")
	if !ok || rec.State != Promoted {
		t.Fatalf("expected record state PROMOTED, got %v", rec.State)
	}
}

func TestScenarioS4RemainsObserveBeforeGraceElapsed(t *testing.T) {
	base := time.Unix(0, 0)
	layer := New(testConfig(), func(string, string) error { return nil })
	feat := Features{Anomaly: 0.1, Entropy: 0.1, Frequency: 0.02}

	layer.OnEvent("svc", "data.new_field", feat, base)
	layer.OnEvent("svc", "data.new_field", feat, base.Add(500*time.Millisecond))
	// Third event at t=400 instead of t=1100 — grace period (1000ms) not elapsed
	d3 := layer.OnEvent("svc", "data.new_field", feat, base.Add(400*time.Millisecond))
	if d3.Outcome != "OBSERVE" {
		t.Fatalf("expected OBSERVE when grace period has not elapsed, got %s", d3.Outcome)
	}
}

// S5 — Synonym attack rejection: high frequency alone cannot promote.
func TestScenarioS5SynonymAttackRejection(t *testing.T) {
	base := time.Unix(0, 0)
	layer := New(testConfig(), func(string, string) error {
		t.Fatal("must never promote a high-anomaly path")
		return nil
	})

	feat := Features{Anomaly: 0.95, Entropy: 0.2, Frequency: 0.9}
	for i := 0; i < 50; i++ {
		now := base.Add(time.Duration(i) * 100 * time.Millisecond)
		d := layer.OnEvent("svc", "data.message", feat, now)
		if d.Outcome == "ALLOW" {
			t.Fatalf("event %d: unexpected ALLOW for high-anomaly repeated path", i)
		}
	}

	rec, ok := layer.Lookup("svc", "data.message")
	if !ok || rec.State == Promoted {
		t.Fatal("expected path to remain unpromoted despite high frequency")
	}
}

func TestGracePeriodHonesty(t *testing.T) {
	base := time.Unix(0, 0)
	cfg := testConfig()
	cfg.MinObservations = 100 // require many observations
	layer := New(cfg, func(string, string) error { return nil })
	feat := Features{Anomaly: 0.1, Entropy: 0.1, Frequency: 0.02}

	for i := 0; i < 50; i++ {
		now := base.Add(time.Duration(i) * 2 * time.Second) // grace period well elapsed
		d := layer.OnEvent("svc", "x.y", feat, now)
		if d.Outcome == "ALLOW" {
			t.Fatalf("promoted after only %d observations, need %d", i+1, cfg.MinObservations)
		}
	}
}

func TestSuppressedRecordNeverAutoRescued(t *testing.T) {
	base := time.Unix(0, 0)
	layer := New(testConfig(), func(string, string) error { return nil })
	layer.MarkSuppressed("svc", "bad.path", base)

	feat := Features{Anomaly: 0.0, Entropy: 0.0, Frequency: 1.0} // would otherwise easily promote
	for i := 0; i < 20; i++ {
		now := base.Add(time.Duration(i) * 2 * time.Second)
		d := layer.OnEvent("svc", "bad.path", feat, now)
		if d.Outcome != "BLOCK" {
			t.Fatalf("expected BLOCK for suppressed path, got %s", d.Outcome)
		}
	}
}

func TestPromotedRecordStaysAllowed(t *testing.T) {
	base := time.Unix(0, 0)
	layer := New(testConfig(), func(string, string) error { return nil })
	feat := Features{Anomaly: 0.1, Entropy: 0.1, Frequency: 0.02}

	layer.OnEvent("svc", "x", feat, base)
	layer.OnEvent("svc", "x", feat, base.Add(500*time.Millisecond))
	layer.OnEvent("svc", "x", feat, base.Add(1100*time.Millisecond)) // promotes

	d := layer.OnEvent("svc", "x", feat, base.Add(2*time.Second))
	if d.Outcome != "ALLOW" {
		t.Fatalf("expected continued ALLOW for promoted record, got %s", d.Outcome)
	}
}

func TestLRUEvictionDoesNotRevokePromotion(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRecords = 1
	layer := New(cfg, func(string, string) error { return nil })

	base := time.Unix(0, 0)
	feat := Features{Anomaly: 0.1, Entropy: 0.1, Frequency: 0.02}

	layer.OnEvent("svc", "first", feat, base)
	layer.OnEvent("svc", "first", feat, base.Add(500*time.Millisecond))
	layer.OnEvent("svc", "first", feat, base.Add(1100*time.Millisecond)) // promotes "first"

	// Touching a second path evicts "first" from the table (cap=1).
	layer.OnEvent("svc", "second", feat, base.Add(1200*time.Millisecond))

	if _, ok := layer.Lookup("svc", "first"); ok {
		t.Fatal("expected first to be evicted from the adaptive table")
	}
	if layer.Evictions() == 0 {
		t.Fatal("expected at least one eviction to be recorded")
	}
	// Eviction doesn't revoke the allow side effect itself — that lives
	// in the store, which this package never touches directly, so we
	// only assert the eviction counter moved and the record is gone.
}

func TestMaxRecordsZeroMeansUnbounded(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRecords = 0
	layer := New(cfg, func(string, string) error { return nil })
	base := time.Unix(0, 0)
	feat := Features{Anomaly: 0.1, Entropy: 0.1, Frequency: 0.02}

	for i := 0; i < 500; i++ {
		layer.OnEvent("svc", string(rune('a'+i%26))+string(rune('0'+i%10)), feat, base)
	}
	if layer.Len() == 0 {
		t.Fatal("expected records to accumulate with unbounded cap")
	}
}
