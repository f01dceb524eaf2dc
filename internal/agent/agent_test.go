package agent

import (
	"errors"
	"math"
	"testing"

	"github.com/meshguard/epigenetic-policy-engine/internal/policyerr"
)

func TestBucketizeBoundaries(t *testing.T) {
	cases := []struct {
		v    float64
		want int
	}{
		{-1, 0},
		{0, 0},
		{0.24, 0},
		{0.25, 1},
		{0.49, 1},
		{0.5, 2},
		{0.99, 3},
		{1.0, 3},
		{2.0, 3},
	}
	for _, c := range cases {
		if got := bucketize(c.v); got != c.want {
			t.Errorf("bucketize(%v) = %d, want %d", c.v, got, c.want)
		}
	}
}

func TestStateKeyStability(t *testing.T) {
	s1 := NewState(2, 0.1, 0.9, 0.5)
	s2 := NewState(2, 0.1, 0.9, 0.5)
	if s1.Key() != s2.Key() {
		t.Fatal("expected identical discretized states to produce the same key")
	}
}

func TestQTableDefaultsToZero(t *testing.T) {
	q := NewQTable()
	s := NewState(0, 0, 0, 0)
	if v := q.Get(s, ActionAllow); v != 0 {
		t.Fatalf("expected unseen (state, action) to default to 0, got %v", v)
	}
}

func TestBestTieBreakOrder(t *testing.T) {
	q := NewQTable()
	s := NewState(0, 0, 0, 0)
	// All three actions tie at 0 — must resolve to ALLOW.
	a, _ := q.Best(s)
	if a != ActionAllow {
		t.Fatalf("expected ALLOW to win ties, got %s", a)
	}

	q.Set(s, ActionObserve, 5)
	q.Set(s, ActionSuppress, 5)
	a, v := q.Best(s)
	if a != ActionObserve || v != 5 {
		t.Fatalf("expected OBSERVE to win over SUPPRESS at equal value, got %s/%v", a, v)
	}
}

func TestSelectGreedyWhenEpsilonZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EpsilonStart = 0
	cfg.EpsilonEnd = 0
	a := New(cfg, 1)
	s := NewState(0, 0, 0, 0)
	a.Table().Set(s, ActionSuppress, 10)

	if got := a.Select(s); got != ActionSuppress {
		t.Fatalf("expected greedy selection of SUPPRESS, got %s", got)
	}
}

func TestUpdateConvergesTowardPositiveReward(t *testing.T) {
	cfg := DefaultConfig()
	a := New(cfg, 1)
	s := NewState(1, 1, 1, 1)
	next := NewState(2, 1, 1, 1)

	var last float64
	for i := 0; i < 200; i++ {
		if err := a.Update(s, ActionAllow, 1.0, next); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		last = a.Table().Get(s, ActionAllow)
	}
	if last <= 0 {
		t.Fatalf("expected Q-value to converge positive under a positive reward, got %v", last)
	}
}

func TestUpdateDegradesOnNonFiniteValue(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Alpha = math.Inf(1)
	a := New(cfg, 1)
	s := NewState(0, 0, 0, 0)

	err := a.Update(s, ActionAllow, 1.0, s)
	if err == nil {
		t.Fatal("expected an error from a non-finite update")
	}
	if !errors.Is(err, policyerr.ErrAgentDegraded) {
		t.Fatalf("expected AgentDegraded error kind, got %v", err)
	}
	if !a.Degraded() {
		t.Fatal("expected agent to be marked degraded")
	}
	if got := a.Select(s); got != ActionObserve {
		t.Fatalf("expected degraded agent to fall back to OBSERVE, got %s", got)
	}
}

func TestEpsilonDecaysLinearlyThenHolds(t *testing.T) {
	cfg := Config{
		Alpha: 0.1, Gamma: 0.9,
		EpsilonStart: 1.0, EpsilonEnd: 0.1, EpsilonDecayEpisodes: 100,
	}
	a := New(cfg, 1)

	if e := a.epsilon(); e != 1.0 {
		t.Fatalf("expected epsilon 1.0 at episode 0, got %v", e)
	}
	a.episode = 50
	if e := a.epsilon(); math.Abs(e-0.55) > 1e-9 {
		t.Fatalf("expected epsilon 0.55 at the midpoint, got %v", e)
	}
	a.episode = 1000
	if e := a.epsilon(); e != cfg.EpsilonEnd {
		t.Fatalf("expected epsilon to hold at EpsilonEnd past decay window, got %v", e)
	}
}

func TestRewardAsymmetry(t *testing.T) {
	a := New(DefaultConfig(), 1)
	if a.Reward(FalseNegative) >= a.Reward(FalsePositive) {
		t.Fatal("expected false negatives to be penalized more heavily than false positives")
	}
	if math.Abs(a.Reward(FalseNegative)/a.Reward(FalsePositive)-2.5) > 1e-9 {
		t.Fatalf("expected a 2.5x cost ratio between false negative and false positive, got %v/%v",
			a.Reward(FalseNegative), a.Reward(FalsePositive))
	}
}

func TestQTableSnapshotRoundTrip(t *testing.T) {
	q := NewQTable()
	s := NewState(1, 2, 3, 0)
	q.Set(s, ActionSuppress, 3.5)

	snap := q.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(snap))
	}

	restored := NewQTable()
	for _, e := range snap {
		restored.LoadEntry(e)
	}
	if got := restored.Get(s, ActionSuppress); got != 3.5 {
		t.Fatalf("expected restored value 3.5, got %v", got)
	}
}
