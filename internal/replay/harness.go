// Package replay drives a stream of labeled detect events through a
// Coordinator the way a delayed ground-truth feedback pipeline would:
// OnDetect first (blind to the label, exactly as production traffic
// is), then TrainAgent once the label is known. It exists to exercise
// the convergence property — that the running false-positive plus
// false-negative rate trends non-increasing over a long enough i.i.d.
// stream — as a reproducible, replayable test fixture rather than a
// live simulation.
package replay

import (
	"github.com/meshguard/epigenetic-policy-engine/internal/agent"
	"github.com/meshguard/epigenetic-policy-engine/internal/coordinator"
)

// #region types

// Interaction is one labeled detect event: the inputs a real detect
// call would carry, plus the ground truth this harness knows and
// production never does at call time.
type Interaction struct {
	TurnID    string
	Event     coordinator.Event
	Malicious bool // ground truth: was this path actually an attack
}

// Result captures one turn's outcome.
type Result struct {
	TurnID   string
	Decision coordinator.Decision
	Outcome  agent.Outcome
	Correct  bool
}

// Summary aggregates a replay run's confusion-matrix counts and the
// windowed moving average used by the convergence contract.
type Summary struct {
	TotalTurns     int
	TruePositives  int
	TrueNegatives  int
	FalsePositives int
	FalseNegatives int
	// WindowedErrorRates holds the moving-average error rate computed
	// after each window closes, in order — non-increasing trend across
	// this slice is the convergence contract's testable property.
	WindowedErrorRates []float64
}

// #endregion types

// #region replay

// Replay runs every interaction through c.OnDetect, classifies the
// outcome against ground truth, trains the agent on that label via
// c.TrainAgent, and returns one Result per turn in order.
//
// The action that actually decided a turn (ALLOW/BLOCK/OBSERVE) is
// recovered from the returned Decision rather than threaded out of
// OnDetect — §6's detect payload carries no label, so OnDetect itself
// never learns the ground truth, exactly as it wouldn't in production.
// Each turn is treated as an independent one-step episode: the next
// state fed to TrainAgent is the same discretized state the decision
// was made from, since there is no real temporal chain between
// unrelated path classifications.
func Replay(c *coordinator.Coordinator, interactions []Interaction) []Result {
	results := make([]Result, 0, len(interactions))
	for _, in := range interactions {
		decision, _ := c.OnDetect(in.Event)

		outcome := classify(decision.Action, in.Malicious)
		correct := outcome == agent.TruePositive || outcome == agent.TrueNegative

		act := actionFromDecision(decision.Action)
		depth := len(splitPath(in.Event.Path))
		if in.Event.Features.DepthOverride != nil {
			depth = *in.Event.Features.DepthOverride
		}
		st := agent.NewState(depth, in.Event.Features.Anomaly, in.Event.Features.Entropy, in.Event.Features.Frequency)
		_ = c.TrainAgent(st, act, outcome, st)

		results = append(results, Result{
			TurnID:   in.TurnID,
			Decision: decision,
			Outcome:  outcome,
			Correct:  correct,
		})
	}
	return results
}

func splitPath(path string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			if i > start {
				segs = append(segs, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		segs = append(segs, path[start:])
	}
	return segs
}

func actionFromDecision(action string) agent.Action {
	switch action {
	case "ALLOW":
		return agent.ActionAllow
	case "BLOCK":
		return agent.ActionSuppress
	default:
		return agent.ActionObserve
	}
}

// classify maps a decision action plus ground truth onto the
// confusion-matrix outcome the reward table is keyed by. BLOCK is the
// "positive" (flagged-as-attack) class; OBSERVE is treated as a
// non-block for classification purposes since it doesn't suppress
// the path.
func classify(action string, malicious bool) agent.Outcome {
	blocked := action == "BLOCK"
	switch {
	case blocked && malicious:
		return agent.TruePositive
	case !blocked && !malicious:
		return agent.TrueNegative
	case blocked && !malicious:
		return agent.FalsePositive
	default:
		return agent.FalseNegative
	}
}

// #endregion replay

// #region summarize

// Summarize computes the confusion matrix and, for every windowSize
// turns, the moving-average error rate over that window — the series
// the convergence contract asserts is non-increasing.
func Summarize(results []Result, windowSize int) Summary {
	s := Summary{TotalTurns: len(results)}
	if windowSize <= 0 {
		windowSize = 100
	}

	errorsInWindow := 0
	for i, r := range results {
		switch r.Outcome {
		case agent.TruePositive:
			s.TruePositives++
		case agent.TrueNegative:
			s.TrueNegatives++
		case agent.FalsePositive:
			s.FalsePositives++
			errorsInWindow++
		case agent.FalseNegative:
			s.FalseNegatives++
			errorsInWindow++
		}
		if (i+1)%windowSize == 0 {
			s.WindowedErrorRates = append(s.WindowedErrorRates, float64(errorsInWindow)/float64(windowSize))
			errorsInWindow = 0
		}
	}
	return s
}

// #endregion summarize
