// Package agent implements the tabular Q-learning Evolutionary Agent: a
// small reinforcement-learning policy that picks ALLOW/OBSERVE/SUPPRESS
// for paths the adaptive layer has not already decided definitively,
// and learns from the eventual true/false positive/negative outcome.
package agent

import "fmt"

// #region action

// Action is one of the three moves the agent can make for a path.
type Action string

const (
	ActionAllow    Action = "ALLOW"
	ActionObserve  Action = "OBSERVE"
	ActionSuppress Action = "SUPPRESS"
)

// actionOrder fixes the tie-break order used when two or more actions
// tie for the highest Q-value: ALLOW < OBSERVE < SUPPRESS. The original
// implementation broke ties at random; this diverges deliberately so
// that replay and test runs are reproducible.
var actionOrder = []Action{ActionAllow, ActionObserve, ActionSuppress}

// #endregion action

// #region state

// Buckets is the number of discretization buckets applied to each
// continuous feature. Bucket k covers the half-open interval
// [k/Buckets, (k+1)/Buckets), except the last bucket, which is closed
// at 1.0.
const Buckets = 4

// State is the discretized 4-tuple the Q-table is indexed by.
type State struct {
	Depth     int
	Anomaly   int
	Entropy   int
	Frequency int
}

// Key returns a stable, comparable string for use as a map key.
func (s State) Key() string {
	return fmt.Sprintf("%d|%d|%d|%d", s.Depth, s.Anomaly, s.Entropy, s.Frequency)
}

// bucketize maps a continuous value in [0,1] to a bucket index in
// [0, Buckets). Values at or above 1.0 land in the last bucket;
// negative values clamp to the first.
func bucketize(v float64) int {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return Buckets - 1
	}
	b := int(v * float64(Buckets))
	if b >= Buckets {
		b = Buckets - 1
	}
	return b
}

// bucketizeDepth folds an unbounded segment-depth count into the same
// bucket range by capping at Buckets-1.
func bucketizeDepth(depth int) int {
	if depth < 0 {
		return 0
	}
	if depth >= Buckets {
		return Buckets - 1
	}
	return depth
}

// NewState discretizes a raw feature observation into a State.
func NewState(depth int, anomaly, entropy, frequency float64) State {
	return State{
		Depth:     bucketizeDepth(depth),
		Anomaly:   bucketize(anomaly),
		Entropy:   bucketize(entropy),
		Frequency: bucketize(frequency),
	}
}

// #endregion state

// #region outcome

// Outcome classifies the eventual ground truth of a decision, used to
// look up the reward after the fact.
type Outcome string

const (
	TrueNegative  Outcome = "true_negative"
	TruePositive  Outcome = "true_positive"
	FalsePositive Outcome = "false_positive"
	FalseNegative Outcome = "false_negative"
)

// RewardTable is the asymmetric payoff structure: a false negative
// (missed exfiltration) costs far more than a false positive
// (unnecessarily blocked field), reflecting the 2.5x cost ratio the
// design calls for.
type RewardTable map[Outcome]float64

// DefaultRewardTable returns the documented default payoffs.
func DefaultRewardTable() RewardTable {
	return RewardTable{
		TrueNegative:  1.0,
		TruePositive:  1.0,
		FalsePositive: -2.0,
		FalseNegative: -5.0,
	}
}

// #endregion outcome

// #region config

// Config is the agent's learning-rate and exploration configuration.
type Config struct {
	Alpha                float64 // learning rate
	Gamma                float64 // discount factor
	EpsilonStart         float64
	EpsilonEnd           float64
	EpsilonDecayEpisodes int
	Rewards              RewardTable
}

// DefaultConfig returns the documented defaults (§4.D).
func DefaultConfig() Config {
	return Config{
		Alpha:                0.1,
		Gamma:                0.9,
		EpsilonStart:         0.3,
		EpsilonEnd:           0.01,
		EpsilonDecayEpisodes: 1000,
		Rewards:              DefaultRewardTable(),
	}
}

// #endregion config
