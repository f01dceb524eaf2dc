package agent

import (
	"math"
	"math/rand"

	"github.com/meshguard/epigenetic-policy-engine/internal/policyerr"
)

// #region agent

// Agent wraps a QTable with epsilon-greedy action selection and the
// standard tabular Q-learning update rule. It is not safe for
// concurrent use; the Coordinator's single-writer lock (§5) serializes
// every call.
type Agent struct {
	config   Config
	table    *QTable
	rng      *rand.Rand
	episode  int
	degraded bool
}

// New creates an Agent backed by a fresh QTable.
func New(config Config, seed int64) *Agent {
	return &Agent{
		config: config,
		table:  NewQTable(),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Table exposes the underlying QTable, e.g. for persistence.
func (a *Agent) Table() *QTable {
	return a.table
}

// Degraded reports whether the agent has fallen back to always
// returning OBSERVE after detecting a non-finite Q-value.
func (a *Agent) Degraded() bool {
	return a.degraded
}

// #endregion agent

// #region epsilon

// epsilon returns the current exploration rate, linearly decayed from
// EpsilonStart to EpsilonEnd over EpsilonDecayEpisodes, then held flat.
func (a *Agent) epsilon() float64 {
	c := a.config
	if c.EpsilonDecayEpisodes <= 0 {
		return c.EpsilonEnd
	}
	frac := float64(a.episode) / float64(c.EpsilonDecayEpisodes)
	if frac >= 1 {
		return c.EpsilonEnd
	}
	return c.EpsilonStart - frac*(c.EpsilonStart-c.EpsilonEnd)
}

// #endregion epsilon

// #region select

// Select chooses an action for s using epsilon-greedy exploration. If
// the agent has degraded (a prior update produced a non-finite value),
// it always returns OBSERVE regardless of epsilon, per the design's
// fail-safe posture: "when in doubt, don't act."
func (a *Agent) Select(s State) Action {
	if a.degraded {
		return ActionObserve
	}
	if a.rng.Float64() < a.epsilon() {
		return actionOrder[a.rng.Intn(len(actionOrder))]
	}
	best, _ := a.table.Best(s)
	return best
}

// #endregion select

// #region update

// Update applies the standard Q-learning rule:
//
//	Q[s][a] <- (1-alpha)*Q[s][a] + alpha*(reward + gamma*max_a' Q[s'][a'])
//
// and advances the episode counter for epsilon decay. If the resulting
// value is non-finite (NaN/Inf — e.g. from a corrupted reward or a
// misconfigured learning rate), the agent flags itself degraded and
// reports policyerr.ErrAgentDegraded rather than persisting garbage.
func (a *Agent) Update(s State, act Action, reward float64, next State) error {
	old := a.table.Get(s, act)
	_, bestNext := a.table.Best(next)
	updated := (1-a.config.Alpha)*old + a.config.Alpha*(reward+a.config.Gamma*bestNext)

	if math.IsNaN(updated) || math.IsInf(updated, 0) {
		a.degraded = true
		return policyerr.Wrap(policyerr.AgentDegraded, "non-finite Q-value produced during update", nil)
	}

	a.table.Set(s, act, updated)
	a.episode++
	return nil
}

// Reward looks up the payoff for a classified outcome.
func (a *Agent) Reward(outcome Outcome) float64 {
	return a.config.Rewards[outcome]
}

// #endregion update
