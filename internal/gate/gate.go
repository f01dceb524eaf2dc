// Package gate evaluates whether a freshly flattened snapshot is safe
// to publish: a hard-veto pass (capacity, precedence) ahead of the swap
// that makes a new FlatSnapshot visible to readers.
package gate

import (
	"fmt"

	"github.com/meshguard/epigenetic-policy-engine/internal/trie"
)

// #region gate

// Gate evaluates whether a compiled path list should be published or
// rejected, leaving the previously published snapshot intact.
type Gate struct {
	config Config
}

// New creates a publish gate with the given configuration.
func New(config Config) *Gate {
	return &Gate{config: config}
}

// Evaluate checks hard vetoes against the candidate flattened path list
// before it becomes a snapshot. source is the store the paths were
// flattened from, used to re-verify the precedence invariant
// independently of the compiler's own walk.
func (g *Gate) Evaluate(source *trie.Store, candidatePaths []string) Decision {
	var vetoes []VetoSignal

	if g.config.MaxSnapshotSize > 0 && len(candidatePaths) > g.config.MaxSnapshotSize {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoCapacity,
			Reason: fmt.Sprintf("snapshot size %d exceeds cap %d", len(candidatePaths), g.config.MaxSnapshotSize),
		})
	}

	for _, p := range candidatePaths {
		res, err := source.Check(p)
		if err != nil || res != trie.Allowed {
			vetoes = append(vetoes, VetoSignal{
				Type:   VetoPrecedence,
				Reason: fmt.Sprintf("candidate path %q is not a clean allow in the source store (check=%v)", p, res),
			})
			break
		}
	}

	if len(vetoes) > 0 {
		return Decision{
			Action:      "reject",
			Reason:      fmt.Sprintf("hard veto: %s", vetoes[0].Reason),
			Vetoed:      true,
			VetoSignals: vetoes,
		}
	}

	return Decision{
		Action: "commit",
		Reason: fmt.Sprintf("passed publish gate: %d paths", len(candidatePaths)),
		Vetoed: false,
	}
}

// #endregion gate
