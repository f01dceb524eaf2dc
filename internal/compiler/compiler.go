package compiler

import (
	"sync/atomic"

	"github.com/meshguard/epigenetic-policy-engine/internal/gate"
	"github.com/meshguard/epigenetic-policy-engine/internal/policyerr"
	"github.com/meshguard/epigenetic-policy-engine/internal/trie"
)

// #region compile

// Compile runs store.Flatten() and deduplicates into a fresh, immutable
// FlatSnapshot at the given version. Flatten already applies suppression
// pruning; Compile just owns the version stamp and the set construction.
func Compile(store *trie.Store, version uint64) *FlatSnapshot {
	flat := store.Flatten()
	set := make(map[string]struct{}, len(flat))
	for _, p := range flat {
		set[p] = struct{}{}
	}
	return &FlatSnapshot{ServiceID: store.ServiceID, Version: version, paths: set}
}

// #endregion compile

// #region publisher

// Publisher holds the single shared reference to the latest published
// FlatSnapshot for one service. Readers call Load and may keep the
// returned pointer as long as they like — it is never mutated, only
// replaced. CompileAndPublish is the only mutator and is meant to be
// called from the Coordinator's single writer.
type Publisher struct {
	current atomic.Pointer[FlatSnapshot]
	gate    *gate.Gate
}

// NewPublisher creates a Publisher with the given publish-gate
// configuration.
func NewPublisher(gateConfig gate.Config) *Publisher {
	return &Publisher{gate: gate.New(gateConfig)}
}

// Load returns the currently published snapshot, or nil if nothing has
// been published yet.
func (p *Publisher) Load() *FlatSnapshot {
	return p.current.Load()
}

// CompileAndPublish compiles store at the next version (previous + 1,
// starting at 1) and, if the publish gate commits, atomically swaps it
// in as the current snapshot. On rejection the previously published
// snapshot is left untouched and a Capacity error is returned naming
// the veto reason.
func (p *Publisher) CompileAndPublish(store *trie.Store) (*FlatSnapshot, error) {
	prev := p.current.Load()
	var nextVersion uint64 = 1
	if prev != nil {
		nextVersion = prev.Version + 1
	}

	flat := store.Flatten()
	decision := p.gate.Evaluate(store, flat)
	if decision.Vetoed {
		return nil, policyerr.New(policyerr.Capacity, decision.Reason)
	}

	set := make(map[string]struct{}, len(flat))
	for _, path := range flat {
		set[path] = struct{}{}
	}
	snap := &FlatSnapshot{ServiceID: store.ServiceID, Version: nextVersion, paths: set}
	p.current.Store(snap)
	return snap, nil
}

// #endregion publisher
