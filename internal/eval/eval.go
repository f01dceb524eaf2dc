// Package eval provides exhaustive, off-hot-path consistency checks
// between a trie.Store and the FlatSnapshot compiled from it — the
// compile-fidelity and flatten-respects-suppression properties. It is
// meant for tests and operator tooling, not the publish path itself
// (the publish gate in internal/gate covers that with a cheaper check).
package eval

import (
	"fmt"

	"github.com/meshguard/epigenetic-policy-engine/internal/trie"
)

// #region snapshot-iface

// Snapshot is the minimal surface a compiled snapshot must expose for
// validation. trie-independent so this package never needs to import
// the compiler package.
type Snapshot interface {
	Contains(path string) bool
	Len() int
	Paths() []string
}

// #endregion snapshot-iface

// #region validator

// Validator runs consistency checks between a Store and a Snapshot
// compiled from it.
type Validator struct{}

// NewValidator creates a Validator. There is no configuration: the
// checks it runs are invariants, not tunable thresholds.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks two spec invariants plus a size check:
//
//   - flatten-respects-suppression: every path emitted by store.Flatten()
//     has no suppressed ancestor.
//   - compile fidelity: snapshot.Contains(p) iff store.Check(p) == ALLOWED
//     and no ancestor of p is suppressed, for every candidate path
//     (the union of the store's flatten output and the snapshot's own
//     membership set).
//   - size: snapshot.Len() equals the number of paths store.Flatten()
//     emitted.
func (v *Validator) Validate(store *trie.Store, snapshot Snapshot) Result {
	var metrics []Metric
	passed := true
	var failReasons []string

	flat := store.Flatten()
	suppressionClean := true
	for _, p := range flat {
		if hasSuppressedAncestor(store, p) {
			suppressionClean = false
			break
		}
	}
	metrics = append(metrics, Metric{Name: "flatten_respects_suppression", Value: len(flat), Pass: suppressionClean})
	if !suppressionClean {
		passed = false
		failReasons = append(failReasons, "flatten emitted a path with a suppressed ancestor")
	}

	candidates := make(map[string]struct{}, len(flat))
	for _, p := range flat {
		candidates[p] = struct{}{}
	}
	for _, p := range snapshot.Paths() {
		candidates[p] = struct{}{}
	}

	fidelityClean := true
	mismatches := 0
	for p := range candidates {
		res, err := store.Check(p)
		expectAllowed := err == nil && res == trie.Allowed
		gotContains := snapshot.Contains(p)
		if expectAllowed != gotContains {
			fidelityClean = false
			mismatches++
		}
	}
	metrics = append(metrics, Metric{Name: "compile_fidelity", Value: len(candidates) - mismatches, Pass: fidelityClean})
	if !fidelityClean {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("%d path(s) disagree between store.Check and snapshot.Contains", mismatches))
	}

	sizeMatch := snapshot.Len() == len(flat)
	metrics = append(metrics, Metric{Name: "snapshot_size_matches_flatten", Value: snapshot.Len(), Pass: sizeMatch})
	if !sizeMatch {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("snapshot has %d paths, flatten produced %d", snapshot.Len(), len(flat)))
	}

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("validation failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("validation failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return Result{Passed: passed, Metrics: metrics, Reason: reason}
}

func hasSuppressedAncestor(store *trie.Store, path string) bool {
	// A suppressed ancestor would have made Check return BlockedSuppressed;
	// flatten already excludes suppressed subtrees, so this is a defensive
	// re-check using the public Check API rather than internal walk state.
	res, err := store.Check(path)
	return err == nil && res == trie.BlockedSuppressed
}

// #endregion validator
