// Package trie implements the hierarchical path store: a tree of
// allow/suppress decisions over dotted field paths, with traversal,
// intersection, transduction, and flatten operations.
package trie

import (
	"sort"
)

// #region check-result

// CheckResult is the outcome of a lookup against a PolicyStore.
type CheckResult int

const (
	DeniedNotFound CheckResult = iota
	Allowed
	BlockedSuppressed
)

func (r CheckResult) String() string {
	switch r {
	case Allowed:
		return "ALLOWED"
	case BlockedSuppressed:
		return "BLOCKED_SUPPRESSED"
	default:
		return "DENIED_NOT_FOUND"
	}
}

// #endregion check-result

// #region store

// Store owns one root Node. Every mutating operation walks segments from
// the root, creating missing children as needed. Mutation is monotone
// additive: existing allow/suppress flags are only ever set, never
// cleared, and deletion is not part of the contract.
type Store struct {
	ServiceID string
	root      *Node
	limits    Limits
}

// NewStore creates an empty store for serviceID.
func NewStore(serviceID string) *Store {
	return &Store{ServiceID: serviceID, root: newNode(), limits: DefaultLimits()}
}

// NewStoreWithLimits creates an empty store with explicit path limits.
func NewStoreWithLimits(serviceID string, limits Limits) *Store {
	return &Store{ServiceID: serviceID, root: newNode(), limits: limits}
}

// #endregion store

// #region allow-suppress

// Allow walks to path, creating missing nodes, and sets allowed = true
// on the terminal node. Idempotent; never clears suppressed.
func (s *Store) Allow(path string) error {
	n, err := s.walkCreate(path)
	if err != nil {
		return err
	}
	n.allowed = true
	return nil
}

// Suppress walks to path, creating missing nodes, and sets
// suppressed = true on the terminal node. Idempotent; never clears
// allowed — the two flags are independent per the data model.
func (s *Store) Suppress(path string) error {
	n, err := s.walkCreate(path)
	if err != nil {
		return err
	}
	n.suppressed = true
	return nil
}

func (s *Store) walkCreate(path string) (*Node, error) {
	segments, err := ParsePath(path, s.limits)
	if err != nil {
		return nil, err
	}
	n := s.root
	for _, seg := range segments {
		n = n.childOrCreate(seg)
	}
	return n, nil
}

// #endregion allow-suppress

// #region check

// Check walks segments from the root. If any segment is missing it
// returns DeniedNotFound. If any visited node — including the terminal
// — has suppressed = true, it returns BlockedSuppressed, which takes
// precedence over an allowed terminal. Otherwise it returns Allowed if
// the terminal is allowed, else DeniedNotFound.
func (s *Store) Check(path string) (CheckResult, error) {
	segments, err := ParsePath(path, s.limits)
	if err != nil {
		return DeniedNotFound, err
	}
	n := s.root
	if n.suppressed {
		return BlockedSuppressed, nil
	}
	for _, seg := range segments {
		n = n.child(seg)
		if n == nil {
			return DeniedNotFound, nil
		}
		if n.suppressed {
			return BlockedSuppressed, nil
		}
	}
	if n.allowed {
		return Allowed, nil
	}
	return DeniedNotFound, nil
}

// #endregion check

// #region flatten

// Flatten performs a pre-order walk from the root. A suppressed node
// emits nothing and is not descended into — its entire subtree is
// pruned. An allowed, non-suppressed node emits its path. Interior
// nodes (neither allowed nor suppressed) emit nothing but are still
// descended into.
func (s *Store) Flatten() []string {
	var out []string
	flattenRecursive(s.root, nil, &out)
	return out
}

func flattenRecursive(n *Node, prefix []string, out *[]string) {
	if n.suppressed {
		return
	}
	if n.allowed {
		*out = append(*out, JoinPath(prefix))
	}
	for _, pair := range n.orderedChildren() {
		flattenRecursive(pair.node, append(prefix, pair.segment), out)
	}
}

// #endregion flatten

// #region intersection

// Intersection walks both tries in lockstep along shared keys, emitting
// the current path whenever both current nodes have allowed = true.
// Suppression is ignored here — intersection reports the allow-overlap;
// pruning suppressed paths is the Flat Compiler's job. Emission order is
// the pre-order traversal of the receiver's child map.
func (s *Store) Intersection(other *Store) []string {
	var out []string
	intersectRecursive(s.root, other.root, nil, &out)
	return out
}

func intersectRecursive(a, b *Node, prefix []string, out *[]string) {
	if a.allowed && b.allowed {
		*out = append(*out, JoinPath(prefix))
	}
	for _, pair := range a.orderedChildren() {
		bc := b.child(pair.segment)
		if bc == nil {
			continue
		}
		intersectRecursive(pair.node, bc, append(prefix, pair.segment), out)
	}
}

// #endregion intersection

// #region transduce

// PathFilter decides whether a suppressed path from the source store
// should be copied into the receiver during transduction.
type PathFilter func(path string) bool

// AcceptAll is a PathFilter that accepts every path.
func AcceptAll(string) bool { return true }

// TransduceFrom copies suppression (only) from other into the receiver:
// for every path in other whose terminal is suppressed, Suppress(path)
// is called on the receiver iff filter accepts it. Allow flags are never
// copied. Nodes that don't yet exist in the receiver are created by the
// Suppress call itself, so transduction can introduce brand-new suppressed
// subtrees.
func (s *Store) TransduceFrom(other *Store, filter PathFilter) error {
	if filter == nil {
		filter = AcceptAll
	}
	var paths []string
	collectSuppressed(other.root, nil, &paths)
	for _, p := range paths {
		if !filter(p) {
			continue
		}
		if err := s.Suppress(p); err != nil {
			return err
		}
	}
	return nil
}

func collectSuppressed(n *Node, prefix []string, out *[]string) {
	if n.suppressed {
		*out = append(*out, JoinPath(prefix))
	}
	for _, pair := range n.orderedChildren() {
		collectSuppressed(pair.node, append(prefix, pair.segment), out)
	}
}

// #endregion transduce

// #region clone

// Clone produces a deep, independent copy of the store.
func (s *Store) Clone() *Store {
	return &Store{
		ServiceID: s.ServiceID,
		root:      cloneNode(s.root),
		limits:    s.limits,
	}
}

// #endregion clone

// #region introspection

// NodeCount returns the total number of nodes in the tree, including
// the root. Used by the export format's header.
func (s *Store) NodeCount() int {
	return countNodes(s.root)
}

func countNodes(n *Node) int {
	count := 1
	for _, pair := range n.orderedChildren() {
		count += countNodes(pair.node)
	}
	return count
}

// SortedFlatten is a convenience for tests/tools that want a stable,
// order-independent view rather than the pre-order emission contract.
func (s *Store) SortedFlatten() []string {
	out := s.Flatten()
	sort.Strings(out)
	return out
}

// #endregion introspection
