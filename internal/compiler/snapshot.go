// Package compiler turns a trie.Store into an immutable, O(1)-lookup
// FlatSnapshot for the data plane, and publishes successive snapshots
// under a single atomically-swapped reference.
package compiler

import (
	"bytes"
	"encoding/binary"

	"github.com/meshguard/epigenetic-policy-engine/internal/policyerr"
)

// #region snapshot

// FlatSnapshot is an immutable set of dotted paths. It is never mutated
// after construction, so it is safe to share across goroutines without
// synchronization.
type FlatSnapshot struct {
	ServiceID string
	Version   uint64
	paths     map[string]struct{}
}

// Contains answers ALLOW in O(1): true iff the exact dotted path is in
// the flattened set. Wildcards are not supported in the flat form.
func (f *FlatSnapshot) Contains(path string) bool {
	if f == nil {
		return false
	}
	_, ok := f.paths[path]
	return ok
}

// Len returns the number of distinct paths in the snapshot.
func (f *FlatSnapshot) Len() int {
	if f == nil {
		return 0
	}
	return len(f.paths)
}

// Paths returns the membership set as a slice. The caller owns the
// returned slice; it is a copy, not a view into the snapshot's internals.
func (f *FlatSnapshot) Paths() []string {
	if f == nil {
		return nil
	}
	out := make([]string, 0, len(f.paths))
	for p := range f.paths {
		out = append(out, p)
	}
	return out
}

// #endregion snapshot

// #region abi

// EncodeABI serializes the snapshot into the data-plane lookup ABI
// (§6): a u64 version header followed by a length-prefixed list of
// UTF-8 dotted paths — a u32 byte length followed by the path's raw
// bytes, repeated once per member. This is distinct from the trie
// store's EPE1 serialization format (internal/trie.Store.Export); the
// ABI carries only the flattened membership set a sidecar needs to
// answer contains(path) → bool, not the tree's allow/suppress
// structure. Little-endian throughout, to match EPE1.
func (f *FlatSnapshot) EncodeABI() ([]byte, error) {
	var buf bytes.Buffer
	if f == nil {
		if err := binary.Write(&buf, binary.LittleEndian, uint64(0)); err != nil {
			return nil, policyerr.Wrap(policyerr.SerializationError, "write version", err)
		}
		return buf.Bytes(), nil
	}

	if err := binary.Write(&buf, binary.LittleEndian, f.Version); err != nil {
		return nil, policyerr.Wrap(policyerr.SerializationError, "write version", err)
	}
	for p := range f.paths {
		pathBytes := []byte(p)
		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(pathBytes))); err != nil {
			return nil, policyerr.Wrap(policyerr.SerializationError, "write path length", err)
		}
		buf.Write(pathBytes)
	}
	return buf.Bytes(), nil
}

// #endregion abi
