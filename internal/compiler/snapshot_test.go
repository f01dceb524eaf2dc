package compiler

import (
	"encoding/binary"
	"testing"

	"github.com/meshguard/epigenetic-policy-engine/internal/trie"
)

func TestEncodeABIHeaderCarriesVersion(t *testing.T) {
	s := trie.NewStore("svc")
	s.Allow("a.b")

	snap := Compile(s, 7)
	data, err := snap.EncodeABI()
	if err != nil {
		t.Fatalf("encode abi: %v", err)
	}
	if len(data) < 8 {
		t.Fatalf("expected at least an 8-byte version header, got %d bytes", len(data))
	}
	got := binary.LittleEndian.Uint64(data[:8])
	if got != 7 {
		t.Fatalf("expected version 7 in header, got %d", got)
	}
}

func TestEncodeABIRoundTripsMembership(t *testing.T) {
	s := trie.NewStore("svc")
	s.Allow("a.b")
	s.Allow("c.d.e")
	s.Suppress("a.b.x")

	snap := Compile(s, 1)
	data, err := snap.EncodeABI()
	if err != nil {
		t.Fatalf("encode abi: %v", err)
	}

	got := decodeABIPaths(t, data)
	want := map[string]bool{"a.b": true, "c.d.e": true}
	if len(got) != len(want) {
		t.Fatalf("expected %d paths, got %d: %v", len(want), len(got), got)
	}
	for _, p := range got {
		if !want[p] {
			t.Fatalf("unexpected path %q in encoded ABI", p)
		}
	}
}

func TestEncodeABINilSnapshotIsEmptySet(t *testing.T) {
	var snap *FlatSnapshot
	data, err := snap.EncodeABI()
	if err != nil {
		t.Fatalf("encode abi: %v", err)
	}
	if len(data) != 8 {
		t.Fatalf("expected only the 8-byte version header for a nil snapshot, got %d bytes", len(data))
	}
	if binary.LittleEndian.Uint64(data) != 0 {
		t.Fatal("expected version 0 for a nil snapshot")
	}
}

// decodeABIPaths parses the lookup ABI wire format back into a path
// list, mirroring the decoder a WASM sidecar would implement.
func decodeABIPaths(t *testing.T, data []byte) []string {
	t.Helper()
	if len(data) < 8 {
		t.Fatalf("truncated ABI header: %d bytes", len(data))
	}
	data = data[8:]

	var paths []string
	for len(data) > 0 {
		if len(data) < 4 {
			t.Fatalf("truncated path length prefix")
		}
		n := binary.LittleEndian.Uint32(data[:4])
		data = data[4:]
		if uint32(len(data)) < n {
			t.Fatalf("truncated path body: want %d bytes, have %d", n, len(data))
		}
		paths = append(paths, string(data[:n]))
		data = data[n:]
	}
	return paths
}
