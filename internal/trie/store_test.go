package trie

import (
	"testing"
)

func TestAllowSuppressIdempotence(t *testing.T) {
	s := NewStore("svc")
	if err := s.Allow("user.name"); err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if err := s.Allow("user.name"); err != nil {
		t.Fatalf("Allow twice: %v", err)
	}
	before := s.SortedFlatten()

	s2 := NewStore("svc")
	s2.Allow("user.name")
	after := s2.SortedFlatten()

	if len(before) != len(after) || before[0] != after[0] {
		t.Fatalf("idempotence violated: %v vs %v", before, after)
	}
}

// S1 — Basic allow/deny.
func TestScenarioS1BasicAllowDeny(t *testing.T) {
	s := NewStore("svc")
	if err := s.Allow("user.name"); err != nil {
		t.Fatalf("Allow: %v", err)
	}

	if res, _ := s.Check("user.name"); res != Allowed {
		t.Fatalf("expected ALLOWED, got %s", res)
	}
	if res, _ := s.Check("user.email"); res != DeniedNotFound {
		t.Fatalf("expected DENIED_NOT_FOUND for user.email, got %s", res)
	}
	if res, _ := s.Check("user"); res != DeniedNotFound {
		t.Fatalf("expected DENIED_NOT_FOUND for interior node user, got %s", res)
	}
}

// S2 — Ancestor suppression.
func TestScenarioS2AncestorSuppression(t *testing.T) {
	s := NewStore("svc")
	s.Allow("user.email")
	s.Suppress("user")

	if res, _ := s.Check("user.email"); res != BlockedSuppressed {
		t.Fatalf("expected BLOCKED_SUPPRESSED, got %s", res)
	}
	if flat := s.Flatten(); len(flat) != 0 {
		t.Fatalf("expected empty flatten, got %v", flat)
	}
}

// S3 — Compile precedence (flatten half; compiler tested separately).
func TestScenarioS3FlattenPrecedence(t *testing.T) {
	s := NewStore("svc")
	s.Allow("a.b.c")
	s.Allow("a.b.d")
	s.Suppress("a.b")
	s.Allow("x.y")

	flat := s.SortedFlatten()
	if len(flat) != 1 || flat[0] != "x.y" {
		t.Fatalf("expected [x.y], got %v", flat)
	}
}

func TestSuppressionPrecedenceOverAllow(t *testing.T) {
	s := NewStore("svc")
	s.Suppress("a")
	s.Allow("a.b")

	if res, _ := s.Check("a.b"); res != BlockedSuppressed {
		t.Fatalf("expected BLOCKED_SUPPRESSED regardless of allow, got %s", res)
	}
}

func TestSuppressDoesNotClearAllow(t *testing.T) {
	s := NewStore("svc")
	s.Allow("a")
	s.Suppress("a")

	// Check reports BLOCKED_SUPPRESSED (suppression wins), but the allow
	// flag itself is untouched on the node.
	if res, _ := s.Check("a"); res != BlockedSuppressed {
		t.Fatalf("expected BLOCKED_SUPPRESSED, got %s", res)
	}
	if n := s.root.child("a"); n == nil || !n.allowed {
		t.Fatal("expected allowed flag on a to survive Suppress")
	}
}

func TestFlattenDoesNotDescendIntoSuppressed(t *testing.T) {
	s := NewStore("svc")
	s.Allow("a.b.c")
	s.Suppress("a")

	if flat := s.Flatten(); len(flat) != 0 {
		t.Fatalf("expected flatten to prune suppressed subtree entirely, got %v", flat)
	}
}

func TestIntersectionCommutativity(t *testing.T) {
	a := NewStore("a")
	a.Allow("x.y")
	a.Allow("x.z")
	a.Allow("p")

	b := NewStore("b")
	b.Allow("x.y")
	b.Allow("q")

	ab := a.Intersection(b)
	ba := b.Intersection(a)

	if len(ab) != len(ba) {
		t.Fatalf("intersection size mismatch: %v vs %v", ab, ba)
	}
	setA := map[string]bool{}
	for _, p := range ab {
		setA[p] = true
	}
	for _, p := range ba {
		if !setA[p] {
			t.Fatalf("intersection sets differ: %v vs %v", ab, ba)
		}
	}
}

// S6 — Transduction.
func TestScenarioS6Transduction(t *testing.T) {
	a := NewStore("A")
	a.Allow("x")
	a.Suppress("y.z")

	b := NewStore("B")
	if err := b.TransduceFrom(a, AcceptAll); err != nil {
		t.Fatalf("TransduceFrom: %v", err)
	}

	if res, _ := b.Check("y.z"); res != BlockedSuppressed {
		t.Fatalf("expected BLOCKED_SUPPRESSED, got %s", res)
	}
	if res, _ := b.Check("x"); res != DeniedNotFound {
		t.Fatalf("expected DENIED_NOT_FOUND (allow not transduced), got %s", res)
	}
}

func TestTransductionSafety(t *testing.T) {
	source := NewStore("source")
	source.Suppress("a.b")
	source.Suppress("c")

	target := NewStore("target")
	target.Allow("already.allowed")

	if err := target.TransduceFrom(source, AcceptAll); err != nil {
		t.Fatalf("TransduceFrom: %v", err)
	}

	if res, _ := target.Check("a.b"); res != BlockedSuppressed {
		t.Fatal("expected a.b suppressed in target")
	}
	if res, _ := target.Check("c"); res != BlockedSuppressed {
		t.Fatal("expected c suppressed in target")
	}
	if res, _ := target.Check("already.allowed"); res != Allowed {
		t.Fatal("previously allowed path in target must remain allowed")
	}
}

func TestTransductionFilter(t *testing.T) {
	source := NewStore("source")
	source.Suppress("a")
	source.Suppress("b")

	target := NewStore("target")
	onlyA := func(p string) bool { return p == "a" }
	target.TransduceFrom(source, onlyA)

	if res, _ := target.Check("a"); res != BlockedSuppressed {
		t.Fatal("expected a suppressed")
	}
	if res, _ := target.Check("b"); res == BlockedSuppressed {
		t.Fatal("expected b not transduced")
	}
}

func TestClone(t *testing.T) {
	s := NewStore("svc")
	s.Allow("a.b")
	s.Suppress("c")

	clone := s.Clone()
	clone.Allow("d")

	if _, err := s.Check("d"); err == nil {
		if res, _ := s.Check("d"); res == Allowed {
			t.Fatal("mutating clone must not affect original")
		}
	}
	if res, _ := clone.Check("a.b"); res != Allowed {
		t.Fatal("clone should carry over original allows")
	}
}

func TestInvalidPathRejected(t *testing.T) {
	s := NewStore("svc")
	if err := s.Allow("a..b"); err == nil {
		t.Fatal("expected error for empty segment")
	}
	if err := s.Allow(""); err != nil {
		t.Fatalf("empty path denotes root, should be allowed: %v", err)
	}
}

func TestPathDepthLimit(t *testing.T) {
	s := NewStoreWithLimits("svc", Limits{MaxSegmentBytes: 256, MaxDepth: 2})
	if err := s.Allow("a.b"); err != nil {
		t.Fatalf("depth 2 should be within limit: %v", err)
	}
	if err := s.Allow("a.b.c"); err == nil {
		t.Fatal("expected error for path exceeding max depth")
	}
}

func TestSerializationRoundTrip(t *testing.T) {
	s := NewStore("svc")
	s.Allow("a.b.c")
	s.Allow("a.b.d")
	s.Suppress("a.b")
	s.Allow("x.y")

	data, err := s.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	reloaded, err := Import("svc", data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	origFlat := s.SortedFlatten()
	reFlat := reloaded.SortedFlatten()
	if len(origFlat) != len(reFlat) {
		t.Fatalf("flatten mismatch after round trip: %v vs %v", origFlat, reFlat)
	}
	for i := range origFlat {
		if origFlat[i] != reFlat[i] {
			t.Fatalf("flatten mismatch at %d: %s vs %s", i, origFlat[i], reFlat[i])
		}
	}

	for _, p := range []string{"a.b.c", "a.b.d", "a.b", "x.y", "nowhere"} {
		wantRes, _ := s.Check(p)
		gotRes, _ := reloaded.Check(p)
		if wantRes != gotRes {
			t.Fatalf("check mismatch for %s: want %s got %s", p, wantRes, gotRes)
		}
	}
}

func TestImportBadMagic(t *testing.T) {
	if _, err := Import("svc", []byte("nope")); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestImportTruncated(t *testing.T) {
	s := NewStore("svc")
	s.Allow("a.b")
	data, _ := s.Export()

	if _, err := Import("svc", data[:len(data)-3]); err == nil {
		t.Fatal("expected error for truncated data")
	}
}

func TestNodeCount(t *testing.T) {
	s := NewStore("svc")
	s.Allow("a.b")
	s.Allow("a.c")
	// root, a, b, c = 4
	if s.NodeCount() != 4 {
		t.Fatalf("expected 4 nodes, got %d", s.NodeCount())
	}
}
