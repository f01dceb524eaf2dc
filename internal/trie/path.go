package trie

import (
	"strings"
	"unicode/utf8"

	"github.com/meshguard/epigenetic-policy-engine/internal/policyerr"
)

// #region limits

// Limits bounds the size of a parsed path. Configurable per §6; these are
// the documented defaults.
type Limits struct {
	MaxSegmentBytes int
	MaxDepth        int
}

// DefaultLimits returns the spec's documented path defaults.
func DefaultLimits() Limits {
	return Limits{MaxSegmentBytes: 256, MaxDepth: 32}
}

// #endregion limits

// #region parse

// ParsePath splits a dotted path string into segments with no escape
// processing. Empty segments (e.g. "a..b") are rejected, as are
// non-UTF-8 input, oversized segments, and excessive depth.
func ParsePath(path string, limits Limits) ([]string, error) {
	if !utf8.ValidString(path) {
		return nil, policyerr.New(policyerr.InvalidPath, "path is not valid UTF-8")
	}
	if path == "" {
		return []string{}, nil
	}
	segments := strings.Split(path, ".")
	if len(segments) > limits.MaxDepth {
		return nil, policyerr.New(policyerr.InvalidPath, "path exceeds maximum depth")
	}
	for _, seg := range segments {
		if seg == "" {
			return nil, policyerr.New(policyerr.InvalidPath, "path contains an empty segment")
		}
		if len(seg) > limits.MaxSegmentBytes {
			return nil, policyerr.New(policyerr.InvalidPath, "path segment exceeds maximum length")
		}
	}
	return segments, nil
}

// JoinPath reassembles segments into a dotted path string.
func JoinPath(segments []string) string {
	return strings.Join(segments, ".")
}

// #endregion parse
