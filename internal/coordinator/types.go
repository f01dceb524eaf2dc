// Package coordinator wires the Path Trie Store, Flat Compiler,
// Adaptive Layer, and Evolutionary Agent together behind a single
// write lock, per service.
package coordinator

import (
	"time"

	"github.com/meshguard/epigenetic-policy-engine/internal/agent"
)

// #region event

// Features is the detector-supplied feature vector for one event.
// DepthOverride, when non-nil, takes precedence over the path's own
// segment count — the external contract (§6) allows the caller to omit
// depth and have it derived from the path.
type Features struct {
	Anomaly       float64
	Entropy       float64
	Frequency     float64
	DepthOverride *int
}

// Event is one detector observation for a (service, path) pair.
type Event struct {
	ServiceID string
	Path      string
	Payload   string
	Features  Features
	Now       time.Time
}

// #endregion event

// #region decision

// Decision is the Coordinator's answer to on_detect, matching §6's
// response shape: `{ "decision": ..., "snapshot_version": ... }`.
// Reason isn't part of the wire contract but travels with the value
// for logging and replay.
type Decision struct {
	Action          string `json:"decision"` // "ALLOW" | "BLOCK" | "OBSERVE"
	Reason          string `json:"-"`
	SnapshotVersion uint64 `json:"snapshot_version"`
}

// #endregion decision

// #region config

// Config bundles every subsystem's configuration surface (§6) under
// one roof, so a single YAML document can configure the whole engine.
type Config struct {
	GracePeriodMS       int64
	MinObservations     uint64
	MaxRecords          int
	PromoteFrequencyMin float64
	PromoteAnomalyMax   float64
	PromoteEntropyMax   float64
	Agent               agent.Config
	MaxSegmentBytes     int
	MaxDepth            int
	MaxSnapshotSize     int
	AgentSeed           int64
}

// DefaultConfig returns the spec's documented defaults (§6) for every
// subsystem at once.
func DefaultConfig() Config {
	return Config{
		GracePeriodMS:       60_000,
		MinObservations:     10,
		MaxRecords:          100_000,
		PromoteFrequencyMin: 0.02,
		PromoteAnomalyMax:   0.3,
		PromoteEntropyMax:   0.7,
		Agent:               agent.DefaultConfig(),
		MaxSegmentBytes:     256,
		MaxDepth:            32,
		MaxSnapshotSize:     0,
		AgentSeed:           1,
	}
}

// #endregion config
