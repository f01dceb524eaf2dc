package logging

import "time"

// #region decision-entry

// DecisionEntry is a single row in the decision_log table: the full
// context and outcome of one Coordinator.OnDetect call, kept for
// after-the-fact audit and for replay's ground-truth labeling.
type DecisionEntry struct {
	EventID         string // assigned by LogDecision if left empty
	ServiceID       string
	Path            string
	TriggerType     string // "adaptive" | "agent"
	FeaturesJSON    string
	Decision        string // "ALLOW" | "OBSERVE" | "BLOCK"
	Reason          string
	SnapshotVersion uint64
	CreatedAt       time.Time
}

// #endregion decision-entry

// #region detect-record

// DetectRecord captures the complete inputs to a single detect call,
// serialized as JSON into decision_log.features_json for deterministic
// replay and for feeding a delayed-feedback labeling pipeline.
type DetectRecord struct {
	ServiceID string  `json:"service_id"`
	Path      string  `json:"path"`
	Payload   string  `json:"payload,omitempty"`
	Anomaly   float64 `json:"anomaly"`
	Entropy   float64 `json:"entropy"`
	Frequency float64 `json:"frequency"`
	Depth     int     `json:"depth"`

	Decision        string `json:"decision"`
	Reason          string `json:"reason"`
	SnapshotVersion uint64 `json:"snapshot_version"`
}

// #endregion detect-record
