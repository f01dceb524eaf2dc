// Package adaptive implements the schema-evolution governor: per-path
// frequency and grace-period tracking that promotes newly observed
// paths to allowed only after they prove stable, and never auto-allows
// a path the operator or agent has suppressed.
package adaptive

import "time"

// #region state

// RecordState is the lifecycle stage of one (service, path) pair.
type RecordState string

const (
	Observing  RecordState = "OBSERVING"
	Promoted   RecordState = "PROMOTED"
	Suppressed RecordState = "SUPPRESSED"
)

// #endregion state

// #region features

// Features is the per-event feature vector the caller supplies. Ranges
// mirror the spec's data model: anomaly/entropy/frequency in [0,1],
// depth a non-negative segment count.
type Features struct {
	Anomaly   float64
	Entropy   float64
	Frequency float64
	Depth     int
}

// #endregion features

// #region record

// Record is the per-(service_id, path) bookkeeping row.
type Record struct {
	ServiceID string
	Path      string
	FirstSeen time.Time
	LastSeen  time.Time
	Count     uint64
	State     RecordState
}

// #endregion record

// #region config

// PromoteThreshold gates promotion on top of the grace period: all three
// bounds must hold simultaneously (frequency floor, anomaly ceiling,
// entropy ceiling) so that sheer repetition alone can never promote a
// path — the defense against synonym-flood attackers (§4.C, scenario S5).
type PromoteThreshold struct {
	FrequencyMin float64
	AnomalyMax   float64
	EntropyMax   float64
}

// Config is the adaptive layer's configuration surface, per §6.
type Config struct {
	GracePeriod      time.Duration
	MinObservations  uint64
	MaxRecords       int
	PromoteThreshold PromoteThreshold
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		GracePeriod:     60 * time.Second,
		MinObservations: 10,
		MaxRecords:      100_000,
		PromoteThreshold: PromoteThreshold{
			FrequencyMin: 0.02,
			AnomalyMax:   0.3,
			EntropyMax:   0.7,
		},
	}
}

// #endregion config

// #region decision

// Decision is the adaptive layer's verdict for one event. A Definitive
// decision (Promoted just happened, or the record was already
// Promoted/Suppressed) short-circuits the Coordinator's call into the
// Evolutionary Agent — per §9, the agent is not consulted when the
// adaptive layer already has a definitive answer.
type Decision struct {
	Outcome    string // "ALLOW" | "BLOCK" | "OBSERVE"
	Reason     string
	Definitive bool
}

// #endregion decision
