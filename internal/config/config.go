// Package config loads the engine's YAML configuration surface (§6)
// and applies environment-variable overrides, the way the rest of the
// stack configures its runtime pieces.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/meshguard/epigenetic-policy-engine/internal/agent"
	"github.com/meshguard/epigenetic-policy-engine/internal/coordinator"
)

// #region document

// PromoteThreshold mirrors §4.C's three-way gate in YAML form.
type PromoteThreshold struct {
	FrequencyMin float64 `yaml:"frequency_min"`
	AnomalyMax   float64 `yaml:"anomaly_max"`
	EntropyMax   float64 `yaml:"entropy_max"`
}

// AgentConfig mirrors §4.D's learning parameters in YAML form.
type AgentConfig struct {
	Alpha                float64 `yaml:"alpha"`
	Gamma                float64 `yaml:"gamma"`
	EpsilonStart         float64 `yaml:"epsilon_start"`
	EpsilonEnd           float64 `yaml:"epsilon_end"`
	EpsilonDecayEpisodes int     `yaml:"epsilon_decay_episodes"`
	FeatureBuckets       int     `yaml:"feature_buckets"`
}

// PathConfig mirrors §4.A's path-parsing limits in YAML form.
type PathConfig struct {
	MaxSegmentBytes int `yaml:"max_segment_bytes"`
	MaxDepth        int `yaml:"max_depth"`
}

// Document is the top-level config.yaml structure, matching the
// enumerated configuration surface in §6.
type Document struct {
	GracePeriodMS    int64            `yaml:"grace_period_ms"`
	MinObservations  uint64           `yaml:"min_observations"`
	MaxRecords       int              `yaml:"max_records"`
	PromoteThreshold PromoteThreshold `yaml:"promote_threshold"`
	Agent            AgentConfig      `yaml:"agent"`
	Path             PathConfig       `yaml:"path"`
	MaxSnapshotSize  int              `yaml:"max_snapshot_size"`
	DatabasePath     string           `yaml:"database_path"`
	ListenAddr       string           `yaml:"listen_addr"`
	MetricsAddr      string           `yaml:"metrics_addr"`
}

// #endregion document

// #region defaults

// Default returns the spec's documented defaults (§4.C, §4.D, §4.A).
func Default() Document {
	return Document{
		GracePeriodMS:   60_000,
		MinObservations: 10,
		MaxRecords:      100_000,
		PromoteThreshold: PromoteThreshold{
			FrequencyMin: 0.02,
			AnomalyMax:   0.3,
			EntropyMax:   0.7,
		},
		Agent: AgentConfig{
			Alpha: 0.1, Gamma: 0.9,
			EpsilonStart: 0.3, EpsilonEnd: 0.01, EpsilonDecayEpisodes: 1000,
			FeatureBuckets: 4,
		},
		Path: PathConfig{MaxSegmentBytes: 256, MaxDepth: 32},
		MaxSnapshotSize: 0,
		DatabasePath:    "epigenetic_policy.db",
		ListenAddr:      ":8080",
		MetricsAddr:     ":9090",
	}
}

// #endregion defaults

// #region load

// Load reads and parses a YAML config file at path, layering it over
// Default() — fields absent from the file keep their defaults.
func Load(path string) (Document, error) {
	doc := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse config: %w", err)
	}
	applyEnvOverrides(&doc)
	return doc, nil
}

// applyEnvOverrides layers environment variables over the parsed
// document, following the host-integrates-it posture §6 calls for:
// the spec mandates no particular variable names, so these are this
// deployment's own convention, namespaced EPE_*.
func applyEnvOverrides(doc *Document) {
	if v := os.Getenv("EPE_DATABASE_PATH"); v != "" {
		doc.DatabasePath = v
	}
	if v := os.Getenv("EPE_LISTEN_ADDR"); v != "" {
		doc.ListenAddr = v
	}
	if v := os.Getenv("EPE_METRICS_ADDR"); v != "" {
		doc.MetricsAddr = v
	}
	if v := os.Getenv("EPE_GRACE_PERIOD_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			doc.GracePeriodMS = n
		}
	}
	if v := os.Getenv("EPE_MAX_RECORDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			doc.MaxRecords = n
		}
	}
}

// #endregion load

// #region coordinator-config

// ToCoordinatorConfig adapts the parsed document into
// coordinator.Config, the shape the engine's runtime actually wants.
func (d Document) ToCoordinatorConfig() coordinator.Config {
	buckets := d.Agent.FeatureBuckets
	if buckets <= 0 {
		buckets = 4
	}
	return coordinator.Config{
		GracePeriodMS:       d.GracePeriodMS,
		MinObservations:     d.MinObservations,
		MaxRecords:          d.MaxRecords,
		PromoteFrequencyMin: d.PromoteThreshold.FrequencyMin,
		PromoteAnomalyMax:   d.PromoteThreshold.AnomalyMax,
		PromoteEntropyMax:   d.PromoteThreshold.EntropyMax,
		MaxSegmentBytes:     d.Path.MaxSegmentBytes,
		MaxDepth:            d.Path.MaxDepth,
		MaxSnapshotSize:     d.MaxSnapshotSize,
		AgentSeed:           1,
		Agent:               agentConfigFrom(d.Agent),
	}
}

func agentConfigFrom(a AgentConfig) agent.Config {
	return agent.Config{
		Alpha:                a.Alpha,
		Gamma:                a.Gamma,
		EpsilonStart:         a.EpsilonStart,
		EpsilonEnd:           a.EpsilonEnd,
		EpsilonDecayEpisodes: a.EpsilonDecayEpisodes,
		Rewards:              agent.DefaultRewardTable(),
	}
}

// #endregion coordinator-config
