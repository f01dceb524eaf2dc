package coordinator

import (
	"database/sql"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/meshguard/epigenetic-policy-engine/internal/adaptive"
	"github.com/meshguard/epigenetic-policy-engine/internal/agent"
	"github.com/meshguard/epigenetic-policy-engine/internal/compiler"
	"github.com/meshguard/epigenetic-policy-engine/internal/gate"
	"github.com/meshguard/epigenetic-policy-engine/internal/logging"
	"github.com/meshguard/epigenetic-policy-engine/internal/metrics"
	"github.com/meshguard/epigenetic-policy-engine/internal/policyerr"
	"github.com/meshguard/epigenetic-policy-engine/internal/trie"
)

// #region engine

// engine is the per-service state the Coordinator owns: its own
// trie.Store and compiler.Publisher, sharing the Coordinator's single
// Adaptive Layer and Agent/QTable.
type engine struct {
	store     *trie.Store
	publisher *compiler.Publisher
}

// #endregion engine

// #region coordinator-struct

// Coordinator is the single owner of write access to every registered
// service's PolicyStore, the shared AdaptiveLayer record table, and
// the shared QTable (§4.E, §5). mu serializes every mutating call;
// readers of a published FlatSnapshot never need it.
type Coordinator struct {
	mu            sync.Mutex
	config        Config
	engines       map[string]*engine
	layer         *adaptive.Layer
	agent         *agent.Agent
	pathLim       trie.Limits
	metrics       *metrics.Metrics
	decisionDB    *sql.DB
	lastEvictions uint64
}

// #endregion coordinator-struct

// #region constructor

// New creates a Coordinator with no services registered yet.
func New(config Config) *Coordinator {
	c := &Coordinator{
		config:  config,
		engines: make(map[string]*engine),
		pathLim: trie.Limits{MaxSegmentBytes: config.MaxSegmentBytes, MaxDepth: config.MaxDepth},
	}
	c.agent = agent.New(config.Agent, config.AgentSeed)
	c.layer = adaptive.New(adaptiveConfig(config), c.allowSideEffect)
	return c
}

func adaptiveConfig(c Config) adaptive.Config {
	return adaptive.Config{
		GracePeriod:     msToDuration(c.GracePeriodMS),
		MinObservations: c.MinObservations,
		MaxRecords:      c.MaxRecords,
		PromoteThreshold: adaptive.PromoteThreshold{
			FrequencyMin: c.PromoteFrequencyMin,
			AnomalyMax:   c.PromoteAnomalyMax,
			EntropyMax:   c.PromoteEntropyMax,
		},
	}
}

// UseMetrics attaches a Prometheus metric set. Safe to skip entirely —
// every recording site below is nil-checked, since not every caller
// (tests, CLI tools) wants a metrics server running.
func (c *Coordinator) UseMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// UseDecisionLog attaches a SQLite handle to record every OnDetect
// outcome for audit and delayed ground-truth labeling. Ensures the
// decision_log table exists before returning.
func (c *Coordinator) UseDecisionLog(db *sql.DB) error {
	if err := logging.EnsureSchema(db); err != nil {
		return err
	}
	c.decisionDB = db
	return nil
}

// #endregion constructor

// #region registration

// Register creates the per-service engine (store + publisher) if it
// does not already exist. Idempotent.
func (c *Coordinator) Register(serviceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getOrCreateEngine(serviceID)
}

func (c *Coordinator) getOrCreateEngine(serviceID string) *engine {
	e, ok := c.engines[serviceID]
	if ok {
		return e
	}
	e = &engine{
		store:     trie.NewStoreWithLimits(serviceID, c.pathLim),
		publisher: compiler.NewPublisher(gate.Config{MaxSnapshotSize: c.config.MaxSnapshotSize}),
	}
	c.engines[serviceID] = e
	return e
}

// allowSideEffect is the AllowFunc handed to the Adaptive Layer: a
// promotion calls back into the originating service's store.
func (c *Coordinator) allowSideEffect(serviceID, path string) error {
	e := c.getOrCreateEngine(serviceID)
	return e.store.Allow(path)
}

// #endregion registration

// #region on-detect

// OnDetect runs the detect→decide→mutate→recompile pipeline (§4.E) for
// a single event. Malformed paths fail closed: a definitive BLOCK with
// no store mutation and no adaptive update (§7).
func (c *Coordinator) OnDetect(ev Event) (Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metrics != nil {
		timer := prometheusTimer(c.metrics.DetectDuration)
		defer timer()
		c.metrics.DetectTotal.WithLabelValues(ev.ServiceID).Inc()
	}

	e := c.getOrCreateEngine(ev.ServiceID)

	segments, err := trie.ParsePath(ev.Path, c.pathLim)
	if err != nil {
		return Decision{Action: "BLOCK", Reason: "invalid path: " + err.Error()}, err
	}

	depth := len(segments)
	if ev.Features.DepthOverride != nil {
		depth = *ev.Features.DepthOverride
	}

	adaptiveFeatures := adaptive.Features{
		Anomaly:   ev.Features.Anomaly,
		Entropy:   ev.Features.Entropy,
		Frequency: ev.Features.Frequency,
		Depth:     depth,
	}

	featuresJSON := encodeDetectFeatures(ev, depth)

	ad := c.layer.OnEvent(ev.ServiceID, ev.Path, adaptiveFeatures, ev.Now)
	if ad.Definitive {
		if c.metrics != nil && ad.Outcome == "ALLOW" && ad.Reason == "promoted: grace elapsed and thresholds met" {
			c.metrics.PromotionTotal.Inc()
		}
		return c.finish(e, ev.ServiceID, ev.Path, "adaptive", featuresJSON, ad.Outcome, ad.Reason)
	}

	state := agent.NewState(depth, ev.Features.Anomaly, ev.Features.Entropy, ev.Features.Frequency)
	act := c.agent.Select(state)

	var reason string
	switch act {
	case agent.ActionAllow:
		if err := e.store.Allow(ev.Path); err != nil {
			return Decision{Action: "BLOCK", Reason: "allow failed: " + err.Error()}, err
		}
		reason = "agent selected ALLOW"
	case agent.ActionSuppress:
		if err := e.store.Suppress(ev.Path); err != nil {
			return Decision{Action: "BLOCK", Reason: "suppress failed: " + err.Error()}, err
		}
		c.layer.MarkSuppressed(ev.ServiceID, ev.Path, ev.Now)
		if c.metrics != nil {
			c.metrics.SuppressionTotal.Inc()
		}
		reason = "agent selected SUPPRESS"
	default:
		reason = "agent selected OBSERVE"
	}

	return c.finish(e, ev.ServiceID, ev.Path, "agent", featuresJSON, actionToOutcome(act), reason)
}

func actionToOutcome(a agent.Action) string {
	switch a {
	case agent.ActionAllow:
		return "ALLOW"
	case agent.ActionSuppress:
		return "BLOCK"
	default:
		return "OBSERVE"
	}
}

func encodeDetectFeatures(ev Event, depth int) string {
	rec := logging.DetectRecord{
		ServiceID: ev.ServiceID,
		Path:      ev.Path,
		Payload:   ev.Payload,
		Anomaly:   ev.Features.Anomaly,
		Entropy:   ev.Features.Entropy,
		Frequency: ev.Features.Frequency,
		Depth:     depth,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return ""
	}
	return string(data)
}

// finish recompiles and publishes the service's snapshot (on every
// call, whether or not this event changed the store) and returns the
// final Decision. A publish rejection (e.g.
// over the configured snapshot cap) leaves the previous snapshot
// intact and is logged, not surfaced — the detect response still
// reflects the store decision that was already made.
func (c *Coordinator) finish(e *engine, serviceID, path, triggerType, featuresJSON, outcome, reason string) (Decision, error) {
	snap, err := e.publisher.CompileAndPublish(e.store)
	if err != nil {
		log.Printf("[COORD] snapshot publish rejected: %v", err)
		snap = e.publisher.Load()
	}
	var version uint64
	if snap != nil {
		version = snap.Version
	}
	if c.decisionDB != nil {
		entry := logging.DecisionEntry{
			ServiceID:       serviceID,
			Path:            path,
			TriggerType:     triggerType,
			FeaturesJSON:    featuresJSON,
			Decision:        outcome,
			Reason:          reason,
			SnapshotVersion: version,
		}
		if err := logging.LogDecision(c.decisionDB, entry); err != nil {
			log.Printf("[COORD] decision log write failed: %v", err)
		}
	}
	if c.metrics != nil {
		c.metrics.DecisionTotal.WithLabelValues(e.store.ServiceID, outcome).Inc()
		c.metrics.SnapshotVersion.WithLabelValues(e.store.ServiceID).Set(float64(version))
		if evicted := c.layer.Evictions(); evicted > c.lastEvictions {
			c.metrics.AdaptiveEvictions.Add(float64(evicted - c.lastEvictions))
			c.lastEvictions = evicted
		}
	}
	return Decision{Action: outcome, Reason: reason, SnapshotVersion: version}, nil
}

// #endregion on-detect

// #region training

// TrainAgent applies the ground-truth label for a past decision to the
// Q-table (§4.D steps 2-3). Real-time detect responses never carry a
// label — the detect payload (§6) has none — so this is invoked from
// a delayed feedback channel (e.g. a replay harness with known
// ground truth), not from OnDetect itself.
func (c *Coordinator) TrainAgent(state agent.State, act agent.Action, outcome agent.Outcome, next agent.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.agent.Update(state, act, c.agent.Reward(outcome), next); err != nil {
		log.Printf("[COORD] agent degraded: %v", err)
		if c.metrics != nil {
			c.metrics.AgentDegradedTotal.Inc()
		}
		return nil // AgentDegraded never reaches the caller (§7)
	}
	return nil
}

// #endregion training

// #region snapshot

// Snapshot returns the currently published FlatSnapshot for a service.
// Requesting a service that has never been registered is UnknownService.
func (c *Coordinator) Snapshot(serviceID string) (*compiler.FlatSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.engines[serviceID]
	if !ok {
		return nil, policyerr.New(policyerr.UnknownService, "service "+serviceID+" never registered")
	}
	return e.publisher.Load(), nil
}

// #endregion snapshot

// #region transduction

// Transduce copies suppression (only) from source's store into
// target's store, subject to filter. Either service is registered on
// demand if it is not yet — transduction can legitimately be the first
// event a target service ever sees.
func (c *Coordinator) Transduce(sourceService, targetService string, filter trie.PathFilter) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	source := c.getOrCreateEngine(sourceService)
	target := c.getOrCreateEngine(targetService)
	if err := target.store.TransduceFrom(source.store, filter); err != nil {
		return err
	}
	_, err := target.publisher.CompileAndPublish(target.store)
	return err
}

// #endregion transduction

// #region serialization

// Export serializes a service's store in EPE1 format.
func (c *Coordinator) Export(serviceID string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.engines[serviceID]
	if !ok {
		return nil, policyerr.New(policyerr.UnknownService, "service "+serviceID+" never registered")
	}
	return e.store.Export()
}

// Reload replaces a service's store from EPE1 bytes and republishes.
func (c *Coordinator) Reload(serviceID string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	restored, err := trie.Import(serviceID, data)
	if err != nil {
		return err
	}
	e := c.getOrCreateEngine(serviceID)
	e.store = restored
	_, err = e.publisher.CompileAndPublish(e.store)
	return err
}

// #endregion serialization

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func prometheusTimer(h prometheus.Histogram) func() {
	t := prometheus.NewTimer(h)
	return func() { t.ObserveDuration() }
}
