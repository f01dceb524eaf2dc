package adaptive

import (
	"time"
)

// #region layer

// AllowFunc applies promotion's allow(path) side effect for a service.
type AllowFunc func(serviceID, path string) error

// Layer owns the adaptive record table for every service the Coordinator
// has registered. It never mutates a trie.Store directly; promotion's
// allow(path) side effect is applied by the caller via the AllowFunc it
// is given at construction, keeping this package independent of which
// store implementation is in use.
type Layer struct {
	config    Config
	allow     AllowFunc
	records   map[string]*Record
	recency   *recencyList
	evictions uint64
}

// New creates an adaptive Layer. allow is called with the side effect of
// a promotion; it is expected to delegate to the Coordinator's
// trie.Store.Allow for the named service.
func New(config Config, allow AllowFunc) *Layer {
	return &Layer{
		config:  config,
		allow:   allow,
		records: make(map[string]*Record),
		recency: newRecencyList(),
	}
}

func recordKey(serviceID, path string) string {
	return serviceID + "\x00" + path
}

// #endregion layer

// #region on-event

// OnEvent runs the §4.C state machine for one (service_id, path) pair
// observed with the given features at time now.
func (l *Layer) OnEvent(serviceID, path string, features Features, now time.Time) Decision {
	key := recordKey(serviceID, path)
	r, exists := l.records[key]
	if !exists {
		r = &Record{
			ServiceID: serviceID,
			Path:      path,
			FirstSeen: now,
			LastSeen:  now,
			State:     Observing,
		}
		l.records[key] = r
		l.enforceCapacity()
	}

	r.Count++
	r.LastSeen = now
	l.recency.touch(key)

	switch r.State {
	case Suppressed:
		return Decision{Outcome: "BLOCK", Reason: "path is suppressed; policy authority, no promotion", Definitive: true}
	case Promoted:
		return Decision{Outcome: "ALLOW", Reason: "path was previously promoted", Definitive: true}
	default: // Observing
		if now.Sub(r.FirstSeen) < l.config.GracePeriod {
			return Decision{Outcome: "OBSERVE", Reason: "observing: grace period", Definitive: false}
		}
		if r.Count < l.config.MinObservations {
			return Decision{Outcome: "OBSERVE", Reason: "observing: minimum observation count not reached", Definitive: false}
		}
		t := l.config.PromoteThreshold
		if features.Frequency >= t.FrequencyMin && features.Anomaly <= t.AnomalyMax && features.Entropy <= t.EntropyMax {
			r.State = Promoted
			if l.allow != nil {
				if err := l.allow(serviceID, path); err != nil {
					return Decision{Outcome: "OBSERVE", Reason: "promotion side effect failed: " + err.Error(), Definitive: false}
				}
			}
			return Decision{Outcome: "ALLOW", Reason: "promoted: grace elapsed and thresholds met", Definitive: true}
		}
		return Decision{Outcome: "OBSERVE", Reason: "observing: thresholds not met", Definitive: false}
	}
}

// #endregion on-event

// #region mutation

// MarkSuppressed transitions a record straight to Suppressed, bypassing
// the grace-period machinery. Called by the Coordinator when the
// Evolutionary Agent chooses SUPPRESS; suppression transduced in from
// another service does not update this table. Suppressed is terminal: no
// auto-rescue, per §4.E's state table.
func (l *Layer) MarkSuppressed(serviceID, path string, now time.Time) {
	key := recordKey(serviceID, path)
	r, exists := l.records[key]
	if !exists {
		r = &Record{ServiceID: serviceID, Path: path, FirstSeen: now}
		l.records[key] = r
		l.enforceCapacity()
	}
	r.State = Suppressed
	r.LastSeen = now
	l.recency.touch(key)
}

// #endregion mutation

// #region capacity

// enforceCapacity evicts least-recently-seen records once the table
// exceeds MaxRecords. Evicting a Promoted record does not revoke its
// underlying allow; evicting a Suppressed record does not revoke its
// suppression — the store, not this table, is authoritative for both.
func (l *Layer) enforceCapacity() {
	if l.config.MaxRecords <= 0 {
		return
	}
	for len(l.records) > l.config.MaxRecords {
		key := l.recency.evictLRU()
		if key == "" {
			return
		}
		delete(l.records, key)
		l.evictions++
	}
}

// #endregion capacity

// #region introspection

// Lookup returns the current record for (serviceID, path), if any.
func (l *Layer) Lookup(serviceID, path string) (Record, bool) {
	r, ok := l.records[recordKey(serviceID, path)]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Len returns the number of tracked records.
func (l *Layer) Len() int {
	return len(l.records)
}

// Evictions returns the running count of LRU evictions.
func (l *Layer) Evictions() uint64 {
	return l.evictions
}

// #endregion introspection
