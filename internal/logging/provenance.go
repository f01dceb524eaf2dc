package logging

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS decision_log (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    event_id         TEXT NOT NULL UNIQUE,
    service_id       TEXT NOT NULL,
    path             TEXT NOT NULL,
    trigger_type     TEXT NOT NULL,
    features_json    TEXT,
    decision         TEXT NOT NULL,
    reason           TEXT,
    snapshot_version INTEGER NOT NULL,
    created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decision_log_service ON decision_log(service_id);
`

// #endregion schema

// #region ensure-schema

// EnsureSchema creates the decision_log table if it doesn't exist yet.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("decision log schema: %w", err)
	}
	return nil
}

// #endregion ensure-schema

// #region log-decision

// LogDecision writes a provenance entry to the decision_log table,
// assigning it a fresh EventID if the caller didn't supply one.
func LogDecision(db *sql.DB, entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.EventID == "" {
		entry.EventID = uuid.New().String()
	}

	_, err := db.Exec(
		`INSERT INTO decision_log (event_id, service_id, path, trigger_type, features_json, decision, reason, snapshot_version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.EventID,
		entry.ServiceID,
		entry.Path,
		entry.TriggerType,
		nullIfEmpty(entry.FeaturesJSON),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.SnapshotVersion,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
