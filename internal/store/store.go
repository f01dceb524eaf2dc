package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/meshguard/epigenetic-policy-engine/internal/agent"
)

// #region store-struct

// Store persists engine state to a SQLite database, pure-Go via
// modernc.org/sqlite (no cgo, matching the teacher's driver choice).
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor

// Open opens (creating if needed) a SQLite database at dbPath and runs
// migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for packages that share this
// store's database (decision_log) rather than
// opening a second handle to the same file.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region service-snapshots

// SaveServiceSnapshot persists a service's EPE1-encoded store blob and
// version. Upserts on service_id.
func (s *Store) SaveServiceSnapshot(serviceID string, version uint64, blob []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO service_snapshots (service_id, version, store_blob, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(service_id) DO UPDATE SET
		   version = excluded.version,
		   store_blob = excluded.store_blob,
		   updated_at = excluded.updated_at`,
		serviceID, version, blob, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save service snapshot: %w", err)
	}
	return nil
}

// LoadServiceSnapshot retrieves the most recently saved blob and
// version for a service. ok is false if nothing has been saved yet.
func (s *Store) LoadServiceSnapshot(serviceID string) (blob []byte, version uint64, ok bool, err error) {
	row := s.db.QueryRow(
		`SELECT version, store_blob FROM service_snapshots WHERE service_id = ?`, serviceID,
	)
	if err := row.Scan(&version, &blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, false, nil
		}
		return nil, 0, false, fmt.Errorf("load service snapshot: %w", err)
	}
	return blob, version, true, nil
}

// ListServices returns every service_id with a saved snapshot.
func (s *Store) ListServices() ([]string, error) {
	rows, err := s.db.Query(`SELECT service_id FROM service_snapshots ORDER BY service_id`)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan service id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// #endregion service-snapshots

// #region adaptive-records

// AdaptiveRecordRow mirrors adaptive.Record for persistence, kept
// independent of that package's types to avoid a storage-layer import
// of the in-memory domain model.
type AdaptiveRecordRow struct {
	ServiceID string
	Path      string
	FirstSeen time.Time
	LastSeen  time.Time
	Count     uint64
	State     string
}

// SaveAdaptiveRecord upserts one adaptive record row.
func (s *Store) SaveAdaptiveRecord(r AdaptiveRecordRow) error {
	_, err := s.db.Exec(
		`INSERT INTO adaptive_records (service_id, path, first_seen, last_seen, count, state)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(service_id, path) DO UPDATE SET
		   last_seen = excluded.last_seen,
		   count = excluded.count,
		   state = excluded.state`,
		r.ServiceID, r.Path,
		r.FirstSeen.UTC().Format(time.RFC3339Nano),
		r.LastSeen.UTC().Format(time.RFC3339Nano),
		r.Count, r.State,
	)
	if err != nil {
		return fmt.Errorf("save adaptive record: %w", err)
	}
	return nil
}

// LoadAdaptiveRecords returns every persisted record for a service.
func (s *Store) LoadAdaptiveRecords(serviceID string) ([]AdaptiveRecordRow, error) {
	rows, err := s.db.Query(
		`SELECT service_id, path, first_seen, last_seen, count, state
		 FROM adaptive_records WHERE service_id = ?`, serviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("load adaptive records: %w", err)
	}
	defer rows.Close()

	var out []AdaptiveRecordRow
	for rows.Next() {
		var r AdaptiveRecordRow
		var firstSeen, lastSeen string
		if err := rows.Scan(&r.ServiceID, &r.Path, &firstSeen, &lastSeen, &r.Count, &r.State); err != nil {
			return nil, fmt.Errorf("scan adaptive record: %w", err)
		}
		r.FirstSeen, _ = time.Parse(time.RFC3339Nano, firstSeen)
		r.LastSeen, _ = time.Parse(time.RFC3339Nano, lastSeen)
		out = append(out, r)
	}
	return out, rows.Err()
}

// #endregion adaptive-records

// #region qtable

// SaveQTable persists every entry of a QTable, replacing the whole
// table transactionally — the table is small (bounded by the
// discretized state space, at most B^4 states times 3 actions) so a
// full replace per checkpoint is simpler and cheap enough to not need
// incremental diffing.
func (s *Store) SaveQTable(q *agent.QTable) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM qtable_entries`); err != nil {
		return fmt.Errorf("clear qtable: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO qtable_entries (state_key, action, value) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range q.Snapshot() {
		if _, err := stmt.Exec(e.StateKey, string(e.Action), e.Value); err != nil {
			return fmt.Errorf("insert qtable entry: %w", err)
		}
	}
	return tx.Commit()
}

// LoadQTable rehydrates a QTable from persisted entries.
func (s *Store) LoadQTable() (*agent.QTable, error) {
	rows, err := s.db.Query(`SELECT state_key, action, value FROM qtable_entries`)
	if err != nil {
		return nil, fmt.Errorf("load qtable: %w", err)
	}
	defer rows.Close()

	q := agent.NewQTable()
	for rows.Next() {
		var key, act string
		var value float64
		if err := rows.Scan(&key, &act, &value); err != nil {
			return nil, fmt.Errorf("scan qtable entry: %w", err)
		}
		q.LoadEntry(agent.Entry{StateKey: key, Action: agent.Action(act), Value: value})
	}
	return q, rows.Err()
}

// #endregion qtable
