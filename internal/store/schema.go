// Package store provides SQLite-backed persistence for the engine's
// durable state: per-service trie exports, adaptive records, and
// Q-table entries. None of it sits on the detect hot path — the
// Coordinator runs entirely in memory; this package only supports the
// reload-from-snapshot contract the spec explicitly allows (§1
// non-goals: no full durability guarantee beyond that).
package store

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS service_snapshots (
	service_id    TEXT PRIMARY KEY,
	version       INTEGER NOT NULL,
	store_blob    BLOB NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS adaptive_records (
	service_id    TEXT NOT NULL,
	path          TEXT NOT NULL,
	first_seen    TEXT NOT NULL,
	last_seen     TEXT NOT NULL,
	count         INTEGER NOT NULL,
	state         TEXT NOT NULL,
	PRIMARY KEY (service_id, path)
);

CREATE TABLE IF NOT EXISTS qtable_entries (
	state_key     TEXT NOT NULL,
	action        TEXT NOT NULL,
	value         REAL NOT NULL,
	PRIMARY KEY (state_key, action)
);
`

// #endregion schema
