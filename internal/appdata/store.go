// Package appdata implements the AppDataStore contract (spec §4.6): one
// per-worker derived-data store holding that worker's CompletionLedger,
// FailedSearchLedger, and primary result payloads. Grounded the same way as
// internal/catalog — sqlitedb's shared PRAGMA discipline — because the
// ledgers the scheduler's make_tasks reads as negative filters are exactly
// the kind of indexed, queryable set a relational table serves better than
// an embedded KV bucket.
package appdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sonicat/sonicat/internal/catalog/sqlitedb"
)

const schema = `
CREATE TABLE IF NOT EXISTS log (
	catalog TEXT NOT NULL,
	asset_id INTEGER NOT NULL,
	PRIMARY KEY (catalog, asset_id)
);
CREATE TABLE IF NOT EXISTS failed_search (
	catalog TEXT NOT NULL,
	asset_id INTEGER NOT NULL,
	PRIMARY KEY (catalog, asset_id)
);
CREATE TABLE IF NOT EXISTS result (
	catalog TEXT NOT NULL,
	asset_id INTEGER NOT NULL,
	key TEXT NOT NULL,
	payload TEXT NOT NULL,
	PRIMARY KEY (catalog, asset_id, key)
);
`

// Store is one worker's AppDataStore: a single sqlite file under
// <sonicat_path>/data/<type>/<moniker>.sqlite (spec §6).
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the AppData sqlite file at path.
func Open(path string) (*Store, error) {
	db, err := sqlitedb.Open(path, sqlitedb.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("appdata: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// RecordResult appends the worker's primary output for (catalog, assetID)
// under key and marks the asset complete, in one transaction — a worker
// that crashes between writing its payload and updating the ledger must
// not leave the asset looking done with no data, or looking pending with
// orphaned data.
func (s *Store) RecordResult(ctx context.Context, catalog string, assetID int64, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("appdata: marshal payload: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("appdata: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO result (catalog, asset_id, key, payload) VALUES (?, ?, ?, ?)
		 ON CONFLICT(catalog, asset_id, key) DO UPDATE SET payload = excluded.payload`,
		catalog, assetID, key, string(data)); err != nil {
		return fmt.Errorf("appdata: insert result: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO log (catalog, asset_id) VALUES (?, ?)`,
		catalog, assetID); err != nil {
		return fmt.Errorf("appdata: insert log: %w", err)
	}
	// A retry that finally succeeds must clear any stale failure record
	// (spec §4.1 tie-break: completed wins over failed).
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM failed_search WHERE catalog = ? AND asset_id = ?`,
		catalog, assetID); err != nil {
		return fmt.Errorf("appdata: clear failed_search: %w", err)
	}
	return tx.Commit()
}

// RecordFailedSearch marks (catalog, assetID) as validation-failed. Worker
// types other than the metadata apps never call this (spec §4.6).
func (s *Store) RecordFailedSearch(ctx context.Context, catalog string, assetID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO failed_search (catalog, asset_id) VALUES (?, ?)`,
		catalog, assetID)
	if err != nil {
		return fmt.Errorf("appdata: record failed search: %w", err)
	}
	return nil
}

// PurgeFailedSearch removes (catalog, assetID) from the FailedSearchLedger,
// forcing a retry at the next make_tasks pass — the manual purge spec §3
// names.
func (s *Store) PurgeFailedSearch(ctx context.Context, catalog string, assetID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM failed_search WHERE catalog = ? AND asset_id = ?`, catalog, assetID)
	return err
}

// Completed returns the asset ids this worker has fully processed for
// catalog.
func (s *Store) Completed(ctx context.Context, catalog string) ([]int64, error) {
	return s.queryIDs(ctx, `SELECT asset_id FROM log WHERE catalog = ?`, catalog)
}

// Failed returns the asset ids this worker tried and failed validation for.
func (s *Store) Failed(ctx context.Context, catalog string) ([]int64, error) {
	return s.queryIDs(ctx, `SELECT asset_id FROM failed_search WHERE catalog = ?`, catalog)
}

func (s *Store) queryIDs(ctx context.Context, query, catalog string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, catalog)
	if err != nil {
		return nil, fmt.Errorf("appdata: query: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ExportReplica snapshots this store to dstPath for read-replica
// consumption (spec §4.6).
func (s *Store) ExportReplica(dstPath string) error {
	return sqlitedb.ExportReplica(s.db, dstPath)
}
