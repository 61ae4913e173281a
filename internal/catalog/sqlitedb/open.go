// Package sqlitedb centralizes the WAL+busy_timeout+foreign_keys PRAGMA
// discipline every Sonicat sqlite-backed store (CatalogStore, the AppData
// stores under internal/appdata) opens its database with. Grounded on the
// pack's internal/persistence/sqlite.Open: same DSN-embedded-PRAGMA
// approach (so every pooled connection gets them, not just the first),
// same pure-Go modernc.org/sqlite driver so Sonicat carries no cgo
// requirement.
package sqlitedb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Config are the tunables every store opens its file with.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultConfig matches the single-writer-many-reader shape each Sonicat
// store needs: one sqlite file, opened WAL so the app_data worker's writer
// connection doesn't block replica readers.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 8,
	}
}

// Open opens (creating parent directories as needed) the sqlite file at
// path with WAL journaling, a busy timeout, and foreign key enforcement
// applied to every pooled connection.
func Open(path string, cfg Config) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlitedb: mkdir: %w", err)
	}
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path, cfg.BusyTimeout.Milliseconds(),
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitedb: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitedb: ping: %w", err)
	}
	return db, nil
}

// ExportReplica writes a consistent point-in-time copy of the database at
// srcPath to dstPath using sqlite's native VACUUM INTO, which takes its own
// read lock rather than requiring callers to quiesce writers first — the
// mechanism behind every AppDataStore's export_replica (spec §4.6).
func ExportReplica(db *sql.DB, dstPath string) error {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("sqlitedb: mkdir replica dest: %w", err)
	}
	_ = os.Remove(dstPath) // VACUUM INTO refuses to overwrite an existing file
	if _, err := db.Exec("VACUUM INTO ?", dstPath); err != nil {
		return fmt.Errorf("sqlitedb: vacuum into: %w", err)
	}
	return nil
}
