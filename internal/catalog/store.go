// Package catalog implements CatalogStore (spec §4.5): the authoritative
// mapping of assets to files, consulted by the scheduler and every worker.
// Grounded on the teacher's internal/task/state_bbolt.go for the
// cached-lookup/invalidate-on-write shape (there keyed by (task,path,
// checksum) for file processing state; here keyed by asset/label/filetype
// name), reimplemented over modernc.org/sqlite per spec §6's persisted
// store schemas rather than bbolt, because the catalog is a relational
// model (assets, files, labels, filetypes joined by foreign key) that a
// single embedded KV bucket would force back into ad hoc encoding.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/sonicat/sonicat/internal/catalog/sqlitedb"
	"github.com/sonicat/sonicat/internal/names"
)

// Asset is one catalog entry (spec §3).
type Asset struct {
	ID      int64
	Cname   string
	LabelID int64
	Managed bool
}

// Label is a human name plus its derived snake_case directory.
type Label struct {
	ID       int64
	Name     string
	LabelDir string
}

// File is one file inside an Asset.
type File struct {
	ID       int64
	AssetID  int64
	Basename string
	Dirname  string
	Size     int64
	Filetype string // "" if the file carries no meaningful extension
}

const schema = `
CREATE TABLE IF NOT EXISTS label (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	label_dir TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS filetype (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS asset (
	id INTEGER PRIMARY KEY,
	cname TEXT NOT NULL UNIQUE,
	label_id INTEGER NOT NULL REFERENCES label(id),
	managed INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS file (
	id INTEGER PRIMARY KEY,
	asset_id INTEGER NOT NULL REFERENCES asset(id) ON DELETE CASCADE,
	basename TEXT NOT NULL,
	dirname TEXT NOT NULL,
	size INTEGER NOT NULL,
	filetype_id INTEGER REFERENCES filetype(id),
	UNIQUE(asset_id, dirname, basename)
);
`

// Store is the CatalogStore: a read interface open to every worker, and a
// write interface held only by catalog_intake and app_data (spec §4.5).
type Store struct {
	db *sql.DB

	mu           sync.RWMutex
	filetypeIDs  map[string]int64
	labelIDs     map[string]int64
	cnameByAsset map[int64]string
}

// Open opens (creating if absent) the catalog sqlite file at path and
// ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sqlitedb.Open(path, sqlitedb.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}
	return &Store{
		db:           db,
		filetypeIDs:  map[string]int64{},
		labelIDs:     map[string]int64{},
		cnameByAsset: map[int64]string{},
	}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// AllAssetIDs returns every asset id in the store. catalog is accepted for
// interface symmetry with AppDataStore.completed/failed but is currently
// unused: a Store is one catalog's database, scoped by which sqlite file
// the caller opened.
func (s *Store) AllAssetIDs(ctx context.Context, catalog string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM asset`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all_asset_ids: %w", err)
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

// Cname resolves an asset id to its canonical name, via cache.
func (s *Store) Cname(ctx context.Context, assetID int64) (string, error) {
	s.mu.RLock()
	if cn, ok := s.cnameByAsset[assetID]; ok {
		s.mu.RUnlock()
		return cn, nil
	}
	s.mu.RUnlock()

	var cn string
	err := s.db.QueryRowContext(ctx, `SELECT cname FROM asset WHERE id = ?`, assetID).Scan(&cn)
	if err != nil {
		return "", fmt.Errorf("catalog: cname: %w", err)
	}
	s.mu.Lock()
	s.cnameByAsset[assetID] = cn
	s.mu.Unlock()
	return cn, nil
}

// IsManaged reports whether assetID's archive is owned by this system
// (spec §3's managed flag), consulted by the scheduler before requesting a
// restore (spec §4.1: "if extraction would be requested for an asset whose
// managed flag is false, the whole asset is skipped").
func (s *Store) IsManaged(ctx context.Context, assetID int64) (bool, error) {
	var managed int
	err := s.db.QueryRowContext(ctx, `SELECT managed FROM asset WHERE id = ?`, assetID).Scan(&managed)
	if err != nil {
		return false, fmt.Errorf("catalog: is_managed: %w", err)
	}
	return managed != 0, nil
}

// FilesByAsset returns every File belonging to assetID, optionally filtered
// to a set of filetypes (empty = no filter).
func (s *Store) FilesByAsset(ctx context.Context, assetID int64, filetypes []string) ([]File, error) {
	query := `
		SELECT f.id, f.asset_id, f.basename, f.dirname, f.size, COALESCE(ft.name, '')
		FROM file f LEFT JOIN filetype ft ON ft.id = f.filetype_id
		WHERE f.asset_id = ?`
	args := []any{assetID}
	if len(filetypes) > 0 {
		query += ` AND ft.name IN (` + placeholders(len(filetypes)) + `)`
		for _, ft := range filetypes {
			args = append(args, ft)
		}
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: files_by_asset: %w", err)
	}
	defer rows.Close()
	var out []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.AssetID, &f.Basename, &f.Dirname, &f.Size, &f.Filetype); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// IntakeAsset inserts a new asset (and its label/filetypes if not already
// known) plus its files, as a single transaction (spec §4.5: "all writes
// within a single asset intake are a single transaction that either fully
// commits or leaves the store unchanged").
func (s *Store) IntakeAsset(ctx context.Context, cname string, managed bool, files []File) (int64, error) {
	if !names.IsCanonical(cname) {
		return 0, fmt.Errorf("catalog: intake: %q is not a canonical name", cname)
	}
	labelName := names.Divide(cname).Label
	labelDir := names.LabelDir(cname)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	labelID, err := s.labelIDTx(ctx, tx, labelName, labelDir)
	if err != nil {
		return 0, err
	}

	managedInt := 0
	if managed {
		managedInt = 1
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO asset (cname, label_id, managed) VALUES (?, ?, ?)`,
		cname, labelID, managedInt)
	if err != nil {
		return 0, fmt.Errorf("catalog: insert asset: %w", err)
	}
	assetID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, f := range files {
		var filetypeID sql.NullInt64
		if f.Filetype != "" {
			id, err := s.filetypeIDTx(ctx, tx, f.Filetype)
			if err != nil {
				return 0, err
			}
			filetypeID = sql.NullInt64{Int64: id, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO file (asset_id, basename, dirname, size, filetype_id) VALUES (?, ?, ?, ?, ?)`,
			assetID, f.Basename, f.Dirname, f.Size, filetypeID,
		); err != nil {
			return 0, fmt.Errorf("catalog: insert file %s/%s: %w", f.Dirname, f.Basename, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("catalog: commit: %w", err)
	}

	s.mu.Lock()
	s.cnameByAsset[assetID] = cname
	s.mu.Unlock()
	return assetID, nil
}

func (s *Store) labelIDTx(ctx context.Context, tx *sql.Tx, name, dir string) (int64, error) {
	s.mu.RLock()
	if id, ok := s.labelIDs[dir]; ok {
		s.mu.RUnlock()
		return id, nil
	}
	s.mu.RUnlock()

	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM label WHERE label_dir = ?`, dir).Scan(&id)
	if err == sql.ErrNoRows {
		res, err := tx.ExecContext(ctx, `INSERT INTO label (name, label_dir) VALUES (?, ?)`, name, dir)
		if err != nil {
			return 0, fmt.Errorf("catalog: insert label: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, fmt.Errorf("catalog: lookup label: %w", err)
	}

	s.mu.Lock()
	s.labelIDs[dir] = id
	s.mu.Unlock()
	return id, nil
}

func (s *Store) filetypeIDTx(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	s.mu.RLock()
	if id, ok := s.filetypeIDs[name]; ok {
		s.mu.RUnlock()
		return id, nil
	}
	s.mu.RUnlock()

	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM filetype WHERE name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		res, err := tx.ExecContext(ctx, `INSERT INTO filetype (name) VALUES (?)`, name)
		if err != nil {
			return 0, fmt.Errorf("catalog: insert filetype: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, fmt.Errorf("catalog: lookup filetype: %w", err)
	}

	s.mu.Lock()
	s.filetypeIDs[name] = id
	s.mu.Unlock()
	return id, nil
}

func placeholders(n int) string {
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, '?')
	}
	return string(out)
}
