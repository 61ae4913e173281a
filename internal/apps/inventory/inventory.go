// Package inventory implements the inventory worker (spec §4.4):
// inventory.inventory walks an asset's directory tree and produces the raw
// file listing a catalog_intake or app_data worker later persists. Grounded
// on original_source's apps/sys/Inventory.py — FileUtility.survey_asset_files
// plus the Cleanse blacklist pass that precedes it — reshaped into Sonicat's
// Worker contract instead of a direct catalog write (spec §4.3: "inventory →
// app_data, new file listing must be persisted before archiving").
package inventory

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sonicat/sonicat/internal/task"
)

// Blacklist holds basenames and dirnames removed from an asset tree before
// it is surveyed, mirroring original_source's Cleanse(file-blacklist.yaml).
type Blacklist struct {
	Basenames []string
	Dirnames  []string
}

// DefaultBlacklist matches the common junk files real asset trees carry.
func DefaultBlacklist() Blacklist {
	return Blacklist{
		Basenames: []string{".DS_Store", "Thumbs.db", "desktop.ini"},
		Dirnames:  []string{"__MACOSX"},
	}
}

// FileRecord is one surveyed file, matching spec §4.4's per-file record.
type FileRecord struct {
	Basename string `json:"basename"`
	Dirname  string `json:"dirname"`
	Size     int64  `json:"size"`
	Filetype string `json:"filetype,omitempty"`
}

// App implements the inventory worker.
type App struct {
	Blacklist Blacklist
	Log       *zap.SugaredLogger
}

// NewApp builds an inventory worker using DefaultBlacklist.
func NewApp(log *zap.SugaredLogger) *App {
	return &App{Blacklist: DefaultBlacklist(), Log: log}
}

func (a *App) LoadCatalogReplicas(ctx context.Context) error { return nil }

// RunTask implements inventory.inventory(data_path).
func (a *App) RunTask(ctx context.Context, t *task.Task) *task.Task {
	path, _ := t.Args["path"].(string)
	cname, _ := t.Args["cname"].(string)
	if path == "" {
		return t.Fail(errMissingArg("path"))
	}

	if err := a.removeBlacklisted(path); err != nil {
		return t.Fail(err)
	}

	files, err := a.survey(path)
	if err != nil {
		return t.Fail(err)
	}
	if len(files) == 0 {
		return t.Fail(errNoFiles(path))
	}

	t.AddResult("asset_data", map[string]any{"cname": cname, "path": path})
	t.AddResult("file_data", files)
	return t.Succeed()
}

func (a *App) removeBlacklisted(root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		name := d.Name()
		if d.IsDir() && contains(a.Blacklist.Dirnames, name) {
			if a.Log != nil {
				a.Log.Debugw("removing blacklisted directory", "path", p)
			}
			if rmErr := os.RemoveAll(p); rmErr != nil {
				return rmErr
			}
			return filepath.SkipDir
		}
		if !d.IsDir() && contains(a.Blacklist.Basenames, name) {
			if a.Log != nil {
				a.Log.Debugw("removing blacklisted file", "path", p)
			}
			return os.Remove(p)
		}
		return nil
	})
}

func (a *App) survey(root string) ([]FileRecord, error) {
	var out []FileRecord
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := lowercaseExtension(p); err != nil {
			return err
		}
		p = renamedPath(p)

		info, err := os.Lstat(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, filepath.Dir(p))
		if err != nil {
			return err
		}
		if rel == "." {
			rel = ""
		}
		rel = strings.TrimPrefix(rel, string(os.PathSeparator))

		out = append(out, FileRecord{
			Basename: filepath.Base(p),
			Dirname:  rel,
			Size:     info.Size(),
			Filetype: filetypeOf(p),
		})
		return nil
	})
	return out, err
}

func lowercaseExtension(p string) error {
	ext := filepath.Ext(p)
	if ext == "" || ext == strings.ToLower(ext) {
		return nil
	}
	return os.Rename(p, renamedPath(p))
}

func renamedPath(p string) string {
	ext := filepath.Ext(p)
	if ext == "" {
		return p
	}
	return strings.TrimSuffix(p, ext) + strings.ToLower(ext)
}

func filetypeOf(p string) string {
	ext := filepath.Ext(p)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

type argError struct{ arg string }

func (e argError) Error() string { return "inventory: missing required arg " + e.arg }
func errMissingArg(arg string) error { return argError{arg} }

type noFilesError struct{ path string }

func (e noFilesError) Error() string { return "inventory: survey produced zero files at " + e.path }
func errNoFiles(path string) error   { return noFilesError{path} }
