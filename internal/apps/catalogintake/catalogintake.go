// Package catalogintake implements the catalog_intake worker: the precheck
// and CatalogStore commit half of asset intake (spec §4.4/§4.5), leaving the
// archiving effect itself to file_mover per the router's intake chain.
// Grounded on original_source's apps/sys/Inventory.py managed_intake/
// managed_intake_precheck (target-exists, canonical-name, not-already-
// present checks, then a single asset+files insert) — the archiving step
// that function performed inline is split out here because Sonicat funnels
// all archive/restore effects through file_mover (spec §2).
package catalogintake

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sonicat/sonicat/internal/catalog"
	"github.com/sonicat/sonicat/internal/names"
	"github.com/sonicat/sonicat/internal/task"
)

// App implements the catalog_intake worker.
type App struct {
	Store *catalog.Store
	Log   *zap.SugaredLogger
}

func NewApp(store *catalog.Store, log *zap.SugaredLogger) *App {
	return &App{Store: store, Log: log}
}

func (a *App) LoadCatalogReplicas(ctx context.Context) error { return nil }

type fileArg struct {
	Basename string `json:"basename"`
	Dirname  string `json:"dirname"`
	Size     int64  `json:"size"`
	Filetype string `json:"filetype"`
}

// RunTask implements catalog_intake.intake(cname, managed, file_data).
func (a *App) RunTask(ctx context.Context, t *task.Task) *task.Task {
	if t.Action != "intake" {
		return t.Fail(fmt.Errorf("catalogintake: unknown action %q", t.Action))
	}

	cname, _ := t.Args["cname"].(string)
	if !names.IsCanonical(cname) {
		return t.Fail(fmt.Errorf("catalogintake: %q is not canonically named", cname))
	}

	managed, _ := t.Args["managed"].(bool)

	raw, _ := t.Args["file_data"].([]any)
	files := make([]catalog.File, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		size, _ := m["size"].(int64)
		if size == 0 {
			if f, ok := m["size"].(float64); ok {
				size = int64(f)
			}
		}
		basename, _ := m["basename"].(string)
		dirname, _ := m["dirname"].(string)
		filetype, _ := m["filetype"].(string)
		files = append(files, catalog.File{
			Basename: basename,
			Dirname:  dirname,
			Size:     size,
			Filetype: filetype,
		})
	}
	if len(files) == 0 {
		return t.Fail(fmt.Errorf("catalogintake: no file data for %q", cname))
	}

	assetID, err := a.Store.IntakeAsset(ctx, cname, managed, files)
	if err != nil {
		return t.Fail(fmt.Errorf("catalogintake: %w", err))
	}

	t.AddResult("asset_id", assetID)
	return t.Succeed()
}
