// Package appdataworker implements the app_data worker: the sole writer of
// every per-worker AppDataStore (spec §2/§4.6) and, for the intake chain,
// the CatalogStore write that must land before an asset is archived (spec
// §4.3's "inventory → app_data, new file listing must be persisted before
// archiving"). Grounded on spec §4.1's tie-break ("completed wins over
// failed", enforced structurally inside appdata.Store.RecordResult) and
// §4.5's write-interface ownership rule.
package appdataworker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sonicat/sonicat/internal/appdata"
	"github.com/sonicat/sonicat/internal/catalog"
	"github.com/sonicat/sonicat/internal/task"
)

// Stores maps an upstream worker's app name to the AppDataStore that holds
// its results, so one app_data process can serve every other worker.
type Stores map[string]*appdata.Store

// App implements the app_data worker.
type App struct {
	Stores  Stores
	Catalog *catalog.Store
	Log     *zap.SugaredLogger
}

func NewApp(stores Stores, cat *catalog.Store, log *zap.SugaredLogger) *App {
	return &App{Stores: stores, Catalog: cat, Log: log}
}

func (a *App) LoadCatalogReplicas(ctx context.Context) error { return nil }

// RunTask dispatches by the originating worker named in RouterAppName,
// which the upstream worker's AppRunner stamps on the Task before routing
// it here.
func (a *App) RunTask(ctx context.Context, t *task.Task) *task.Task {
	source := t.RouterAppName
	if source == "" {
		source = t.AppName
	}

	if source == "inventory" {
		return a.commitInventory(ctx, t)
	}

	store, ok := a.Stores[source]
	if !ok {
		return t.Fail(fmt.Errorf("app_data: no store configured for %q", source))
	}

	catalogName, _ := t.Args["catalog"].(string)
	assetID, ok := t.Args["asset_id"].(int64)
	if !ok {
		// Args that crossed the queue as JSON carry numbers as float64.
		if f, isFloat := t.Args["asset_id"].(float64); isFloat {
			assetID = int64(f)
		}
	}

	if !t.Result.Success {
		// Only metadata workers keep a failed-search ledger; any other
		// worker's failure leaves no ledger row, so make_tasks reissues it.
		if t.RouterAppType != "metadata" {
			return t
		}
		if err := store.RecordFailedSearch(ctx, catalogName, assetID); err != nil {
			return t.Fail(fmt.Errorf("app_data: record failed search: %w", err))
		}
		return t.Succeed()
	}

	for _, r := range t.Results {
		if err := store.RecordResult(ctx, catalogName, assetID, r.Name, r.Payload); err != nil {
			return t.Fail(fmt.Errorf("app_data: record result %q: %w", r.Name, err))
		}
	}
	return t.Succeed()
}

func (a *App) commitInventory(ctx context.Context, t *task.Task) *task.Task {
	cname, _ := t.Args["cname"].(string)
	managed, _ := t.Args["managed"].(bool)

	var raw []any
	for _, r := range t.Results {
		if r.Name == "file_data" {
			raw, _ = r.Payload.([]any)
		}
	}
	files := make([]catalog.File, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		size, ok := m["size"].(int64)
		if !ok {
			if f, isFloat := m["size"].(float64); isFloat {
				size = int64(f)
			}
		}
		basename, _ := m["basename"].(string)
		dirname, _ := m["dirname"].(string)
		filetype, _ := m["filetype"].(string)
		files = append(files, catalog.File{Basename: basename, Dirname: dirname, Size: size, Filetype: filetype})
	}
	if len(files) == 0 {
		return t.Fail(fmt.Errorf("app_data: inventory produced no files for %q", cname))
	}

	assetID, err := a.Catalog.IntakeAsset(ctx, cname, managed, files)
	if err != nil {
		return t.Fail(fmt.Errorf("app_data: intake asset: %w", err))
	}
	t.AddResult("asset_id", assetID)
	return t.Succeed()
}
