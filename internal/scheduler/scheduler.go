// Package scheduler implements the Tasks scheduler (spec §4.1): the single
// process that inventories outstanding work across every configured
// catalog and emits a bounded stream of Tasks, gating each asset's worker
// chain behind its predecessor's success via a PendingCache. Grounded on
// the teacher's cron-driven run_cycle in cmd/cronplusd (a poll loop that
// enumerates configured jobs and decides what's due) generalized from
// time-triggered jobs to Sonicat's ledger-driven "what hasn't completed
// yet" enumeration.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sonicat/sonicat/internal/task"
)

// rawBytesApps names the apps whose tasks need the asset's archive
// extracted to a temp directory before they can run (spec §4.1 step 4).
var rawBytesApps = map[string]bool{
	"librosa":    true,
	"cue_parser": true,
}

// Ledger is the subset of AppDataStore the scheduler consults as a
// negative filter, kept narrow so the scheduler depends on an interface
// rather than the concrete appdata.Store type.
type Ledger interface {
	Completed(ctx context.Context, catalog string) ([]int64, error)
	Failed(ctx context.Context, catalog string) ([]int64, error)
	PurgeFailedSearch(ctx context.Context, catalog string, assetID int64) error
}

// CatalogReader is the subset of CatalogStore the scheduler consults.
type CatalogReader interface {
	AllAssetIDs(ctx context.Context, catalog string) ([]int64, error)
	Cname(ctx context.Context, assetID int64) (string, error)
	IsManaged(ctx context.Context, assetID int64) (bool, error)
	FilesByAsset(ctx context.Context, assetID int64, filetypes []string) ([]File, error)
}

// File mirrors catalog.File's fields the scheduler needs to build
// file_data/file_paths arguments, kept as its own type so this package
// doesn't import internal/catalog for a struct shape alone.
type File struct {
	ID       int64
	Basename string
	Dirname  string
	Size     int64
	Filetype string
}

// AppAction is one (app, action) pair enabled for a catalog, with the
// filetypes its file_data/file_paths argument should be filtered to
// (empty = no filter).
type AppAction struct {
	App       string
	Action    string
	Filetypes []string
}

// CatalogTasks is the work configured for one catalog: its own CatalogStore
// (each catalog is a physically separate sqlite file, spec §6's
// data/catalog/<moniker>.sqlite), the archive/temp filesystem roots, and
// the enabled (app, action) pairs.
type CatalogTasks struct {
	Name       string
	Moniker    string
	Catalog    CatalogReader
	TempRoot   string
	Archive    func(assetID int64, cname string) string // archive path for cname
	AppActions []AppAction
}

// Scheduler is the Tasks scheduler (spec §4.1).
type Scheduler struct {
	Ledgers      map[string]Ledger // keyed by app name, shared across catalogs
	Pending      *task.PendingCache
	Catalogs     []CatalogTasks
	IdleInterval time.Duration
	Log          *zap.SugaredLogger

	mu        sync.Mutex
	Threshold int // guarded by mu: command_bridge's set_threshold adjusts this concurrently with MakeTasks
}

// New builds a Scheduler. idleInterval and threshold are read from
// config.RuntimeConfig by the caller (cmd/tasksd).
func New(ledgers map[string]Ledger, pending *task.PendingCache, catalogs []CatalogTasks, threshold int, idleInterval time.Duration, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		Ledgers: ledgers, Pending: pending,
		Catalogs: catalogs, Threshold: threshold, IdleInterval: idleInterval, Log: log,
	}
}

// RunCycle implements run_cycle(incoming) (spec §4.1). incoming == nil
// means "no inbound completion; generate new work". A command_bridge
// dispatch is recognized here but left for internal/control's dedicated
// handler — it returns no Tasks of its own.
func (s *Scheduler) RunCycle(ctx context.Context, incoming *task.Task) ([]*task.Task, error) {
	if incoming == nil {
		return s.MakeTasks(ctx, nil)
	}
	if incoming.AppName == "command_bridge" {
		return nil, nil
	}
	if !incoming.Result.Success {
		return nil, nil
	}
	if successors, ok := s.Pending.Release(incoming.ID); ok {
		return toPointers(successors), nil
	}
	return nil, nil
}

// MakeTasks implements make_tasks(catalogs?) (spec §4.1). A nil/empty
// catalogs list defaults to every configured catalog.
func (s *Scheduler) MakeTasks(ctx context.Context, catalogs []string) ([]*task.Task, error) {
	selected := s.Catalogs
	if len(catalogs) > 0 {
		want := map[string]bool{}
		for _, c := range catalogs {
			want[c] = true
		}
		selected = nil
		for _, c := range s.Catalogs {
			if want[c.Name] {
				selected = append(selected, c)
			}
		}
	}

	threshold := s.GetThreshold()
	var out []*task.Task
	assetsEmitted := 0
	for _, cat := range selected {
		tasks, emitted, err := s.makeTasksForCatalog(ctx, cat, budgetRemaining(threshold, assetsEmitted))
		if err != nil {
			return nil, err
		}
		out = append(out, tasks...)
		assetsEmitted += emitted
		if threshold > 0 && assetsEmitted >= threshold {
			break
		}
	}

	if len(out) == 0 && s.IdleInterval > 0 {
		select {
		case <-time.After(s.IdleInterval):
		case <-ctx.Done():
		}
	}
	return out, nil
}

// GetThreshold and SetThreshold guard Threshold, adjusted concurrently by
// command_bridge's set_threshold command while a cycle may be mid-MakeTasks.
func (s *Scheduler) GetThreshold() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Threshold
}

func (s *Scheduler) SetThreshold(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Threshold = n
}

func budgetRemaining(threshold, emitted int) int {
	if threshold <= 0 {
		return 0
	}
	remaining := threshold - emitted
	if remaining < 0 {
		return 0
	}
	return remaining
}

// makeTasksForCatalog runs the six-step algorithm of spec §4.1 for one
// catalog, returning the Tasks to enqueue and how many assets they cover.
func (s *Scheduler) makeTasksForCatalog(ctx context.Context, cat CatalogTasks, budget int) ([]*task.Task, int, error) {
	allAssets, err := cat.Catalog.AllAssetIDs(ctx, cat.Moniker)
	if err != nil {
		return nil, 0, fmt.Errorf("scheduler: all_asset_ids(%s): %w", cat.Moniker, err)
	}

	// Step 2: per-(app,action) pending set, all_assets minus completed
	// minus failed, with completed winning ties (spec §4.1 tie-break).
	pendingByAppAction := map[AppAction]map[int64]bool{}
	for _, aa := range cat.AppActions {
		ledger := s.Ledgers[aa.App]
		if ledger == nil {
			continue
		}
		completed, err := ledger.Completed(ctx, cat.Moniker)
		if err != nil {
			return nil, 0, fmt.Errorf("scheduler: completed(%s,%s): %w", aa.App, cat.Moniker, err)
		}
		failed, err := ledger.Failed(ctx, cat.Moniker)
		if err != nil {
			return nil, 0, fmt.Errorf("scheduler: failed(%s,%s): %w", aa.App, cat.Moniker, err)
		}
		done := map[int64]bool{}
		for _, id := range completed {
			done[id] = true
		}
		failedSet := map[int64]bool{}
		for _, id := range failed {
			if !done[id] {
				failedSet[id] = true
			}
		}
		pending := map[int64]bool{}
		for _, id := range allAssets {
			if !done[id] && !failedSet[id] {
				pending[id] = true
			}
		}
		pendingByAppAction[aa] = pending
	}

	// Step 3: invert to tasks_by_asset.
	tasksByAsset := map[int64][]AppAction{}
	for aa, pending := range pendingByAppAction {
		for assetID := range pending {
			tasksByAsset[assetID] = append(tasksByAsset[assetID], aa)
		}
	}
	if len(tasksByAsset) == 0 {
		return nil, 0, nil
	}

	var out []*task.Task
	emitted := 0
	for assetID, appActions := range tasksByAsset {
		if budget > 0 && emitted >= budget {
			break
		}
		chain, err := s.buildAssetChain(ctx, cat, assetID, appActions)
		if err != nil {
			return nil, emitted, err
		}
		if chain == nil {
			continue
		}
		// Only the chain's head is emitted here; buildAssetChain has already
		// registered every successor with PendingCache, so RunCycle's
		// Pending.Release path releases chain[1], chain[2], ... one at a
		// time as each predecessor succeeds (spec §4.1 step 5, §5: a
		// successor must not run before its predecessor completes).
		out = append(out, chain[0])
		emitted++
	}
	return out, emitted, nil
}

// buildAssetChain emits the ordered restore -> worker(s) -> remove
// sequence for one asset (spec §4.1 step 4) and registers the linear
// PendingCache continuations (step 5): each task's registered successor
// is exactly the single next task in the sequence, not a fan-out join —
// the simplest interpretation that fits PendingCache's one-parent-to-many
// release model when the chain itself is a straight line.
func (s *Scheduler) buildAssetChain(ctx context.Context, cat CatalogTasks, assetID int64, appActions []AppAction) ([]*task.Task, error) {
	managed, err := cat.Catalog.IsManaged(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("scheduler: is_managed(%d): %w", assetID, err)
	}

	needsRawBytes := false
	for _, aa := range appActions {
		if rawBytesApps[aa.App] {
			needsRawBytes = true
			break
		}
	}
	if needsRawBytes && !managed {
		if s.Log != nil {
			s.Log.Warnw("skipping asset needing restore: not managed", "catalog", cat.Moniker, "asset_id", assetID)
		}
		return nil, nil
	}

	cname, err := cat.Catalog.Cname(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("scheduler: cname(%d): %w", assetID, err)
	}

	var chain []*task.Task
	tempPath := filepath.Join(cat.TempRoot, cname)

	if needsRawBytes {
		restore := &task.Task{
			ID: task.NewID(), AppName: "file_mover", Action: "restore",
			Args: map[string]any{"from": cat.Archive(assetID, cname), "to": tempPath},
		}
		chain = append(chain, restore)
	}

	for _, aa := range appActions {
		files, err := cat.Catalog.FilesByAsset(ctx, assetID, aa.Filetypes)
		if err != nil {
			return nil, fmt.Errorf("scheduler: files_by_asset(%d): %w", assetID, err)
		}
		args := buildWorkerArgs(aa, cname, tempPath, files)
		args["catalog"] = cat.Moniker
		args["asset_id"] = assetID
		chain = append(chain, &task.Task{
			ID: task.NewID(), AppName: aa.App, Action: aa.Action,
			Args: args,
		})
	}

	chain = append(chain, &task.Task{
		ID: task.NewID(), AppName: "file_mover", Action: "remove",
		Args: map[string]any{"path": tempPath},
	})

	for i := 0; i < len(chain)-1; i++ {
		chain[i+1].ParentID = chain[i].ID
		if err := s.Pending.Register(chain[i].ID, []task.Task{*chain[i+1]}); err != nil {
			return nil, fmt.Errorf("scheduler: register continuation: %w", err)
		}
	}
	// The final task (file_mover.remove) has no continuation, but is still
	// tracked so the scheduler knows it's in flight (PendingCache.Contains).
	if err := s.Pending.Register(chain[len(chain)-1].ID, nil); err != nil {
		return nil, fmt.Errorf("scheduler: register terminal: %w", err)
	}

	return chain, nil
}

func buildWorkerArgs(aa AppAction, cname, tempPath string, files []File) map[string]any {
	args := map[string]any{"cname": cname}
	switch aa.App {
	case "librosa":
		fileData := make([]any, 0, len(files))
		for _, f := range files {
			fileData = append(fileData, map[string]any{
				"file_id": f.ID,
				"path":    filepath.Join(tempPath, f.Dirname, f.Basename),
			})
		}
		args["file_data"] = fileData
	case "path_parser":
		filePaths := make([]any, 0, len(files))
		for _, f := range files {
			filePaths = append(filePaths, map[string]any{
				"file_id": f.ID,
				"path":    filepath.Join(f.Dirname, f.Basename),
			})
		}
		args["file_paths"] = filePaths
	case "discogs", "lastfm":
		// track_durations is emitted empty; no stage of the pipeline
		// fills it in, so metadata workers receive no measured durations.
		args["track_durations"] = []any{}
	}
	return args
}

func toPointers(tasks []task.Task) []*task.Task {
	out := make([]*task.Task, len(tasks))
	for i := range tasks {
		t := tasks[i]
		out[i] = &t
	}
	return out
}

// ReclaimOrphans implements spec §4.1's startup policy: a <temp>/<cname>
// directory with no matching in-flight Task (i.e. not among the paths
// registered in PendingCache) is a leftover from a scheduler restart that
// dropped its continuation, and gets a file_mover.remove issued for it.
func ReclaimOrphans(tempRoot string, pending *task.PendingCache) ([]*task.Task, error) {
	entries, err := os.ReadDir(tempRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scheduler: reclaim: read %s: %w", tempRoot, err)
	}

	active := pending.ActiveTempPaths()
	var out []*task.Task
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(tempRoot, e.Name())
		if active[path] {
			continue
		}
		out = append(out, &task.Task{
			ID: task.NewID(), AppName: "file_mover", Action: "remove",
			Args: map[string]any{"path": path},
		})
	}
	return out, nil
}

// Dispatch handles a command_bridge command (spec §4.1: "dispatch as a
// control-plane command"), implementing internal/control's Dispatcher.
// Recognized actions: purge_failed_search {app, catalog, asset_id},
// rescan {catalog} (re-enumerates one catalog's make_tasks immediately),
// set_threshold {value}.
func (s *Scheduler) Dispatch(ctx context.Context, cmd *task.Task) (*task.Task, error) {
	switch cmd.Action {
	case "purge_failed_search":
		app, _ := cmd.Args["app"].(string)
		catalog, _ := cmd.Args["catalog"].(string)
		assetID, ok := cmd.Args["asset_id"].(int64)
		if !ok {
			// A command decoded from JSON carries numbers as float64.
			if f, isFloat := cmd.Args["asset_id"].(float64); isFloat {
				assetID = int64(f)
			}
		}
		ledger := s.Ledgers[app]
		if ledger == nil {
			return cmd.Fail(fmt.Errorf("scheduler: dispatch: unknown app %q", app)), nil
		}
		if err := ledger.PurgeFailedSearch(ctx, catalog, assetID); err != nil {
			return cmd.Fail(err), nil
		}
		return cmd.Succeed(), nil

	case "rescan":
		catalog, _ := cmd.Args["catalog"].(string)
		tasks, err := s.MakeTasks(ctx, []string{catalog})
		if err != nil {
			return cmd.Fail(err), nil
		}
		cmd.AddResult("tasks", tasks)
		return cmd.Succeed(), nil

	case "set_threshold":
		value, ok := cmd.Args["value"].(int64)
		if !ok {
			if f, isFloat := cmd.Args["value"].(float64); isFloat {
				value = int64(f)
			}
		}
		s.SetThreshold(int(value))
		return cmd.Succeed(), nil

	default:
		return cmd.Fail(fmt.Errorf("scheduler: dispatch: unknown action %q", cmd.Action)), nil
	}
}

// PendingCounts reports each configured catalog's name, for
// internal/control's GET /tasks — the number actually in flight is
// PendingCache's total (it doesn't key by catalog), so every catalog
// reports the same process-wide figure.
func (s *Scheduler) PendingCounts() map[string]int {
	total := s.Pending.Len()
	counts := make(map[string]int, len(s.Catalogs))
	for _, cat := range s.Catalogs {
		counts[cat.Name] = total
	}
	return counts
}
