// Command tasksd is the Tasks scheduler process (spec §4.1): the single
// role that enumerates outstanding work across every configured catalog,
// gates each asset's worker chain behind its predecessor's success, and
// exposes command_bridge over HTTP. Wiring follows the teacher's
// cmd/cronplusd/main.go shape (flags, observability.NewLogger, config.Load,
// a durable state store, a control-plane server, signal-driven graceful
// shutdown) generalized from cronplus's single bbolt-backed Manager to
// Sonicat's per-catalog CatalogStore + per-app AppDataStore ledgers feeding
// internal/scheduler.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sonicat/sonicat/internal/appdata"
	"github.com/sonicat/sonicat/internal/catalog"
	"github.com/sonicat/sonicat/internal/config"
	"github.com/sonicat/sonicat/internal/control"
	"github.com/sonicat/sonicat/internal/observability"
	"github.com/sonicat/sonicat/internal/queue"
	"github.com/sonicat/sonicat/internal/scheduler"
	"github.com/sonicat/sonicat/internal/task"
)

var (
	configPath  = flag.String("config", "/etc/sonicat/config.yaml", "Path to the Sonicat config YAML file")
	logLevel    = flag.String("log-level", "", "Log level: debug|info|warn|error (overrides LOG_LEVEL/config)")
	controlAddr = flag.String("control-addr", "127.0.0.1:8090", "command_bridge listen address")
	rateLimit   = flag.Int("command-rate-limit", 60, "command_bridge requests-per-minute ceiling (0 disables)")
)

// typeDataDir maps a catalog config's task type to its AppData store
// directory under data/ (spec §6's filesystem roots); "system" apps
// (file_mover, catalog_intake, app_data itself) have no AppData ledger of
// their own.
var typeDataDir = map[string]string{
	"analysis": "analysis",
	"metadata": "metadata",
	"tokens":   "tokens",
	"scraper":  "pages",
}

// filetypesForApp narrows the file_data/file_paths argument librosa's DSP
// pass is handed to audio files; every other worker's filter is spec.md's
// default of "no filter".
func filetypesForApp(app string) []string {
	if app == "librosa" {
		return []string{"wav"}
	}
	return nil
}

func main() {
	flag.Parse()

	logger := observability.NewLogger(observability.EnvLogLevel(*logLevel))
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load(*configPath, logger)
	if err != nil {
		logger.Errorw("failed to load config", "path", *configPath, "error", err)
		fmt.Fprintln(os.Stderr, "Config error:", err)
		os.Exit(1)
	}
	logger.Infow("config loaded", "catalogs", len(cfg.Catalogs))

	pending, err := task.OpenPendingCache(cfg.Runtime.StateDBPath)
	if err != nil {
		logger.Errorw("failed to open pending cache", "path", cfg.Runtime.StateDBPath, "error", err)
		os.Exit(1)
	}
	defer pending.Close()

	ledgers, closeLedgers, err := openLedgers(cfg)
	if err != nil {
		logger.Errorw("failed to open app data ledgers", "error", err)
		os.Exit(1)
	}
	defer closeLedgers()

	catalogs, closeCatalogs, err := openCatalogs(cfg)
	if err != nil {
		logger.Errorw("failed to open catalog stores", "error", err)
		os.Exit(1)
	}
	defer closeCatalogs()

	sched := scheduler.New(
		ledgers, pending, catalogs,
		cfg.Runtime.Threshold,
		time.Duration(cfg.Runtime.IdleIntervalMs)*time.Millisecond,
		logger,
	)

	qc, err := queue.NewClient(cfg.Runtime.QueueAddr, "tasks")
	if err != nil {
		logger.Errorw("failed to connect to queue broker", "addr", cfg.Runtime.QueueAddr, "error", err)
		os.Exit(1)
	}
	defer qc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Orphan temp directories left by a scheduler crash mid-chain (spec §5
	// "Restart semantics") are reclaimed once, before the first cycle.
	tempRoot := filepath.Join("/tmp", "sonicat-file_mover")
	orphans, err := scheduler.ReclaimOrphans(tempRoot, pending)
	if err != nil {
		logger.Warnw("orphan reclaim scan failed", "root", tempRoot, "error", err)
	}
	for _, t := range orphans {
		if err := qc.Named(t.AppName).Enqueue(ctx, t); err != nil {
			logger.Errorw("failed to enqueue orphan reclaim task", "task_id", t.ID, "error", err)
		}
	}
	if len(orphans) > 0 {
		logger.Infow("reclaimed orphan temp directories", "count", len(orphans))
	}

	if n, err := qc.Inbound().Sweep(ctx); err != nil {
		logger.Warnw("inbound sweep failed", "error", err)
	} else if n > 0 {
		logger.Infow("requeued orphaned in-flight tasks", "count", n)
	}

	// command_bridge: HTTP supersedes the queue-based command channel for
	// this role, since an operator command (purge/rescan/set_threshold) is
	// dispatched directly against the in-process Scheduler rather than
	// round-tripping through Redis the way worker-to-worker Tasks do.
	ctrlSrv := control.New(logger, sched, *controlAddr, *rateLimit)
	if err := ctrlSrv.Start(ctx); err != nil {
		logger.Errorw("failed to start command_bridge", "addr", *controlAddr, "error", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go runLoop(ctx, sched, qc, logger, done)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Infow("signal received, shutting down", "signal", sig.String())

	cancel()

	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	_ = ctrlSrv.Shutdown(shCtx)

	select {
	case <-done:
	case <-shCtx.Done():
		logger.Errorw("graceful shutdown timed out")
	}
	logger.Infow("shutdown complete")
}

// runLoop is run_cycle() for the scheduler role: dequeue a completion from
// inbound (or nil when none is waiting), feed it to RunCycle, and route
// every emitted Task directly onto its own inbound queue — rule 1 of
// internal/router.Route always applies here (routerAppName == "tasks"), so
// this loop enqueues by t.AppName without consulting the router package.
func runLoop(ctx context.Context, sched *scheduler.Scheduler, qc *queue.Client, log *zap.SugaredLogger, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		d, err := qc.Inbound().DequeueTimeout(ctx, 200*time.Millisecond)
		if err != nil {
			log.Errorw("inbound dequeue failed", "error", err)
			continue
		}

		var incoming *task.Task
		if d != nil {
			incoming = d.Task
		}

		tasks, err := sched.RunCycle(ctx, incoming)
		if err != nil {
			log.Errorw("run_cycle failed", "error", err)
			continue
		}

		ok := true
		for _, t := range tasks {
			if err := qc.Named(t.AppName).Enqueue(ctx, t); err != nil {
				log.Errorw("failed to enqueue task", "task_id", t.ID, "app", t.AppName, "error", err)
				ok = false
			}
		}

		if d != nil && ok {
			if err := qc.Inbound().Ack(ctx, d); err != nil {
				log.Errorw("ack failed", "task_id", d.Task.ID, "error", err)
			}
		}
	}
}

// openLedgers opens one appdata.Store per configured (type, app) pair,
// skipping "system" apps that have no ledger of their own, keyed by app
// name since Scheduler.Ledgers is shared across catalogs (spec §4.6: an
// AppDataStore is scoped to the app, not the catalog — catalog is a column
// within it).
func openLedgers(cfg *config.Config) (map[string]scheduler.Ledger, func(), error) {
	ledgers := map[string]scheduler.Ledger{}
	var stores []*appdata.Store

	closeAll := func() {
		for _, s := range stores {
			_ = s.Close()
		}
	}

	for appType, apps := range cfg.Apps {
		dir, ok := typeDataDir[appType]
		if !ok {
			continue
		}
		for appName, appCfg := range apps {
			moniker := appCfg.Moniker
			if moniker == "" {
				moniker = appName
			}
			path := filepath.Join(cfg.Runtime.SonicatPath, "data", dir, moniker+".sqlite")
			store, err := appdata.Open(path)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("open appdata store for %s/%s: %w", appType, appName, err)
			}
			stores = append(stores, store)
			ledgers[appName] = store
		}
	}
	return ledgers, closeAll, nil
}

// catalogAdapter satisfies scheduler.CatalogReader over a *catalog.Store:
// the two packages define their own File type (scheduler's is a narrow
// mirror, kept so internal/scheduler doesn't import internal/catalog for a
// struct shape alone), so FilesByAsset needs a converting shim.
type catalogAdapter struct {
	store *catalog.Store
}

func (a catalogAdapter) AllAssetIDs(ctx context.Context, cat string) ([]int64, error) {
	return a.store.AllAssetIDs(ctx, cat)
}

func (a catalogAdapter) Cname(ctx context.Context, assetID int64) (string, error) {
	return a.store.Cname(ctx, assetID)
}

func (a catalogAdapter) IsManaged(ctx context.Context, assetID int64) (bool, error) {
	return a.store.IsManaged(ctx, assetID)
}

func (a catalogAdapter) FilesByAsset(ctx context.Context, assetID int64, filetypes []string) ([]scheduler.File, error) {
	files, err := a.store.FilesByAsset(ctx, assetID, filetypes)
	if err != nil {
		return nil, err
	}
	out := make([]scheduler.File, len(files))
	for i, f := range files {
		out[i] = scheduler.File{ID: f.ID, Basename: f.Basename, Dirname: f.Dirname, Size: f.Size, Filetype: f.Filetype}
	}
	return out, nil
}

// openCatalogs opens one catalog.Store per configured catalog (each is a
// physically separate sqlite file, spec §6) and builds the AppAction list
// from the catalog's tasks map (type -> app -> actions).
func openCatalogs(cfg *config.Config) ([]scheduler.CatalogTasks, func(), error) {
	var out []scheduler.CatalogTasks
	var stores []*catalog.Store

	closeAll := func() {
		for _, s := range stores {
			_ = s.Close()
		}
	}

	for name, cc := range cfg.Catalogs {
		path := filepath.Join(cfg.Runtime.SonicatPath, "data", "catalog", cc.Moniker+".sqlite")
		store, err := catalog.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open catalog store for %s: %w", name, err)
		}
		stores = append(stores, store)

		var appActions []scheduler.AppAction
		for _, apps := range cc.Tasks {
			for appName, actions := range apps {
				for _, action := range actions.Actions {
					appActions = append(appActions, scheduler.AppAction{
						App:       appName,
						Action:    action,
						Filetypes: filetypesForApp(appName),
					})
				}
			}
		}

		managedRoot := cc.Path.Managed
		out = append(out, scheduler.CatalogTasks{
			Name:     name,
			Moniker:  cc.Moniker,
			Catalog:  catalogAdapter{store: store},
			TempRoot: filepath.Join("/tmp", "sonicat-file_mover"),
			Archive: func(assetID int64, cname string) string {
				return filepath.Join(managedRoot, labelDirFromCname(cname), cname+".rar")
			},
			AppActions: appActions,
		})
	}
	return out, closeAll, nil
}

// labelDirFromCname derives label_dir from a canonical name (spec §6:
// "label_dir := lowercase(replace(Label, " ", "_"))"), splitting on the
// first " - " separator since only the label half of a cname is needed and
// a title may itself legally contain that substring.
func labelDirFromCname(cname string) string {
	label := cname
	if i := strings.Index(cname, " - "); i >= 0 {
		label = cname[:i]
	}
	return strings.ToLower(strings.ReplaceAll(label, " ", "_"))
}
