// Command app-data runs the app_data AppRunner (spec §4.6): the sole writer
// of every other worker's AppDataStore, scoped to one catalog's
// CatalogStore for the inventory-commit half of intake. Because the
// CatalogStore it writes into is catalog-specific, one app_data process
// serves exactly one catalog (spec §6: "one catalog, one sqlite file"),
// mirroring catalog-intake's -catalog scoping.
package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/sonicat/sonicat/internal/appdata"
	"github.com/sonicat/sonicat/internal/apps/appdataworker"
	"github.com/sonicat/sonicat/internal/catalog"
	"github.com/sonicat/sonicat/internal/config"
	"github.com/sonicat/sonicat/internal/task"
	"github.com/sonicat/sonicat/internal/workerapp"
)

const (
	role    = "app_data"
	appType = "system"
)

var typeDataDir = map[string]string{
	"analysis": "analysis",
	"metadata": "metadata",
	"tokens":   "tokens",
	"scraper":  "pages",
}

func main() {
	configPath := flag.String("config", "/etc/sonicat/config.yaml", "Path to the Sonicat config YAML file")
	catalogName := flag.String("catalog", "", "Name of the catalog (cfg.Catalogs key) this process writes into")
	f := workerapp.ParseFlags("127.0.0.1:6379")
	log := workerapp.NewLogger(f, appType, role)
	defer log.Sync()

	if *catalogName == "" {
		log.Errorw("app_data requires -catalog")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath, log)
	if err != nil {
		log.Errorw("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	cc, ok := cfg.Catalogs[*catalogName]
	if !ok {
		log.Errorw("unknown catalog", "catalog", *catalogName)
		os.Exit(1)
	}

	stores := appdataworker.Stores{}
	var opened []*appdata.Store
	for appT, apps := range cfg.Apps {
		dir, ok := typeDataDir[appT]
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
				log.Errorw("failed to open appdata store", "app", appName, "path", path, "error", err)
				os.Exit(1)
			}
			opened = append(opened, store)
			stores[appName] = store
		}
	}
	defer func() {
		for _, s := range opened {
			_ = s.Close()
		}
	}()

	catalogPath := filepath.Join(cfg.Runtime.SonicatPath, "data", "catalog", cc.Moniker+".sqlite")
	catStore, err := catalog.Open(catalogPath)
	if err != nil {
		log.Errorw("failed to open catalog store", "path", catalogPath, "error", err)
		os.Exit(1)
	}
	defer catStore.Close()

	pending, err := task.OpenPendingCacheReadOnly(cfg.Runtime.StateDBPath)
	if err != nil {
		log.Errorw("failed to open pending cache", "path", cfg.Runtime.StateDBPath, "error", err)
		os.Exit(1)
	}
	defer pending.Close()

	app := appdataworker.NewApp(stores, catStore, log)
	workerapp.Run(role, appType, app, f, log, pending)
}
