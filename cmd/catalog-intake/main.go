// Command catalog-intake runs the catalog_intake AppRunner (spec §4.4): the
// precheck-and-commit half of asset intake against one catalog's
// CatalogStore.
package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/sonicat/sonicat/internal/apps/catalogintake"
	"github.com/sonicat/sonicat/internal/catalog"
	"github.com/sonicat/sonicat/internal/config"
	"github.com/sonicat/sonicat/internal/workerapp"
)

const (
	role    = "catalog_intake"
	appType = "system"
)

func main() {
	configPath := flag.String("config", "/etc/sonicat/config.yaml", "Path to the Sonicat config YAML file")
	catalogName := flag.String("catalog", "", "Name of the catalog (cfg.Catalogs key) this process intakes into")
	f := workerapp.ParseFlags("127.0.0.1:6379")
	log := workerapp.NewLogger(f, appType, role)
	defer log.Sync()

	if *catalogName == "" {
		log.Errorw("catalog_intake requires -catalog")
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

	storePath := filepath.Join(cfg.Runtime.SonicatPath, "data", "catalog", cc.Moniker+".sqlite")
	store, err := catalog.Open(storePath)
	if err != nil {
		log.Errorw("failed to open catalog store", "path", storePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	app := catalogintake.NewApp(store, log)
	workerapp.Run(role, appType, app, f, log, nil)
}
