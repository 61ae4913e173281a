// Command inventory runs the inventory AppRunner (spec §4.4): survey an
// asset directory tree and emit the raw file listing for app_data to
// persist.
package main

import (
	"github.com/sonicat/sonicat/internal/apps/inventory"
	"github.com/sonicat/sonicat/internal/workerapp"
)

const (
	role    = "inventory"
	appType = "tokens"
)

func main() {
	f := workerapp.ParseFlags("127.0.0.1:6379")
	log := workerapp.NewLogger(f, appType, role)
	defer log.Sync()

	app := inventory.NewApp(log)
	workerapp.Run(role, appType, app, f, log, nil)
}
