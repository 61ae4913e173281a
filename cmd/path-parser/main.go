// Command path-parser runs the path_parser AppRunner (spec §4.4): tokenize
// file paths into the key/tempo/tokens triple app_data persists.
package main

import (
	"github.com/sonicat/sonicat/internal/apps/pathparser"
	"github.com/sonicat/sonicat/internal/workerapp"
)

const (
	role    = "path_parser"
	appType = "tokens"
)

func main() {
	f := workerapp.ParseFlags("127.0.0.1:6379")
	log := workerapp.NewLogger(f, appType, role)
	defer log.Sync()

	app := pathparser.NewApp(log)
	workerapp.Run(role, appType, app, f, log, nil)
}
