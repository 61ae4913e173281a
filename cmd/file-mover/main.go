// Command file-mover runs the file_mover AppRunner (spec §4.4): move, remove,
// archive and restore actions over the filesystem, driven by tasks pulled
// off the command/file_mover queues.
package main

import (
	"github.com/sonicat/sonicat/internal/filemover"
	"github.com/sonicat/sonicat/internal/workerapp"
)

const (
	role    = "file_mover"
	appType = "system"
)

func main() {
	f := workerapp.ParseFlags("127.0.0.1:6379")
	log := workerapp.NewLogger(f, appType, role)
	defer log.Sync()

	app := filemover.NewApp(log)
	workerapp.Run(role, appType, app, f, log, nil)
}
