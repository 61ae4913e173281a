// Command rutracker-scraper runs the rutracker_scraper AppRunner (spec
// §4.4): search rutracker.org for a cname and record matching torrent
// listings.
package main

import (
	"github.com/sonicat/sonicat/internal/apps/rutrackerscraper"
	"github.com/sonicat/sonicat/internal/workerapp"
)

const (
	role    = "rutracker_scraper"
	appType = "scraper"
)

func main() {
	f := workerapp.ParseFlags("127.0.0.1:6379")
	log := workerapp.NewLogger(f, appType, role)
	defer log.Sync()

	app := rutrackerscraper.NewApp(log)
	workerapp.Run(role, appType, app, f, log, nil)
}
