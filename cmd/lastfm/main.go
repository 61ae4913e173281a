// Command lastfm runs the lastfm AppRunner (spec §4.4): Last.fm's
// counterpart to discogs, searching album.search for a cname's metadata.
package main

import (
	"flag"
	"os"

	"github.com/sonicat/sonicat/internal/apps/lastfm"
	"github.com/sonicat/sonicat/internal/config"
	"github.com/sonicat/sonicat/internal/workerapp"
)

const (
	role    = "lastfm"
	appType = "metadata"
)

func main() {
	secretsPath := flag.String("secrets-path", "/etc/sonicat/secrets.yaml", "Path to the secrets YAML file (spec §6)")
	f := workerapp.ParseFlags("127.0.0.1:6379")
	log := workerapp.NewLogger(f, appType, role)
	defer log.Sync()

	secrets, err := config.LoadSecrets(*secretsPath)
	if err != nil {
		log.Errorw("failed to load secrets", "path", *secretsPath, "error", err)
		os.Exit(1)
	}
	s := secrets["lastfm"]
	creds := lastfm.Credentials{UserAgent: s.UserAgent, APIKey: s.APIKey, SharedSecret: s.SharedSecret}

	app := lastfm.NewApp(creds, log)
	workerapp.Run(role, appType, app, f, log, nil)
}
