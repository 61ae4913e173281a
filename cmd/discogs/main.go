// Command discogs runs the discogs AppRunner (spec §4.4): search Discogs'
// release database for a cname's metadata and validate it against measured
// track durations.
package main

import (
	"flag"
	"os"

	"github.com/sonicat/sonicat/internal/apps/discogs"
	"github.com/sonicat/sonicat/internal/config"
	"github.com/sonicat/sonicat/internal/workerapp"
)

const (
	role    = "discogs"
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
	s := secrets["discogs"]
	creds := discogs.Credentials{UserAgent: s.UserAgent, Token: s.Token}

	app := discogs.NewApp(creds, log)
	workerapp.Run(role, appType, app, f, log, nil)
}
