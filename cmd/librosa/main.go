// Command librosa runs the librosa AppRunner (spec §4.4): analyze WAV files
// for duration, tempo, beat frames and chroma distribution via an external
// DSP subprocess.
package main

import (
	"flag"

	"github.com/sonicat/sonicat/internal/apps/librosa"
	"github.com/sonicat/sonicat/internal/workerapp"
)

const (
	role    = "librosa"
	appType = "analysis"
)

func main() {
	analyzerCmd := flag.String("analyzer-command", "librosa-analyze", "Path to the external DSP analyzer binary")
	artifactsRoot := flag.String("artifacts-root", "", "Root directory for beat-frame artifact files (defaults under -sonicat-path/data/analysis/artifacts)")
	f := workerapp.ParseFlags("127.0.0.1:6379")
	log := workerapp.NewLogger(f, appType, role)
	defer log.Sync()

	root := *artifactsRoot
	if root == "" && f.SonicatPath != "" {
		root = f.SonicatPath + "/data/analysis/artifacts"
	}

	analyzer := librosa.NewSubprocessAnalyzer(*analyzerCmd)
	artifacts := librosa.NewFileArtifactStore(root)

	app := librosa.NewApp(analyzer, artifacts, log)
	workerapp.Run(role, appType, app, f, log, nil)
}
