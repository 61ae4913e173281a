// Package librosa implements the librosa worker: audio analysis over WAV
// files (spec §4.4's librosa.basic). Spec §1 scopes "the DSP library that
// yields duration/tempo/chromagram" out as an external collaborator,
// specified only by its contract (§6); this package owns everything on the
// Sonicat side of that boundary — argument shaping, result-tuple emission,
// and the chroma-distribution reduction — behind an Analyzer interface, so
// the actual DSP call is a pluggable collaborator rather than a method this
// package implements itself. Grounded on original_source's
// apps/analysis/LibrosaAnalysis.py for which facts get emitted per file.
package librosa

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sonicat/sonicat/internal/task"
)

// Analysis is one file's raw DSP output, the shape an Analyzer must
// produce before this package reduces the chromagram to a distribution.
type Analysis struct {
	DurationSeconds float64     // 3 d.p. per spec §4.4
	TempoBPM        float64     // 1 d.p. per spec §4.4
	BeatFrames      []float64   // stored as an artifact file, not inline
	Chromagram      [12][]float64 // 12 channels x N frames
}

// Analyzer is the external DSP collaborator boundary (spec §1 Out of scope).
type Analyzer interface {
	Analyze(ctx context.Context, path string) (Analysis, error)
}

// ArtifactStore persists bulky arrays (beat frames) out of line, returning
// the relative path AudioData.path points at (spec §3).
type ArtifactStore interface {
	Put(ctx context.Context, fileID int64, dtype string, data []float64) (path string, err error)
}

// App implements the librosa worker.
type App struct {
	Analyzer  Analyzer
	Artifacts ArtifactStore
	Log       *zap.SugaredLogger
}

func NewApp(analyzer Analyzer, artifacts ArtifactStore, log *zap.SugaredLogger) *App {
	return &App{Analyzer: analyzer, Artifacts: artifacts, Log: log}
}

func (a *App) LoadCatalogReplicas(ctx context.Context) error { return nil }

// RunTask implements librosa.basic(file_data[]): one Analyze call per WAV,
// emitting one result per (file, dtype) as spec §4.4 requires.
func (a *App) RunTask(ctx context.Context, t *task.Task) *task.Task {
	raw, _ := t.Args["file_data"].([]any)
	if len(raw) == 0 {
		return t.Fail(fmt.Errorf("librosa: no file_data"))
	}

	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		path, _ := m["path"].(string)
		fileID, _ := m["file_id"].(int64)
		if !strings.HasSuffix(strings.ToLower(path), ".wav") {
			continue
		}

		analysis, err := a.Analyzer.Analyze(ctx, path)
		if err != nil {
			return t.Fail(fmt.Errorf("librosa: analyze %s: %w", path, err))
		}

		t.AddResult("duration", map[string]any{"file_id": fileID, "value": round3(analysis.DurationSeconds)})
		t.AddResult("tempo", map[string]any{"file_id": fileID, "value": round1(analysis.TempoBPM)})

		if a.Artifacts != nil && len(analysis.BeatFrames) > 0 {
			artifactPath, err := a.Artifacts.Put(ctx, fileID, "beat_frames", analysis.BeatFrames)
			if err != nil {
				return t.Fail(fmt.Errorf("librosa: store beat frames: %w", err))
			}
			t.AddResult("beat_frames", map[string]any{"file_id": fileID, "path": artifactPath})
		}

		if dist := chromaDistribution(analysis.Chromagram); dist != nil {
			t.AddResult("chroma_distribution", map[string]any{"file_id": fileID, "channels": dist})
		}
	}

	return t.Succeed()
}

// chromaDistribution hard-thresholds values <1.0 to 0, then reduces the
// 12xN chromagram to a 12-channel distribution by column-sum / total (spec
// §4.4).
func chromaDistribution(chroma [12][]float64) []float64 {
	sums := make([]float64, 12)
	total := 0.0
	matched := false
	for ch := 0; ch < 12; ch++ {
		for _, v := range chroma[ch] {
			if v < 1.0 {
				continue
			}
			sums[ch] += v
			total += v
			matched = true
		}
	}
	if !matched || total == 0 {
		return nil
	}
	out := make([]float64, 12)
	for ch := range sums {
		out[ch] = sums[ch] / total
	}
	return out
}

func round3(v float64) float64 { return roundN(v, 1000) }
func round1(v float64) float64 { return roundN(v, 10) }

func roundN(v, factor float64) float64 {
	return float64(int64(v*factor+0.5)) / factor
}
