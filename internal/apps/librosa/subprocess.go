package librosa

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// subprocessAnalyzer invokes an external librosa-backed analyzer binary per
// file and decodes its JSON stdout, mirroring file_mover's rar/unrar
// subprocess boundary (spec §1 scopes "the DSP library that yields
// duration/tempo/chromagram" out as an external collaborator, specified
// only by its contract).
type subprocessAnalyzer struct {
	command string
}

// NewSubprocessAnalyzer builds an Analyzer that runs command <path> and
// parses a {duration_seconds, tempo_bpm, beat_frames, chromagram} JSON
// object from its stdout.
func NewSubprocessAnalyzer(command string) Analyzer {
	return &subprocessAnalyzer{command: command}
}

func (a *subprocessAnalyzer) Analyze(ctx context.Context, path string) (Analysis, error) {
	out, err := exec.CommandContext(ctx, a.command, path).Output()
	if err != nil {
		return Analysis{}, fmt.Errorf("librosa: analyze %s: %w", path, err)
	}
	var raw struct {
		DurationSeconds float64       `json:"duration_seconds"`
		TempoBPM        float64       `json:"tempo_bpm"`
		BeatFrames      []float64     `json:"beat_frames"`
		Chromagram      [12][]float64 `json:"chromagram"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		return Analysis{}, fmt.Errorf("librosa: decode analysis for %s: %w", path, err)
	}
	return Analysis{
		DurationSeconds: raw.DurationSeconds,
		TempoBPM:        raw.TempoBPM,
		BeatFrames:      raw.BeatFrames,
		Chromagram:      raw.Chromagram,
	}, nil
}

// fileArtifactStore persists beat-frame arrays under root, one JSON file per
// (fileID, dtype) — the AudioData.datafilepath variant of spec §6's
// "exactly one of datavalue/datafilepath/dataforeignkey" rule, the other
// two variants being inline scalars and cross-store references that don't
// apply to a bulky float array.
type fileArtifactStore struct {
	root string
}

// NewFileArtifactStore builds an ArtifactStore rooted at root (typically
// <sonicat_path>/data/analysis/artifacts).
func NewFileArtifactStore(root string) ArtifactStore {
	return &fileArtifactStore{root: root}
}

func (s *fileArtifactStore) Put(ctx context.Context, fileID int64, dtype string, data []float64) (string, error) {
	rel := filepath.Join(dtype, fmt.Sprintf("%d.json", fileID))
	full := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("librosa: mkdir artifact dir: %w", err)
	}
	buf, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("librosa: marshal artifact: %w", err)
	}
	if err := renameio.WriteFile(full, buf, 0o644); err != nil {
		return "", fmt.Errorf("librosa: write artifact: %w", err)
	}
	return rel, nil
}
