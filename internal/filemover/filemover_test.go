package filemover

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestMoveRelocatesFile(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "kick.wav")
	if err := os.WriteFile(src, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := New()
	dest, err := m.Move(context.Background(), src, dstDir)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("moved file missing at %s: %v", dest, err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("source still exists after move")
	}
}

func TestRemoveDeletesFileAndTree(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "leftover.wav")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := New()
	if err := m.Remove(context.Background(), file); err != nil {
		t.Fatalf("Remove file: %v", err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Errorf("file still exists")
	}

	sub := filepath.Join(dir, "Label - Pack")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := m.Remove(context.Background(), sub); err != nil {
		t.Fatalf("Remove dir: %v", err)
	}
	if _, err := os.Stat(sub); !os.IsNotExist(err) {
		t.Errorf("dir still exists")
	}
}

func TestRemoveOnMissingPathIsNotAnError(t *testing.T) {
	m := New()
	if err := m.Remove(context.Background(), filepath.Join(t.TempDir(), "gone")); err != nil {
		t.Errorf("Remove on missing path: %v", err)
	}
}

func TestArchiveAndRestoreRoundTrip(t *testing.T) {
	if _, err := exec.LookPath("rar"); err != nil {
		t.Skip("rar binary not available")
	}
	if _, err := exec.LookPath("unrar"); err != nil {
		t.Skip("unrar binary not available")
	}

	root := t.TempDir()
	assetDir := filepath.Join(root, "Acme Sounds - Pack Vol 1")
	if err := os.MkdirAll(assetDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(assetDir, "kick.wav"), []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	managedDir := filepath.Join(root, "managed")
	m := New()
	if err := m.Archive(context.Background(), assetDir, managedDir); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	archivePath := filepath.Join(managedDir, "Acme Sounds - Pack Vol 1.rar")
	if _, err := os.Stat(archivePath); err != nil {
		t.Fatalf("archive not found: %v", err)
	}
	if _, err := os.Stat(assetDir); !os.IsNotExist(err) {
		t.Errorf("original directory still exists after archive")
	}

	restoreTo := filepath.Join(root, "tmp", "Acme Sounds - Pack Vol 1")
	if err := m.Restore(context.Background(), archivePath, restoreTo); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if _, err := os.Stat(filepath.Join(restoreTo, "kick.wav")); err != nil {
		t.Errorf("restored file missing: %v", err)
	}
}
