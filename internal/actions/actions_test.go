package actions

import (
	"os"
	"path/filepath"
	"testing"
)

// TestCopyAndDelete exercises the pair file_mover.Restore/Remove actually
// drive: Copy staging a file atomically with a checksum (Restore copying a
// .rar next to its extraction target), then Delete removing it (Remove's
// single-file case).
func TestCopyAndDelete(t *testing.T) {
	tmp := t.TempDir()
	srcDir := filepath.Join(tmp, "src")
	dstDir := filepath.Join(tmp, "dst")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(srcDir, "label-title.rar")
	if err := os.WriteFile(src, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Copy(src, CopyOptions{
		Destination:    dstDir,
		Atomic:         true,
		VerifyChecksum: true,
	})
	if err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	dst := filepath.Join(dstDir, "label-title.rar")
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("dest missing: %v", err)
	}

	if err := Delete(src); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source not deleted, err=%v", err)
	}
}

func TestDeleteMissingIsNotAnError(t *testing.T) {
	tmp := t.TempDir()
	if err := Delete(filepath.Join(tmp, "already-gone.rar")); err != nil {
		t.Fatalf("Delete on a missing path should be a no-op, got %v", err)
	}
}

// TestArchive_ConflictRename mirrors file_mover.Move landing two
// same-basename assets in the same destination directory: the second
// archive must not clobber the first.
func TestArchive_ConflictRename(t *testing.T) {
	tmp := t.TempDir()
	srcDir := filepath.Join(tmp, "src")
	dstDir := filepath.Join(tmp, "dst")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		t.Fatal(err)
	}
	src1 := filepath.Join(srcDir, "Label - Title.rar")
	if err := os.WriteFile(src1, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	p1, err := Archive(src1, ArchiveOptions{
		Destination: dstDir,
		Conflict:    ConflictRename,
	})
	if err != nil {
		t.Fatalf("archive 1 failed: %v", err)
	}
	if _, err := os.Stat(p1); err != nil {
		t.Fatalf("archived file missing: %v", err)
	}

	src2 := filepath.Join(srcDir, "Label - Title.rar")
	if err := os.WriteFile(src2, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	p2, err := Archive(src2, ArchiveOptions{
		Destination: dstDir,
		Conflict:    ConflictRename,
	})
	if err != nil {
		t.Fatalf("archive 2 failed: %v", err)
	}
	if p1 == p2 {
		t.Fatalf("expected different archived names, got same: %s", p1)
	}
}

func TestArchive_ConflictOverwrite(t *testing.T) {
	tmp := t.TempDir()
	srcDir := filepath.Join(tmp, "src")
	dstDir := filepath.Join(tmp, "dst")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		t.Fatal(err)
	}
	existing := filepath.Join(dstDir, "Label - Title.rar")
	if err := os.WriteFile(existing, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(srcDir, "Label - Title.rar")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Archive(src, ArchiveOptions{
		Destination: dstDir,
		Conflict:    ConflictOverwrite,
	}); err != nil {
		t.Fatalf("archive overwrite failed: %v", err)
	}
	got, err := os.ReadFile(existing)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Fatalf("expected overwritten content 'new', got %q", string(got))
	}
}
