package actions

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ConflictStrategy says what Archive does when Destination already has a
// file with the source's basename. file_mover.Move always passes
// ConflictRename (a moved-in asset never clobbers one already at the
// destination); no caller in the repository passes ConflictOverwrite or
// ConflictSkip.
type ConflictStrategy string

const (
	ConflictRename    ConflictStrategy = "rename"
	ConflictOverwrite ConflictStrategy = "overwrite"
	ConflictSkip      ConflictStrategy = "skip"
)

// ArchiveOptions controls Archive's behavior.
type ArchiveOptions struct {
	Destination string
	Conflict    ConflictStrategy
}

// Archive moves src into Destination, the primitive behind
// file_mover.Move and the rar-relocation step of file_mover.Archive. It
// tries os.Rename first (atomic on the same filesystem, the common case of
// moving within one catalog's temp/data tree) and falls back to copy-then-
// delete across a filesystem boundary.
func Archive(src string, opts ArchiveOptions) (finalDest string, err error) {
	if opts.Destination == "" {
		return "", fmt.Errorf("archive: destination is required")
	}
	if err := os.MkdirAll(opts.Destination, 0o755); err != nil {
		return "", fmt.Errorf("archive: mkdir dest: %w", err)
	}

	base := filepath.Base(src)
	destPath := filepath.Join(opts.Destination, base)

	target, err := resolveConflict(destPath, opts.Conflict)
	if err != nil {
		return "", err
	}
	if target == "" {
		return "", nil
	}

	if err := os.Rename(src, target); err == nil {
		return target, nil
	}

	if err := copyAcrossFilesystems(src, target); err != nil {
		return "", fmt.Errorf("archive: copy fallback: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return "", fmt.Errorf("archive: remove src after copy: %w", err)
	}
	return target, nil
}

// resolveConflict decides the actual destination path for destPath given
// strategy, returning ("", nil) for a clean ConflictSkip (caller does
// nothing further).
func resolveConflict(destPath string, strategy ConflictStrategy) (string, error) {
	_, statErr := os.Lstat(destPath)
	switch {
	case statErr == nil:
		switch strategy {
		case ConflictOverwrite:
			return destPath, nil
		case ConflictSkip:
			return "", nil
		case ConflictRename, "":
			return uniqueName(destPath), nil
		default:
			return "", fmt.Errorf("archive: unknown conflict strategy %q", strategy)
		}
	case os.IsNotExist(statErr):
		return destPath, nil
	default:
		return "", fmt.Errorf("archive: stat dest: %w", statErr)
	}
}

func uniqueName(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	h := sha256.New()
	io.WriteString(h, base)
	io.WriteString(h, time.Now().UTC().Format(time.RFC3339Nano))
	sum := hex.EncodeToString(h.Sum(nil))[:8]
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s", name, sum, ext))
}

func copyAcrossFilesystems(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open src: %w", err)
	}
	defer sf.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir dst dir: %w", err)
	}

	df, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create dst: %w", err)
	}
	defer func() {
		if cerr := df.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	if _, err := io.Copy(df, sf); err != nil {
		return fmt.Errorf("copy data: %w", err)
	}
	return df.Sync()
}
