// Package actions holds file_mover's two leaf filesystem primitives: Copy
// (used by Restore to stage a .rar archive next to its extraction target
// before invoking unrar) and Delete (used by Remove's single-file case,
// with directory trees handled directly by os.RemoveAll instead). The
// Archive move primitive lives in this package too, in archive.go;
// rar/unrar invocation lives in internal/filemover, not here.
package actions

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyOptions controls Copy's behavior.
type CopyOptions struct {
	Destination    string
	Atomic         bool
	VerifyChecksum bool
}

// Copy copies src into Destination, preserving its basename. Atomic writes
// to a sibling temp file and renames into place, so a reader never observes
// a partially-written archive mid-Restore. VerifyChecksum re-hashes both
// sides after the copy, catching a corrupt read or short write.
func Copy(src string, opts CopyOptions) (destPath string, err error) {
	info, err := os.Lstat(src)
	if err != nil {
		return "", fmt.Errorf("lstat src: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("source is not a regular file: %s", src)
	}

	if err := os.MkdirAll(opts.Destination, 0o755); err != nil {
		return "", fmt.Errorf("mkdir dest: %w", err)
	}

	base := filepath.Base(src)
	destPath = filepath.Join(opts.Destination, base)

	if opts.Atomic {
		tmp, err := os.CreateTemp(opts.Destination, "."+base+".tmp-*")
		if err != nil {
			return "", fmt.Errorf("create temp: %w", err)
		}
		tmpPath := tmp.Name()
		defer func() {
			_ = tmp.Close()
			if err != nil {
				_ = os.Remove(tmpPath)
			}
		}()

		if err = copyFileContents(src, tmp); err != nil {
			return "", err
		}
		if err = tmp.Sync(); err != nil {
			return "", fmt.Errorf("sync temp: %w", err)
		}
		if err = tmp.Close(); err != nil {
			return "", fmt.Errorf("close temp: %w", err)
		}
		if err = os.Rename(tmpPath, destPath); err != nil {
			return "", fmt.Errorf("rename temp: %w", err)
		}
	} else {
		df, err := os.Create(destPath)
		if err != nil {
			return "", fmt.Errorf("create dest: %w", err)
		}
		defer func() {
			if cerr := df.Close(); cerr != nil && err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(destPath)
			}
		}()
		if err = copyFileContents(src, df); err != nil {
			return "", err
		}
		if err = df.Sync(); err != nil {
			return "", fmt.Errorf("sync dest: %w", err)
		}
	}

	if opts.VerifyChecksum {
		srcSum, err := fileSHA256(src)
		if err != nil {
			return "", fmt.Errorf("src checksum: %w", err)
		}
		dstSum, err := fileSHA256(destPath)
		if err != nil {
			return "", fmt.Errorf("dest checksum: %w", err)
		}
		if srcSum != dstSum {
			return "", fmt.Errorf("checksum mismatch: %s != %s", srcSum, dstSum)
		}
	}

	return destPath, nil
}

// Delete removes path, the leaf primitive behind file_mover.Remove for a
// single extracted archive file (directory trees go through os.RemoveAll
// in filemover.go instead). Deleting an already-absent path is not an
// error: Remove may race a prior crash's partial cleanup.
func Delete(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("lstat: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	return os.Remove(path)
}

func copyFileContents(src string, dst *os.File) error {
	sf, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open src: %w", err)
	}
	defer sf.Close()

	if _, err := io.Copy(dst, sf); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
