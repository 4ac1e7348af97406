// Package file holds small filesystem helpers shared by the download
// and maintenance paths.
package file

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"tubearchivist/internal/utils/logging"
)

// Move renames src to dst, falling back to copy-and-delete when the
// two paths sit on different filesystems.
func Move(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	// EXDEV or similar, copy across the boundary.
	if copyErr := copyFile(src, dst); copyErr != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, copyErr)
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// Chown applies uid/gid when both are set, skipping silently otherwise.
// Unprivileged runs leave ownership untouched.
func Chown(path string, uid, gid int) {
	if uid <= 0 || gid <= 0 {
		return
	}
	if err := os.Chown(path, uid, gid); err != nil {
		logging.W("chown %s to %d:%d failed: %v", path, uid, gid, err)
	}
}

// ClearDir removes every entry inside dir, keeping dir itself.
func ClearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Size returns the file size in bytes, or 0 when the file is missing.
func Size(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Exists reports whether path points at an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
