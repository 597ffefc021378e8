package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// writeFileAtomic writes data to path by first writing to a temp file in the
// same directory, fsyncing it, then renaming over the destination. This
// gives crash atomicity: readers see either the old file or the new one,
// never a partial write.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("store: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("store: rename into place: %w", err)
	}
	return nil
}

// writeJSONAtomic marshals v and writes it atomically. Callers that need
// the wire-canonical form call schema.Marshal themselves and use
// writeFileAtomic directly; this helper is for store-internal bookkeeping
// files that are not part of the schema-validated bundle surface.
func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", path, err)
	}
	return writeFileAtomic(path, data, 0o644)
}

// copyFileAtomic streams src into dst via a temp-file-then-rename so a
// reader never observes a partially copied file.
func copyFileAtomic(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("store: open %s: %w", src, err)
	}
	defer in.Close()

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("store: copy %s to %s: %w", src, dst, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: fsync copy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close copy: %w", err)
	}
	return os.Rename(tmpName, dst)
}

// linkOrCopy hard-links dst to src, falling back to a full atomic copy when
// the filesystem does not support hard links across the two paths (e.g.
// cross-device, or a filesystem like FAT without link support). The caller
// is responsible for verifying the result still hashes to the expected
// digest.
func linkOrCopy(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("store: mkdir %s: %w", filepath.Dir(dst), err)
	}
	if _, err := os.Stat(dst); err == nil {
		return nil // already linked/copied
	}
	if err := os.Link(src, dst); err != nil {
		return copyFileAtomic(src, dst)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
