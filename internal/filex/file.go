package filex

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// TempPrefix marks in-flight files created by WriteFileAtomic.
const TempPrefix = ".tmp-"

// EnsureDir creates dir (and parents) if needed and returns its absolute path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// WriteFileAtomic writes data next to name under a temporary file and then
// renames it into place, so readers see either the old or the new content.
func WriteFileAtomic(name string, data []byte, perm os.FileMode) error {
	return WriteFileAtomicIn(filepath.Dir(name), name, data, perm)
}

// WriteFileAtomicIn is WriteFileAtomic with the temporary file created in
// tmpDir, which must be on the same filesystem as name.
func WriteFileAtomicIn(tmpDir, name string, data []byte, perm os.FileMode) error {
	tmp := filepath.Join(tmpDir, TempPrefix+uuid.NewString())

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp: %w", err)
	}

	if err := os.Rename(tmp, name); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", name, err)
	}

	return nil
}
