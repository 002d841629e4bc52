package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/cubicd/internal/common"
	"github.com/dmitrijs2005/cubicd/internal/filex"
	"github.com/dmitrijs2005/cubicd/internal/logging"
)

// LocalStore keeps files in a directory on the host filesystem. Atomic
// writes stage their temp files in a sibling directory so that every name
// under root belongs to callers.
type LocalStore struct {
	root    string
	staging string
	logger  logging.Logger
}

// OpenLocal mounts dir as the store root. When dir cannot be used as a
// directory it is formatted (removed and recreated) and mounted again.
// Temp files left behind by an interrupted atomic write are cleaned up.
// The staging directory is dir with a ".staging" suffix.
func OpenLocal(ctx context.Context, dir string, logger logging.Logger) (*LocalStore, error) {
	root, err := mountDir(ctx, dir, logger)
	if err != nil {
		return nil, err
	}
	staging, err := mountDir(ctx, root+stagingSuffix, logger)
	if err != nil {
		return nil, err
	}

	s := &LocalStore{root: root, staging: staging, logger: logger}
	s.sweepTemp(ctx)

	logger.Info(ctx, "store mounted", "root", root)
	return s, nil
}

func mountDir(ctx context.Context, dir string, logger logging.Logger) (string, error) {
	abs, err := filex.EnsureDir(dir)
	if err == nil {
		return abs, nil
	}

	logger.Warn(ctx, "mount failed, formatting", "dir", dir, "error", err)
	if fi, statErr := os.Stat(dir); statErr == nil && !fi.IsDir() {
		if rmErr := os.Remove(dir); rmErr != nil {
			return "", fmt.Errorf("format %s: %w", dir, rmErr)
		}
	}
	abs, err = filex.EnsureDir(dir)
	if err != nil {
		return "", fmt.Errorf("mount %s: %w", dir, err)
	}
	return abs, nil
}

const stagingSuffix = ".staging"

func (s *LocalStore) sweepTemp(ctx context.Context) {
	entries, err := os.ReadDir(s.staging)
	if err != nil {
		return
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.staging, e.Name())); err == nil {
			s.logger.Debug(ctx, "removed stale temp file", "name", e.Name())
		}
	}
}

func (s *LocalStore) resolve(p string) string {
	np := NormalizePath(p)
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(np, "/")))
}

func (s *LocalStore) Read(ctx context.Context, p string) ([]byte, error) {
	name := s.resolve(p)
	fi, err := os.Stat(name)
	if err != nil {
		return nil, mapNotExist(p, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s: %w", p, common.ErrNotFound)
	}

	b, err := os.ReadFile(name)
	if err != nil {
		return nil, mapNotExist(p, err)
	}
	return b, nil
}

func (s *LocalStore) Open(ctx context.Context, p string) (io.ReadCloser, int64, error) {
	f, err := os.Open(s.resolve(p))
	if err != nil {
		return nil, 0, mapNotExist(p, err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat %s: %w", p, err)
	}
	if fi.IsDir() {
		_ = f.Close()
		return nil, 0, fmt.Errorf("%s: %w", p, common.ErrNotFound)
	}

	return f, fi.Size(), nil
}

func (s *LocalStore) Write(ctx context.Context, p string, data []byte) error {
	np, err := writablePath(p)
	if err != nil {
		return err
	}

	name := s.resolve(np)
	if err := os.MkdirAll(filepath.Dir(name), 0o770); err != nil {
		return fmt.Errorf("mkdir for %s: %w", np, errors.Join(common.ErrStorage, err))
	}
	if err := filex.WriteFileAtomicIn(s.staging, name, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", np, errors.Join(common.ErrStorage, err))
	}
	return nil
}

func (s *LocalStore) Create(ctx context.Context, p string) (Writer, error) {
	np, err := writablePath(p)
	if err != nil {
		return nil, err
	}

	name := s.resolve(np)
	if err := os.MkdirAll(filepath.Dir(name), 0o770); err != nil {
		return nil, fmt.Errorf("mkdir for %s: %w", np, errors.Join(common.ErrStorage, err))
	}

	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", np, errors.Join(common.ErrStorage, err))
	}

	return &localWriter{f: f}, nil
}

func (s *LocalStore) Delete(ctx context.Context, p string) (bool, error) {
	name := s.resolve(p)
	fi, err := os.Lstat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", p, err)
	}
	if fi.IsDir() {
		return false, nil
	}

	if err := os.Remove(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("remove %s: %w", p, errors.Join(common.ErrStorage, err))
	}
	return true, nil
}

func (s *LocalStore) List(ctx context.Context) ([]FileInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", errors.Join(common.ErrStorage, err))
	}

	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		var size int64
		if !info.IsDir() {
			size = info.Size()
		}
		out = append(out, FileInfo{Name: "/" + e.Name(), Size: size})
	}
	return out, nil
}

func (s *LocalStore) Exists(ctx context.Context, p string) (bool, error) {
	_, err := os.Stat(s.resolve(p))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", p, err)
}

func (s *LocalStore) Close() error { return nil }

func mapNotExist(p string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", p, common.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", p, errors.Join(common.ErrStorage, err))
}

type localWriter struct {
	f    *os.File
	done bool
}

func (w *localWriter) Write(b []byte) (int, error) {
	if w.done {
		return 0, os.ErrClosed
	}
	return w.f.Write(b)
}

func (w *localWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		return errors.Join(common.ErrStorage, err)
	}
	if err := w.f.Close(); err != nil {
		return errors.Join(common.ErrStorage, err)
	}
	return nil
}

// Abort keeps whatever bytes already reached the file, matching a flash
// filesystem whose handle is dropped mid-write.
func (w *localWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	return w.f.Close()
}
