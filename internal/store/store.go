// Package store is the device's persistent store: a flat namespace of
// files addressed by absolute, '/'-rooted paths. JSON documents and opaque
// blobs share the namespace. Every call blocks for the underlying I/O.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dmitrijs2005/cubicd/internal/common"
	"github.com/dmitrijs2005/cubicd/internal/dbx"
	"github.com/dmitrijs2005/cubicd/internal/logging"
)

// FileInfo is one entry of a store listing.
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Writer is an open write target. Close commits the written bytes and makes
// them visible to readers; Abort releases the target without committing
// anything further. Exactly one of them should be called, extra calls are
// no-ops.
type Writer interface {
	io.Writer
	Close() error
	Abort() error
}

type Store interface {
	// Read returns the whole content at p, or common.ErrNotFound.
	Read(ctx context.Context, p string) ([]byte, error)

	// Open streams the content at p. The caller closes the reader.
	Open(ctx context.Context, p string) (io.ReadCloser, int64, error)

	// Write replaces the content at p with data.
	Write(ctx context.Context, p string, data []byte) error

	// Create opens a write target at p. Existing content is truncated
	// immediately.
	Create(ctx context.Context, p string) (Writer, error)

	// Delete removes p and reports whether a file was actually removed.
	// A missing path is (false, nil).
	Delete(ctx context.Context, p string) (bool, error)

	// List returns the top-level entries of the namespace.
	List(ctx context.Context) ([]FileInfo, error)

	Exists(ctx context.Context, p string) (bool, error)

	Close() error
}

// NormalizePath turns a caller-supplied name into a store path: a leading
// '/' is added when missing and dot segments are resolved, so the result
// never escapes the root.
func NormalizePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// writablePath normalizes p and rejects paths that cannot name a file.
func writablePath(p string) (string, error) {
	np := NormalizePath(p)
	if np == "/" || strings.ContainsRune(np, 0) {
		return "", fmt.Errorf("%q: %w", p, common.ErrInvalidPath)
	}
	return np, nil
}

// ReadJSON decodes the document at p into v.
func ReadJSON(ctx context.Context, s Store, p string, v any) error {
	b, err := s.Read(ctx, p)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", p, err)
	}
	return nil
}

// WriteJSON encodes v and stores it at p.
func WriteJSON(ctx context.Context, s Store, p string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p, err)
	}
	return s.Write(ctx, p, b)
}

// Options selects and configures a backend.
type Options struct {
	Backend     string // local, sqlite, postgres or s3
	DataDir     string
	DatabaseDSN string
	S3          S3Options
}

// S3Options locates the bucket used by the s3 backend.
type S3Options struct {
	User     string
	Password string
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
}

// Open builds the backend selected by opts.Backend.
func Open(ctx context.Context, opts Options, logger logging.Logger) (Store, error) {
	logger = logger.With("module", "store", "backend", opts.Backend)

	switch opts.Backend {
	case "local", "":
		return OpenLocal(ctx, opts.DataDir, logger)
	case "sqlite":
		return OpenSQL(ctx, dbx.DialectSQLite, opts.DatabaseDSN, logger)
	case "postgres":
		return OpenSQL(ctx, dbx.DialectPostgres, opts.DatabaseDSN, logger)
	case "s3":
		return OpenS3(ctx, opts.S3, logger)
	default:
		return nil, fmt.Errorf("%q: %w", opts.Backend, common.ErrUnknownBackend)
	}
}
