package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/cubicd/internal/common"
	"github.com/dmitrijs2005/cubicd/internal/dbx"
	"github.com/dmitrijs2005/cubicd/internal/logging"
	"github.com/dmitrijs2005/cubicd/internal/store/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const (
	queryRead   = `SELECT content FROM files WHERE path = ?`
	querySize   = `SELECT size FROM files WHERE path = ?`
	queryUpsert = `INSERT INTO files (path, content, size, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (path) DO UPDATE SET content = excluded.content, size = excluded.size, updated_at = excluded.updated_at`
	queryDelete = `DELETE FROM files WHERE path = ?`
	queryList   = `SELECT path, size FROM files WHERE path NOT LIKE '/%/%' ORDER BY path`
)

// SQLStore keeps files as rows of a single table. The same code serves
// SQLite (a single file on the device) and PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	dialect dbx.Dialect
	logger  logging.Logger
}

// OpenSQL connects to dsn, applies migrations and returns the store.
func OpenSQL(ctx context.Context, dialect dbx.Dialect, dsn string, logger logging.Logger) (*SQLStore, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == dbx.DialectSQLite {
		// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	if err := Migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dialect, err)
	}

	logger.Info(ctx, "store mounted", "dialect", string(dialect))
	return NewSQLStore(db, dialect, logger), nil
}

// Migrate brings the schema up to date.
func Migrate(ctx context.Context, db *sql.DB, dialect dbx.Dialect) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(dialect.GooseDialect()); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, string(dialect))
}

func NewSQLStore(db *sql.DB, dialect dbx.Dialect, logger logging.Logger) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, logger: logger}
}

func (s *SQLStore) q(query string) string {
	return dbx.Rebind(s.dialect, query)
}

func (s *SQLStore) Read(ctx context.Context, p string) ([]byte, error) {
	np := NormalizePath(p)

	var content []byte
	err := s.db.QueryRowContext(ctx, s.q(queryRead), np).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", np, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", np, errors.Join(common.ErrStorage, err))
	}
	return content, nil
}

func (s *SQLStore) Open(ctx context.Context, p string) (io.ReadCloser, int64, error) {
	b, err := s.Read(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	return io.NopCloser(bytes.NewReader(b)), int64(len(b)), nil
}

func (s *SQLStore) Write(ctx context.Context, p string, data []byte) error {
	np, err := writablePath(p)
	if err != nil {
		return err
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.upsert(ctx, tx, np, data)
	})
}

func (s *SQLStore) upsert(ctx context.Context, db dbx.DBTX, np string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	if _, err := db.ExecContext(ctx, s.q(queryUpsert), np, data, int64(len(data))); err != nil {
		return fmt.Errorf("upsert %s: %w", np, errors.Join(common.ErrStorage, err))
	}
	return nil
}

// Create truncates the row right away; the bytes are buffered and written
// in one statement on Close.
func (s *SQLStore) Create(ctx context.Context, p string) (Writer, error) {
	np, err := writablePath(p)
	if err != nil {
		return nil, err
	}
	if err := s.upsert(ctx, s.db, np, nil); err != nil {
		return nil, err
	}
	return &sqlWriter{ctx: ctx, store: s, path: np}, nil
}

func (s *SQLStore) Delete(ctx context.Context, p string) (bool, error) {
	np := NormalizePath(p)

	res, err := s.db.ExecContext(ctx, s.q(queryDelete), np)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", np, errors.Join(common.ErrStorage, err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *SQLStore) List(ctx context.Context) ([]FileInfo, error) {
	rows, err := s.db.QueryContext(ctx, s.q(queryList))
	if err != nil {
		return nil, fmt.Errorf("error selecting files: %w", errors.Join(common.ErrStorage, err))
	}
	defer rows.Close()

	result := make([]FileInfo, 0)
	for rows.Next() {
		var fi FileInfo
		if err := rows.Scan(&fi.Name, &fi.Size); err != nil {
			return nil, err
		}
		result = append(result, fi)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLStore) Exists(ctx context.Context, p string) (bool, error) {
	np := NormalizePath(p)

	var size int64
	err := s.db.QueryRowContext(ctx, s.q(querySize), np).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", np, err)
	}
	return true, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

type sqlWriter struct {
	ctx   context.Context
	store *SQLStore
	path  string
	buf   bytes.Buffer
	done  bool
}

func (w *sqlWriter) Write(b []byte) (int, error) {
	if w.done {
		return 0, errors.New("write on closed target")
	}
	return w.buf.Write(b)
}

func (w *sqlWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	data := w.buf.Bytes()
	return dbx.WithTx(w.ctx, w.store.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return w.store.upsert(ctx, tx, w.path, data)
	})
}

// Abort drops the buffered bytes; the row keeps the truncated content.
func (w *sqlWriter) Abort() error {
	w.done = true
	w.buf.Reset()
	return nil
}
