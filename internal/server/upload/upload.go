// Package upload streams incoming files into the persistent store. One
// session is live at a time; it moves Idle -> Receiving -> Idle and always
// releases its write target, including on client disconnect.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/cubicd/internal/logging"
	"github.com/dmitrijs2005/cubicd/internal/store"
)

// ChunkSize is the size of the reads fed to the write target.
const ChunkSize = 2048

type State int

const (
	Idle State = iota
	Receiving
)

func (s State) String() string {
	if s == Receiving {
		return "receiving"
	}
	return "idle"
}

// Session is one file being received. w is nil when the target could not
// be opened; writes and end are then no-ops.
type Session struct {
	ID      uuid.UUID
	Path    string
	w       store.Writer
	written int64
	err     error
}

// Result describes how a session ended.
type Result struct {
	ID   uuid.UUID
	Path string
	Size int64
	Err  error
}

type Handler struct {
	serial sync.Mutex // held for a whole session

	mu      sync.Mutex
	state   State
	session *Session

	store  store.Store
	logger logging.Logger
}

func NewHandler(s store.Store, logger logging.Logger) *Handler {
	return &Handler{store: s, logger: logger}
}

func (h *Handler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Receive drives a full session: the target at name is opened (truncating
// any existing content), r is copied in ChunkSize pieces, and the target is
// committed at EOF. A read error or a cancelled ctx aborts the session.
func (h *Handler) Receive(ctx context.Context, name string, r io.Reader) (res Result) {
	h.serial.Lock()
	defer h.serial.Unlock()

	h.start(ctx, name)
	done := false
	defer func() {
		if !done {
			res = h.abort(ctx, errors.New("session interrupted"))
		}
	}()

	buf := make([]byte, ChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			done = true
			return h.abort(ctx, err)
		}

		n, err := r.Read(buf)
		if n > 0 {
			h.write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			done = true
			return h.abort(ctx, err)
		}
	}

	done = true
	return h.end(ctx)
}

func (h *Handler) start(ctx context.Context, name string) {
	sess := &Session{ID: uuid.New(), Path: store.NormalizePath(name)}

	w, err := h.store.Create(ctx, sess.Path)
	if err != nil {
		sess.err = fmt.Errorf("open %s: %w", sess.Path, err)
		h.logger.Warn(ctx, "upload target not opened", "session", sess.ID.String(), "path", sess.Path, "error", err)
	} else {
		sess.w = w
		h.logger.Debug(ctx, "upload started", "session", sess.ID.String(), "path", sess.Path)
	}

	h.mu.Lock()
	h.state = Receiving
	h.session = sess
	h.mu.Unlock()
}

func (h *Handler) write(chunk []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sess := h.session
	if h.state != Receiving || sess.w == nil || sess.err != nil {
		return
	}
	n, err := sess.w.Write(chunk)
	sess.written += int64(n)
	if err != nil {
		sess.err = fmt.Errorf("write %s: %w", sess.Path, err)
	}
}

// end commits the target and returns to Idle.
func (h *Handler) end(ctx context.Context) Result {
	h.mu.Lock()
	defer h.mu.Unlock()

	sess := h.finish()
	if sess == nil {
		return Result{}
	}

	if sess.w != nil {
		if sess.err != nil {
			_ = sess.w.Abort()
		} else if err := sess.w.Close(); err != nil {
			sess.err = fmt.Errorf("commit %s: %w", sess.Path, err)
		}
	}

	res := sess.result()
	if res.Err == nil {
		h.logger.Info(ctx, "upload stored", "session", sess.ID.String(), "path", sess.Path, "size", sess.written)
	}
	return res
}

// abort releases the target without committing and returns to Idle.
func (h *Handler) abort(ctx context.Context, cause error) Result {
	h.mu.Lock()
	defer h.mu.Unlock()

	sess := h.finish()
	if sess == nil {
		return Result{}
	}

	if sess.w != nil {
		_ = sess.w.Abort()
	}
	if sess.err == nil {
		sess.err = fmt.Errorf("upload %s aborted: %w", sess.Path, cause)
	}
	h.logger.Warn(ctx, "upload aborted", "session", sess.ID.String(), "path", sess.Path, "error", sess.err)
	return sess.result()
}

// finish detaches the live session. Callers hold h.mu.
func (h *Handler) finish() *Session {
	if h.state != Receiving {
		return nil
	}
	sess := h.session
	h.state = Idle
	h.session = nil
	return sess
}

func (s *Session) result() Result {
	return Result{ID: s.ID, Path: s.Path, Size: s.written, Err: s.err}
}
