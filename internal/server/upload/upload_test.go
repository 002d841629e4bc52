package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"testing"
	"testing/iotest"

	"github.com/dmitrijs2005/cubicd/internal/common"
	"github.com/dmitrijs2005/cubicd/internal/logging"
	"github.com/dmitrijs2005/cubicd/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) store.Store {
	t.Helper()
	s, err := store.OpenLocal(context.Background(), t.TempDir(), logging.Nop())
	require.NoError(t, err)
	return s
}

// chunkReader hands out data in randomly sized pieces.
type chunkReader struct {
	data []byte
	rnd  *rand.Rand
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := 1 + r.rnd.Intn(min(len(p), 5000))
	n = min(n, len(r.data))
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func TestReceive_RoundTrip(t *testing.T) {
	ctx := context.Background()
	sizes := []int{0, 1, ChunkSize - 1, ChunkSize, ChunkSize + 1, 10*ChunkSize + 17, 100_000}

	for i, size := range sizes {
		s := newLocal(t)
		h := NewHandler(s, logging.Nop())

		payload := make([]byte, size)
		rnd := rand.New(rand.NewSource(int64(i)))
		rnd.Read(payload)

		res := h.Receive(ctx, "x.bin", &chunkReader{data: payload, rnd: rnd})
		require.NoError(t, res.Err, "size %d", size)
		assert.Equal(t, "/x.bin", res.Path)
		assert.Equal(t, int64(size), res.Size)
		assert.Equal(t, Idle, h.State())

		got, err := s.Read(ctx, "/x.bin")
		require.NoError(t, err)
		assert.True(t, bytes.Equal(payload, got), "size %d", size)
	}
}

func TestReceive_OneByteReads(t *testing.T) {
	s := newLocal(t)
	h := NewHandler(s, logging.Nop())

	res := h.Receive(context.Background(), "/a.txt", iotest.OneByteReader(bytes.NewReader([]byte("abc"))))
	require.NoError(t, res.Err)

	got, err := s.Read(context.Background(), "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestReceive_TruncatesExisting(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)
	require.NoError(t, s.Write(ctx, "/x.bin", []byte("a much longer previous content")))

	res := NewHandler(s, logging.Nop()).Receive(ctx, "/x.bin", bytes.NewReader([]byte("new")))
	require.NoError(t, res.Err)

	got, err := s.Read(ctx, "/x.bin")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestReceive_OpenFailureIsSilentNoop(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)
	h := NewHandler(s, logging.Nop())

	res := h.Receive(ctx, "/", bytes.NewReader([]byte("data")))
	require.ErrorIs(t, res.Err, common.ErrInvalidPath)
	assert.Equal(t, int64(0), res.Size)
	assert.Equal(t, Idle, h.State())

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// recordingWriter captures how the handler drives a write target.
type recordingWriter struct {
	chunks   []int
	closed   bool
	aborted  bool
	writeErr error
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	if w.writeErr != nil {
		return 0, w.writeErr
	}
	w.chunks = append(w.chunks, len(p))
	return len(p), nil
}
func (w *recordingWriter) Close() error { w.closed = true; return nil }
func (w *recordingWriter) Abort() error { w.aborted = true; return nil }

type recordingStore struct {
	store.Store
	w *recordingWriter
}

func (s *recordingStore) Create(ctx context.Context, p string) (store.Writer, error) {
	return s.w, nil
}

func TestReceive_ChunksAreBounded(t *testing.T) {
	w := &recordingWriter{}
	h := NewHandler(&recordingStore{w: w}, logging.Nop())

	res := h.Receive(context.Background(), "/big", bytes.NewReader(make([]byte, 5*ChunkSize+3)))
	require.NoError(t, res.Err)
	assert.True(t, w.closed)
	assert.False(t, w.aborted)
	for _, n := range w.chunks {
		assert.LessOrEqual(t, n, ChunkSize)
	}
	assert.Equal(t, ChunkSize, w.chunks[0])
}

func TestReceive_ReadErrorAborts(t *testing.T) {
	w := &recordingWriter{}
	h := NewHandler(&recordingStore{w: w}, logging.Nop())

	broken := io.MultiReader(bytes.NewReader([]byte("partial")), iotest.ErrReader(io.ErrUnexpectedEOF))
	res := h.Receive(context.Background(), "/x.bin", broken)

	require.ErrorIs(t, res.Err, io.ErrUnexpectedEOF)
	assert.Equal(t, int64(7), res.Size)
	assert.True(t, w.aborted)
	assert.False(t, w.closed)
	assert.Equal(t, Idle, h.State())
}

func TestReceive_CancelledContextAborts(t *testing.T) {
	w := &recordingWriter{}
	h := NewHandler(&recordingStore{w: w}, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := h.Receive(ctx, "/x.bin", bytes.NewReader([]byte("data")))
	require.ErrorIs(t, res.Err, context.Canceled)
	assert.True(t, w.aborted)
}

func TestReceive_WriteErrorStopsWrites(t *testing.T) {
	w := &recordingWriter{writeErr: errors.New("disk full")}
	h := NewHandler(&recordingStore{w: w}, logging.Nop())

	res := h.Receive(context.Background(), "/x.bin", bytes.NewReader(make([]byte, 3*ChunkSize)))
	require.Error(t, res.Err)
	assert.True(t, w.aborted)
	assert.False(t, w.closed)
}

type panicReader struct{}

func (panicReader) Read([]byte) (int, error) { panic("transport gone") }

func TestReceive_PanicReleasesTarget(t *testing.T) {
	w := &recordingWriter{}
	h := NewHandler(&recordingStore{w: w}, logging.Nop())

	assert.Panics(t, func() {
		h.Receive(context.Background(), "/x.bin", panicReader{})
	})
	assert.True(t, w.aborted)
	assert.Equal(t, Idle, h.State())
}
