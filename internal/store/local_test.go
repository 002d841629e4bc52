package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/cubicd/internal/filex"
	"github.com/dmitrijs2005/cubicd/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) Store {
	t.Helper()
	s, err := OpenLocal(context.Background(), t.TempDir(), logging.Nop())
	require.NoError(t, err)
	return s
}

func TestLocalStore_Contract(t *testing.T) {
	runContract(t, newLocal)
}

func TestOpenLocal_FormatsWhenRootIsAFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "flash")
	require.NoError(t, os.WriteFile(dir, []byte("garbage"), 0o600))

	s, err := OpenLocal(context.Background(), dir, logging.Nop())
	require.NoError(t, err)

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	require.NoError(t, s.Write(context.Background(), "/a.txt", []byte("x")))
}

func TestOpenLocal_SweepsTempFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "flash")
	require.NoError(t, os.MkdirAll(dir+stagingSuffix, 0o700))
	stale := filepath.Join(dir+stagingSuffix, filex.TempPrefix+"leftover")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o600))

	_, err := OpenLocal(context.Background(), dir, logging.Nop())
	require.NoError(t, err)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStore_TempLookingNamesSurviveRemount(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "flash")
	s, err := OpenLocal(ctx, dir, logging.Nop())
	require.NoError(t, err)

	name := "/" + filex.TempPrefix + "notes.txt"
	w, err := s.Create(ctx, name)
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, s.Write(ctx, "/config.json", []byte("{}")))

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []FileInfo{{Name: name, Size: 3}, {Name: "/config.json", Size: 2}}, list)

	s, err = OpenLocal(ctx, dir, logging.Nop())
	require.NoError(t, err)
	b, err := s.Read(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b))
}

func TestLocalStore_StaysInsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "root")
	s, err := OpenLocal(context.Background(), root, logging.Nop())
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), "../escape.txt", []byte("x")))

	_, err = os.Stat(filepath.Join(parent, "escape.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	assert.NoError(t, err)
}

func TestLocalStore_ListShowsDirectoriesWithZeroSize(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "/www/app.js", []byte("abc")))

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []FileInfo{{Name: "/www", Size: 0}}, list)

	ok, err := s.Delete(ctx, "/www")
	require.NoError(t, err)
	assert.False(t, ok, "directories are not deleted")
}

func TestLocalStore_AbortKeepsPartialContent(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	w, err := s.Create(ctx, "/part.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte("half"))
	require.NoError(t, err)
	require.NoError(t, w.Abort())
	require.NoError(t, w.Close(), "close after abort is a no-op")

	b, err := s.Read(ctx, "/part.bin")
	require.NoError(t, err)
	assert.Equal(t, "half", string(b))
}
