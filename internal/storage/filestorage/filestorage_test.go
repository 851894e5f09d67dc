package filestorage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/UnendingLoop/FaceSwap/internal/filename"
	"github.com/UnendingLoop/FaceSwap/internal/model"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *FileImageStorage {
	t.Helper()
	namer := filename.NewNamer()
	namer.Now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 8, time.UTC) }

	s, err := NewFileStorage(t.TempDir(), "http://localhost:8080/", namer)
	require.NoError(t, err)
	return s
}

func TestNewFileStorage_CreatesFoldersIdempotent(t *testing.T) {
	s := newTestStorage(t)

	for _, f := range model.Folders {
		st, err := os.Stat(filepath.Join(s.Root(), f))
		require.NoError(t, err)
		require.True(t, st.IsDir())
	}

	require.NoError(t, s.EnsureFolders(context.Background()))
}

func TestNewFileStorage_EmptyRoot(t *testing.T) {
	_, err := NewFileStorage(" ", "", filename.NewNamer())
	require.Error(t, err)
}

func TestStore_OpenRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sf, err := s.Store(ctx, model.FolderSource, "../me.png", 3, model.PNG, bytes.NewReader([]byte("abc")))
	require.NoError(t, err)
	require.Equal(t, model.FolderSource, sf.Folder)
	require.Equal(t, "../me.png", sf.OriginalName)
	require.True(t, strings.HasPrefix(sf.StoredName, "20250304T050607000000008_"))
	require.True(t, strings.HasSuffix(sf.StoredName, "_me.png"))

	rc, ctype, err := s.Open(ctx, sf.Key())
	require.NoError(t, err)
	defer rc.Close()
	require.Equal(t, "image/png", ctype)

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "abc", string(data))
}

func TestStore_SizeMismatchRemovesFile(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Store(context.Background(), model.FolderTarget, "a.png", 10, model.PNG, bytes.NewReader([]byte("abc")))
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(s.Root(), model.FolderTarget))
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestStore_UnknownFolder(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.Store(context.Background(), "tmp", "a.png", 1, model.PNG, bytes.NewReader([]byte("a")))
	require.Error(t, err)
}

func TestWrite_VerbatimAndIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	key, err := s.Write(ctx, model.FolderResults, "r.jpg", []byte{0, 0, 0})
	require.NoError(t, err)
	require.Equal(t, "results/r.jpg", key)

	data, err := os.ReadFile(filepath.Join(s.Root(), "results", "r.jpg"))
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0}, data)

	// повторная запись того же имени не трогает файл
	again, err := s.Write(ctx, model.FolderResults, "r.jpg", []byte{1})
	require.NoError(t, err)
	require.Equal(t, key, again)

	data, err = os.ReadFile(filepath.Join(s.Root(), "results", "r.jpg"))
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0}, data)

	_, err = s.Write(ctx, model.FolderResults, "../r.jpg", []byte{1})
	require.Error(t, err)
}

func TestResolveURL(t *testing.T) {
	s := newTestStorage(t)

	u, err := s.ResolveURL(context.Background(), "source/a b.png")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/files/source/a%20b.png", u)

	_, err = s.ResolveURL(context.Background(), "../x")
	require.Error(t, err)
}

func TestOpen_NotFound(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	for _, key := range []string{"results/missing.jpg", "../../etc/passwd", "results"} {
		_, _, err := s.Open(ctx, key)
		require.ErrorIs(t, err, model.ErrFileNotFound, key)
	}
}
