package storage

import (
	"testing"
	"time"

	"github.com/UnendingLoop/FaceSwap/internal/filename"
	"github.com/UnendingLoop/FaceSwap/internal/settings"
	"github.com/UnendingLoop/FaceSwap/internal/storage/filestorage"
	"github.com/stretchr/testify/require"
)

func TestNewImgStorage_FS(t *testing.T) {
	s, err := NewImgStorage(settings.StorageSettings{
		Backend:       settings.BackendFS,
		Root:          t.TempDir(),
		PublicBaseURL: "http://localhost:8080",
	}, filename.NewNamer(), time.Millisecond)
	require.NoError(t, err)
	require.IsType(t, &filestorage.FileImageStorage{}, s)
}

func TestNewImgStorage_UnknownBackend(t *testing.T) {
	_, err := NewImgStorage(settings.StorageSettings{Backend: "s3"}, filename.NewNamer(), time.Millisecond)
	require.ErrorIs(t, err, settings.ErrBadBackend)
}
