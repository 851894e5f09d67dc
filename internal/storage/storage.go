// Package storage picks and connects the image storage backend
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/UnendingLoop/FaceSwap/internal/filename"
	"github.com/UnendingLoop/FaceSwap/internal/model"
	"github.com/UnendingLoop/FaceSwap/internal/settings"
	"github.com/UnendingLoop/FaceSwap/internal/storage/filestorage"
	"github.com/UnendingLoop/FaceSwap/internal/storage/miniostorage"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// ImgStorage - то, что умеют оба бэкенда
type ImgStorage interface {
	EnsureFolders(ctx context.Context) error
	Store(ctx context.Context, folder, originalName string, size int64, contentType string, r io.Reader) (*model.StoredFile, error)
	Write(ctx context.Context, folder, name string, data []byte) (string, error)
	ResolveURL(ctx context.Context, key string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

var (
	_ ImgStorage = (*filestorage.FileImageStorage)(nil)
	_ ImgStorage = (*miniostorage.MinioImageStorage)(nil)
)

// NewImgStorage builds the configured backend; MinIO is retried while the container comes up
func NewImgStorage(cfg settings.StorageSettings, namer filename.Namer, delay time.Duration) (ImgStorage, error) {
	switch cfg.Backend {
	case settings.BackendFS:
		zlog.Logger.Info().Str("root", cfg.Root).Msg("Using local folder storage")
		return filestorage.NewFileStorage(cfg.Root, cfg.PublicBaseURL, namer)
	case settings.BackendMinio:
		var client *miniostorage.MinioImageStorage
		strategy := retry.Strategy{Attempts: 5, Delay: delay, Backoff: 1.5}

		err := retry.Do(func() error {
			zlog.Logger.Info().Str("endpoint", cfg.MinioAddr).Msg("Connecting to IMG-storage...")
			var err error
			client, err = miniostorage.NewMinioClient(cfg, namer)
			if err != nil {
				zlog.Logger.Warn().Err(err).Dur("next_retry_in", delay).Msg("Failed to init connection to IMG-storage")
			}
			return err
		}, strategy)
		if err != nil {
			return nil, fmt.Errorf("IMG-storage is unavailable: %w", err)
		}

		if err := client.EnsureFolders(context.Background()); err != nil {
			return nil, err
		}
		zlog.Logger.Info().Msg("Successfully connected IMG-storage!")
		return client, nil
	default:
		return nil, settings.ErrBadBackend
	}
}
