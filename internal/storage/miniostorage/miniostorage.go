// Package miniostorage provides structure to work with minio-storage
package miniostorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/UnendingLoop/FaceSwap/internal/filename"
	"github.com/UnendingLoop/FaceSwap/internal/model"
	"github.com/UnendingLoop/FaceSwap/internal/settings"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioImageStorage struct {
	bucket string
	expiry time.Duration
	namer  filename.Namer
	client *minio.Client
}

func NewMinioClient(cfg settings.StorageSettings, namer filename.Namer) (*MinioImageStorage, error) {
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "default"
		log.Printf("Bucket name is empty. Using default value %q...", bucket)
	}

	// подключаемся к минио - создаем клиента
	strg, err := minio.New(cfg.MinioAddr, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioUser, cfg.MinioPass, ""),
		Secure: cfg.MinioSecure,
	})
	if err != nil {
		return nil, err
	}

	// создаем бакет если его нет
	if err := ensureBucket(context.Background(), strg, bucket); err != nil {
		log.Println("Failed to create bucket in MinIO:", err)
		return nil, err
	}

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	return &MinioImageStorage{bucket: bucket, expiry: expiry, namer: namer, client: strg}, nil
}

// EnsureFolders - в minio папки это префиксы ключей, достаточно наличия бакета
func (s *MinioImageStorage) EnsureFolders(ctx context.Context) error {
	return ensureBucket(ctx, s.client, s.bucket)
}

func (s *MinioImageStorage) Store(ctx context.Context, folder, originalName string, size int64, contentType string, r io.Reader) (*model.StoredFile, error) {
	if r == nil {
		return nil, errors.New("nil reader passed to storage.Store")
	}
	if !slices.Contains(model.Folders, folder) {
		return nil, fmt.Errorf("miniostorage: unknown folder %q", folder)
	}

	storedName, err := s.namer.Next(originalName)
	if err != nil {
		return nil, err
	}

	if err := s.put(ctx, folder+"/"+storedName, size, contentType, r); err != nil {
		return nil, err
	}

	return &model.StoredFile{
		OriginalName: originalName,
		StoredName:   storedName,
		Folder:       folder,
		CreatedAt:    s.namer.Now().UTC(),
	}, nil
}

func (s *MinioImageStorage) Write(ctx context.Context, folder, name string, data []byte) (string, error) {
	if !slices.Contains(model.Folders, folder) {
		return "", fmt.Errorf("miniostorage: unknown folder %q", folder)
	}

	key := folder + "/" + name
	if err := s.put(ctx, key, int64(len(data)), http.DetectContentType(data), bytes.NewReader(data)); err != nil {
		return "", err
	}
	return key, nil
}

// ResolveURL returns a presigned GET link the face swap service can fetch without credentials
func (s *MinioImageStorage) ResolveURL(ctx context.Context, key string) (string, error) {
	clean, err := filename.CleanKey(key)
	if err != nil {
		return "", err
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, clean, s.expiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *MinioImageStorage) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	clean, err := filename.CleanKey(key)
	if err != nil {
		return nil, "", model.ErrFileNotFound
	}

	res, err := s.client.GetObject(ctx, s.bucket, clean, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}

	resStat, err := res.Stat()
	if err != nil {
		_ = res.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, "", model.ErrFileNotFound
		}
		return nil, "", err
	}

	return res, resStat.ContentType, nil
}

func (s *MinioImageStorage) put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error {
	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return err
	}

	return nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
}
