// Package filestorage keeps images in local folders and exposes them through the app's public URL
package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/UnendingLoop/FaceSwap/internal/filename"
	"github.com/UnendingLoop/FaceSwap/internal/model"
)

// FilesRoute - префикс, под которым роутер раздает файлы хранилища
const FilesRoute = "/files"

type FileImageStorage struct {
	root       string
	publicBase string
	namer      filename.Namer
}

func NewFileStorage(root, publicBase string, namer filename.Namer) (*FileImageStorage, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("filestorage: root path is required")
	}

	s := &FileImageStorage{root: root, publicBase: strings.TrimRight(publicBase, "/"), namer: namer}
	if err := s.EnsureFolders(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Root is served by the router under FilesRoute
func (s *FileImageStorage) Root() string {
	return s.root
}

// EnsureFolders creates source/target/results; safe to call repeatedly
func (s *FileImageStorage) EnsureFolders(ctx context.Context) error {
	for _, folder := range model.Folders {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Join(s.root, folder), 0o755); err != nil {
			return fmt.Errorf("filestorage: ensure folder %q: %w", folder, err)
		}
	}
	return nil
}

func (s *FileImageStorage) Store(ctx context.Context, folder, originalName string, size int64, contentType string, r io.Reader) (*model.StoredFile, error) {
	if r == nil {
		return nil, errors.New("nil reader passed to storage.Store")
	}
	if err := checkFolder(folder); err != nil {
		return nil, err
	}

	storedName, err := s.namer.Next(originalName)
	if err != nil {
		return nil, err
	}

	f, err := s.create(ctx, folder, storedName)
	if err != nil {
		return nil, err
	}

	n, err := io.Copy(f, r)
	if cErr := f.Close(); err == nil {
		err = cErr
	}
	if err == nil && size > 0 && n != size {
		err = fmt.Errorf("filestorage: wrote %d bytes, expected %d", n, size)
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return nil, err
	}

	return &model.StoredFile{
		OriginalName: originalName,
		StoredName:   storedName,
		Folder:       folder,
		CreatedAt:    s.namer.Now().UTC(),
	}, nil
}

// Write is idempotent per name: an existing file is kept and its key returned
func (s *FileImageStorage) Write(ctx context.Context, folder, name string, data []byte) (string, error) {
	if err := checkFolder(folder); err != nil {
		return "", err
	}

	f, err := s.create(ctx, folder, name)
	if errors.Is(err, fs.ErrExist) {
		return folder + "/" + name, nil
	}
	if err != nil {
		return "", err
	}

	_, err = f.Write(data)
	if cErr := f.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("filestorage: write file: %w", err)
	}

	return folder + "/" + name, nil
}

func (s *FileImageStorage) ResolveURL(_ context.Context, key string) (string, error) {
	clean, err := filename.CleanKey(key)
	if err != nil {
		return "", err
	}

	parts := strings.Split(clean, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.publicBase + FilesRoute + "/" + strings.Join(parts, "/"), nil
}

func (s *FileImageStorage) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	clean, err := filename.CleanKey(key)
	if err != nil {
		return nil, "", model.ErrFileNotFound
	}

	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(clean)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", model.ErrFileNotFound
		}
		return nil, "", err
	}

	if st, err := f.Stat(); err == nil && st.IsDir() {
		_ = f.Close()
		return nil, "", model.ErrFileNotFound
	}

	ctype := mime.TypeByExtension(path.Ext(clean))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	return f, ctype, nil
}

// create never overwrites an existing file
func (s *FileImageStorage) create(ctx context.Context, folder, name string) (*os.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("filestorage: bad file name %q", name)
	}

	dir := filepath.Join(s.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestorage: ensure folder: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("filestorage: create %s/%s: %w", folder, name, err)
	}
	return f, nil
}

func checkFolder(folder string) error {
	if !slices.Contains(model.Folders, folder) {
		return fmt.Errorf("filestorage: unknown folder %q", folder)
	}
	return nil
}
