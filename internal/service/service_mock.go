package service

import (
	"bytes"
	"context"
	"io"

	"github.com/UnendingLoop/FaceSwap/internal/model"
	"github.com/wb-go/wbf/retry"
)

// MOCK REMOTE CLIENT

type mockJobClient struct {
	submitFn      func(ctx context.Context, sourceURL, targetURL string) (string, error)
	fetchStatusFn func(ctx context.Context, jobID string) (*model.RemoteStatus, error)
}

func (m *mockJobClient) Submit(ctx context.Context, sourceURL, targetURL string) (string, error) {
	return m.submitFn(ctx, sourceURL, targetURL)
}

func (m *mockJobClient) FetchStatus(ctx context.Context, jobID string) (*model.RemoteStatus, error) {
	return m.fetchStatusFn(ctx, jobID)
}

// MOCK PROBER

type mockProber struct {
	probeFn func(ctx context.Context, rawURL string) error
}

func (m *mockProber) Probe(ctx context.Context, rawURL string) error {
	return m.probeFn(ctx, rawURL)
}

// MOCK STORAGE

type mockStorage struct {
	storeFn   func(ctx context.Context, folder, name string, size int64, ct string, r io.Reader) (*model.StoredFile, error)
	writeFn   func(ctx context.Context, folder, name string, data []byte) (string, error)
	resolveFn func(ctx context.Context, key string) (string, error)
	openFn    func(ctx context.Context, key string) (io.ReadCloser, string, error)
}

func (m *mockStorage) Store(ctx context.Context, folder, name string, size int64, ct string, r io.Reader) (*model.StoredFile, error) {
	return m.storeFn(ctx, folder, name, size, ct, r)
}

func (m *mockStorage) Write(ctx context.Context, folder, name string, data []byte) (string, error) {
	return m.writeFn(ctx, folder, name, data)
}

func (m *mockStorage) ResolveURL(ctx context.Context, key string) (string, error) {
	return m.resolveFn(ctx, key)
}

func (m *mockStorage) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return m.openFn(ctx, key)
}

// MOCK PUBLISHER

type mockPublisher struct {
	sendFn func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error
}

func (m *mockPublisher) SendWithRetry(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
	return m.sendFn(ctx, s, key, v)
}

// MOCK для multipart.File
type fakeMultipartFile struct {
	*bytes.Reader
}

func (f *fakeMultipartFile) Close() error {
	return nil
}
