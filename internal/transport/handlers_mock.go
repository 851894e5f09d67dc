package transport

import (
	"context"
	"io"

	"github.com/UnendingLoop/FaceSwap/internal/model"
	"github.com/gin-gonic/gin"
)

type mockSwapService struct {
	submitFn   func(ctx context.Context, d *model.SwapCreateData) (*model.SwapJob, error)
	runFn      func(ctx context.Context, d *model.SwapCreateData) (*model.SwapJob, error)
	statusFn   func(ctx context.Context, id string) (*model.SwapJob, error)
	downloadFn func(ctx context.Context, key string) (io.ReadCloser, string, string, error)
}

func (m *mockSwapService) Submit(ctx context.Context, d *model.SwapCreateData) (*model.SwapJob, error) {
	return m.submitFn(ctx, d)
}

func (m *mockSwapService) RunToCompletion(ctx context.Context, d *model.SwapCreateData) (*model.SwapJob, error) {
	return m.runFn(ctx, d)
}

func (m *mockSwapService) Status(ctx context.Context, id string) (*model.SwapJob, error) {
	return m.statusFn(ctx, id)
}

func (m *mockSwapService) Download(ctx context.Context, key string) (io.ReadCloser, string, string, error) {
	return m.downloadFn(ctx, key)
}

func init() {
	gin.SetMode(gin.TestMode)
}
