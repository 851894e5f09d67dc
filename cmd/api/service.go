package main

import (
	"context"
	"io"

	"github.com/UnendingLoop/FaceSwap/internal/model"
)

type SwapAPIService interface {
	Submit(ctx context.Context, data *model.SwapCreateData) (*model.SwapJob, error)
	RunToCompletion(ctx context.Context, data *model.SwapCreateData) (*model.SwapJob, error)
	Status(ctx context.Context, id string) (*model.SwapJob, error)
	Download(ctx context.Context, key string) (io.ReadCloser, string, string, error)
}
