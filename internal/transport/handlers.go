// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/UnendingLoop/FaceSwap/internal/model"
	"github.com/UnendingLoop/FaceSwap/internal/mwlogger"
	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"
)

// Статусы, которые видит браузер
const (
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusFailed     = "failed"
	statusError      = "error"
)

// память под multipart, остальное уходит во временные файлы
const multipartMemory = 8 << 20

type SwapHandler struct {
	service   SwapService
	maxUpload int64
}

type SwapService interface {
	Submit(ctx context.Context, data *model.SwapCreateData) (*model.SwapJob, error)          // отправить задачу и сразу ответить
	RunToCompletion(ctx context.Context, data *model.SwapCreateData) (*model.SwapJob, error) // отправить и дождаться результата
	Status(ctx context.Context, id string) (*model.SwapJob, error)                           // опрос удаленного API
	Download(ctx context.Context, key string) (io.ReadCloser, string, string, error)         // прям скачать результат
}

func NewSwapHandler(svc SwapService, maxUpload int64) *SwapHandler {
	return &SwapHandler{
		service:   svc,
		maxUpload: maxUpload,
	}
}

func (h SwapHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

// Submit answers as soon as the remote API accepted the job; the browser then polls Status
func (h SwapHandler) Submit(ctx *ginext.Context) {
	data, cleanup, err := h.parseSwapForm(ctx)
	defer cleanup()
	if err != nil {
		respondError(ctx, err)
		return
	}

	job, err := h.service.Submit(ctx.Request.Context(), data)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(200, map[string]any{"status": statusProcessing, "request_id": job.ID})
}

// SubmitSync blocks until the job is resolved or polling attempts run out
func (h SwapHandler) SubmitSync(ctx *ginext.Context) {
	data, cleanup, err := h.parseSwapForm(ctx)
	defer cleanup()
	if err != nil {
		respondError(ctx, err)
		return
	}

	job, err := h.service.RunToCompletion(ctx.Request.Context(), data)
	renderJob(ctx, job, err)
}

func (h SwapHandler) Status(ctx *ginext.Context) {
	job, err := h.service.Status(ctx.Request.Context(), ctx.Param("request_id"))
	renderJob(ctx, job, err)
}

func (h SwapHandler) Download(ctx *ginext.Context) {
	logger := mwlogger.LoggerFromContext(ctx.Request.Context())
	key := strings.TrimPrefix(ctx.Param("path"), "/")

	res, cType, name, err := h.service.Download(ctx.Request.Context(), key)
	if err != nil {
		respondError(ctx, err)
		return
	}
	defer closeFileFlow(res)

	ctx.Writer.Header().Set("Content-Type", cType)
	ctx.Writer.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	ctx.Writer.WriteHeader(200)
	if n, err := io.Copy(ctx.Writer, res); err != nil {
		logger.Error().Err(err).Int64("written", n).Str("key", key).Msg("Failed to write download response")
	}
}

func (h SwapHandler) NotFound(ctx *ginext.Context) {
	ctx.JSON(404, map[string]string{"status": statusError, "message": "resource not found"})
}

// Recovery turns a panic into the same JSON error shape as every other failure
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		logger := mwlogger.LoggerFromContext(c.Request.Context())
		logger.Error().Interface("panic", rec).Msg("Handler panicked")
		c.AbortWithStatusJSON(500, map[string]string{"status": statusError, "message": model.ErrCommon500.Error()})
	})
}

// parseSwapForm accepts multipart (files and/or URLs) and urlencoded (URLs only) forms.
// A file wins over a URL for the same side.
func (h SwapHandler) parseSwapForm(ctx *ginext.Context) (*model.SwapCreateData, func(), error) {
	req := ctx.Request
	var files []io.Closer
	cleanup := func() {
		for _, f := range files {
			closeFileFlow(f)
		}
		if req.MultipartForm != nil {
			_ = req.MultipartForm.RemoveAll()
		}
	}

	// режем до чтения тела, чтобы не тратить ни диск, ни квоту удаленного API
	if req.ContentLength > h.maxUpload {
		return nil, cleanup, model.ErrPayloadTooLarge
	}
	req.Body = http.MaxBytesReader(ctx.Writer, req.Body, h.maxUpload)

	var err error
	if strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/") {
		err = req.ParseMultipartForm(multipartMemory)
	} else {
		err = req.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, cleanup, model.ErrPayloadTooLarge
		}
		return nil, cleanup, model.ErrIncorrectForm
	}

	data := &model.SwapCreateData{
		Source: model.ImageInput{URL: strings.TrimSpace(req.PostFormValue("swap_url"))},
		Target: model.ImageInput{URL: strings.TrimSpace(req.PostFormValue("target_url"))},
	}

	for field, in := range map[string]*model.ImageInput{"source_file": &data.Source, "target_file": &data.Target} {
		if req.MultipartForm == nil {
			break
		}
		file, header, err := req.FormFile(field)
		if err != nil {
			// файл опционален, если передан URL
			continue
		}
		files = append(files, file)
		if header.Filename == "" || header.Size == 0 {
			continue
		}

		in.File = file
		in.FileName = header.Filename
		in.FileSize = header.Size
		in.ContentType = header.Header.Get("Content-Type")
	}

	return data, cleanup, nil
}

// renderJob maps orchestrator states to the JSON the page polls for
func renderJob(ctx *ginext.Context, job *model.SwapJob, err error) {
	if job == nil {
		respondError(ctx, err)
		return
	}

	switch job.State {
	case model.StateProcessing:
		ctx.JSON(200, map[string]any{"status": statusProcessing, "request_id": job.ID, "percent": job.Percent})
	case model.StateCompleted:
		ctx.JSON(200, map[string]any{"status": statusCompleted, "request_id": job.ID, "result_url": job.ResultURL})
	case model.StateFailed:
		ctx.JSON(200, map[string]any{"status": statusFailed, "message": job.FailureDetail})
	case model.StateTimedOut:
		ctx.JSON(504, map[string]any{"status": statusError, "message": job.FailureDetail})
	default:
		if err == nil {
			err = model.ErrCommon500
		}
		respondError(ctx, err)
	}
}
