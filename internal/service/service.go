// Package service provides business-logic for the app: the face swap job lifecycle
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/UnendingLoop/FaceSwap/internal/filename"
	"github.com/UnendingLoop/FaceSwap/internal/model"
	"github.com/UnendingLoop/FaceSwap/internal/mwlogger"
	"github.com/UnendingLoop/FaceSwap/internal/remote"
	"github.com/UnendingLoop/FaceSwap/internal/settings"
	"github.com/UnendingLoop/FaceSwap/internal/validation"
	"github.com/wb-go/wbf/retry"
)

// DownloadRoute - префикс ссылок на результаты, отдаваемых клиенту
const DownloadRoute = "/download/"

const timedOutMessage = "Processing took too long. Try again."

type SwapService struct {
	client    remote.JobClient
	prober    ImageProber
	storage   ImageStorage
	publisher TaskPublisher
	validator validation.Validator

	maxUpload    int64
	pollAttempts int
	pollInterval time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewSwapService(cfg *settings.Settings, client remote.JobClient, prober ImageProber, strg ImageStorage, pub TaskPublisher) *SwapService {
	return &SwapService{
		client:       client,
		prober:       prober,
		storage:      strg,
		publisher:    pub,
		validator:    validation.NewImageValidator(),
		maxUpload:    cfg.Storage.MaxUploadBytes,
		pollAttempts: cfg.Polling.Attempts,
		pollInterval: cfg.Polling.Interval,
		sleep:        sleepCtx,
	}
}

// TaskPublisher - контракт для работы с очередью
type TaskPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// ImageStorage - контракт для работы с хранилищем
type ImageStorage interface {
	Store(ctx context.Context, folder, originalName string, size int64, contentType string, r io.Reader) (*model.StoredFile, error)
	Write(ctx context.Context, folder, name string, data []byte) (string, error)
	ResolveURL(ctx context.Context, key string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// ImageProber - контракт проверки доступности картинки по URL
type ImageProber interface {
	Probe(ctx context.Context, rawURL string) error
}

// Стратегия ретрая отправки событий - короткая, чтобы не держать HTTP-запрос
var retryStrategy = retry.Strategy{
	Attempts: 3,
	Delay:    200 * time.Millisecond,
	Backoff:  2,
}

// Submit validates and stores the inputs, probes both refs and hands the pair to the remote API.
// On failure the returned job is in ERROR state next to the error.
func (s SwapService) Submit(ctx context.Context, data *model.SwapCreateData) (*model.SwapJob, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	job := &model.SwapJob{State: model.StateSubmitting}

	fail := func(err error) (*model.SwapJob, error) {
		_ = job.MoveTo(model.StateError)
		job.FailureDetail = err.Error()
		return job, err
	}

	if data == nil || !hasImage(data.Source) || !hasImage(data.Target) {
		return fail(model.ErrMissingImage)
	}

	// сначала проверяем обе загрузки - до любой записи и сетевых вызовов
	for _, in := range []*model.ImageInput{&data.Source, &data.Target} {
		if err := s.validateUpload(in); err != nil {
			return fail(err)
		}
	}

	sourceRef, err := s.resolveRef(ctx, data.Source, model.FolderSource)
	if err != nil {
		return fail(err)
	}
	targetRef, err := s.resolveRef(ctx, data.Target, model.FolderTarget)
	if err != nil {
		return fail(err)
	}
	job.SourceImageRef, job.TargetImageRef = sourceRef, targetRef

	if err := s.prober.Probe(ctx, sourceRef); err != nil {
		logger.Warn().Err(err).Str("url", sourceRef).Msg("Source image failed reachability probe")
		return fail(&model.UnreachableImageError{Which: model.SideSource, Cause: err})
	}
	if err := s.prober.Probe(ctx, targetRef); err != nil {
		logger.Warn().Err(err).Str("url", targetRef).Msg("Target image failed reachability probe")
		return fail(&model.UnreachableImageError{Which: model.SideTarget, Cause: err})
	}

	id, err := s.client.Submit(ctx, sourceRef, targetRef)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to submit face swap job")
		return fail(err)
	}
	// тот же критерий, что и в Status: иначе задачу нельзя будет опросить
	if !validRequestID(id) {
		logger.Error().Str("remote_id", id).Msg("Remote API returned an unusable job id")
		return fail(fmt.Errorf("%w: unusable job id %q", model.ErrRemoteSubmit, id))
	}

	job.ID = id
	now := time.Now().UTC()
	job.SubmittedAt = &now
	if err := job.MoveTo(model.StateProcessing); err != nil {
		return fail(err)
	}

	s.publish(ctx, model.EventSubmitted, job)
	return job, nil
}

// Status re-derives the job state from the remote API; nothing is kept between polls
func (s SwapService) Status(ctx context.Context, id string) (*model.SwapJob, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if !validRequestID(id) {
		return nil, model.ErrIncorrectID
	}

	job := &model.SwapJob{ID: id, State: model.StateProcessing}

	st, err := s.client.FetchStatus(ctx, id)
	if err != nil {
		logger.Error().Err(err).Str("remote_id", id).Msg("Failed to fetch face swap status")
		_ = job.MoveTo(model.StateError)
		job.FailureDetail = err.Error()
		return job, err
	}

	if err := s.apply(ctx, job, st); err != nil {
		return job, err
	}
	return job, nil
}

// RunToCompletion submits and then polls a bounded number of times; TIMED_OUT when attempts run out
func (s SwapService) RunToCompletion(ctx context.Context, data *model.SwapCreateData) (*model.SwapJob, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	job, err := s.Submit(ctx, data)
	if err != nil {
		return job, err
	}

	for attempt := 1; attempt <= s.pollAttempts; attempt++ {
		st, err := s.client.FetchStatus(ctx, job.ID)
		if err != nil {
			logger.Error().Err(err).Int("attempt", attempt).Str("remote_id", job.ID).Msg("Polling failed")
			_ = job.MoveTo(model.StateError)
			job.FailureDetail = err.Error()
			return job, err
		}
		logger.Debug().Int("attempt", attempt).Str("remote_status", string(st.Status)).Msg("Polling response")

		if err := s.apply(ctx, job, st); err != nil {
			return job, err
		}
		if job.State.Terminal() {
			return job, nil
		}

		if attempt == s.pollAttempts {
			break
		}
		if err := s.sleep(ctx, s.pollInterval); err != nil {
			_ = job.MoveTo(model.StateError)
			job.FailureDetail = err.Error()
			return job, err
		}
	}

	_ = job.MoveTo(model.StateTimedOut)
	job.FailureDetail = timedOutMessage
	s.publish(ctx, model.EventFailed, job)
	return job, nil
}

// Download opens a previously produced file; the name is used for Content-Disposition
func (s SwapService) Download(ctx context.Context, key string) (io.ReadCloser, string, string, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	clean, err := filename.CleanKey(key)
	if err != nil {
		return nil, "", "", model.ErrFileNotFound
	}

	rc, ctype, err := s.storage.Open(ctx, clean)
	if err != nil {
		if errors.Is(err, model.ErrFileNotFound) {
			return nil, "", "", err
		}
		logger.Error().Err(err).Str("key", clean).Msg("Failed to open stored file")
		return nil, "", "", model.ErrCommon500
	}

	return rc, ctype, path.Base(clean), nil
}

// apply is the per-poll decision table
func (s SwapService) apply(ctx context.Context, job *model.SwapJob, st *model.RemoteStatus) error {
	logger := mwlogger.LoggerFromContext(ctx)

	switch st.Status {
	case model.RemoteCompleted:
		if strings.TrimSpace(st.Output) == "" {
			err := fmt.Errorf("%w: remote reported completion without output", model.ErrDecode)
			_ = job.MoveTo(model.StateError)
			job.FailureDetail = err.Error()
			return err
		}

		key, err := s.materialize(ctx, job.ID, st.Output)
		if err != nil {
			logger.Error().Err(err).Str("remote_id", job.ID).Msg("Failed to save face swap result")
			_ = job.MoveTo(model.StateError)
			job.FailureDetail = err.Error()
			return err
		}

		if err := job.MoveTo(model.StateCompleted); err != nil {
			return err
		}
		job.ResultRef = key
		job.ResultURL = DownloadRoute + key
		job.Percent = 100
		s.publish(ctx, model.EventCompleted, job)

	case model.RemoteFailed:
		if err := job.MoveTo(model.StateFailed); err != nil {
			return err
		}
		job.FailureDetail = ExplainFailure(st.Error)
		logger.Info().Str("remote_id", job.ID).Str("remote_error", st.Error).Msg("Face swap failed remotely")
		s.publish(ctx, model.EventFailed, job)

	default:
		job.Percent = EstimateProgress(st.DelayTime, st.ExecutionTime)
	}

	return nil
}

// materialize decodes the payload and writes it verbatim under results/.
// The file is named after the job, so polling a finished job again reuses it.
// A panic while decoding or writing is turned into an error.
func (s SwapService) materialize(ctx context.Context, jobID, output string) (key string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: unexpected failure: %v", model.ErrCommon500, r)
		}
	}()

	data, err := DecodeOutput(output)
	if err != nil {
		return "", err
	}

	return s.storage.Write(ctx, model.FolderResults, filename.ResultName(jobID, resultExt(data)), data)
}

func (s SwapService) validateUpload(in *model.ImageInput) error {
	if !in.IsFile() {
		return nil
	}
	if err := validation.CheckSize(in.FileSize, s.maxUpload); err != nil {
		return err
	}
	if !s.validator.Accepts(in.FileName) {
		return fmt.Errorf("%w: %q", model.ErrInvalidFileType, in.FileName)
	}

	ctype, err := validation.SniffImage(in.File)
	if err != nil {
		return err
	}
	in.ContentType = ctype
	return nil
}

// resolveRef turns one side of the request into a URL the remote API can fetch
func (s SwapService) resolveRef(ctx context.Context, in model.ImageInput, folder string) (string, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	if !in.IsFile() {
		return strings.TrimSpace(in.URL), nil
	}

	stored, err := s.storage.Store(ctx, folder, in.FileName, in.FileSize, in.ContentType, in.File)
	if err != nil {
		logger.Error().Err(err).Str("folder", folder).Msg("Failed to save uploaded image in Storage")
		return "", model.ErrCommon500
	}

	ref, err := s.storage.ResolveURL(ctx, stored.Key())
	if err != nil {
		logger.Error().Err(err).Str("key", stored.Key()).Msg("Failed to build public URL for uploaded image")
		return "", model.ErrCommon500
	}
	return ref, nil
}

func (s SwapService) publish(ctx context.Context, eventType string, job *model.SwapJob) {
	if s.publisher == nil {
		return
	}
	logger := mwlogger.LoggerFromContext(ctx)

	ev := model.SwapEvent{
		Type:      eventType,
		RequestID: job.ID,
		State:     job.State,
		ResultURL: job.ResultURL,
		Message:   job.FailureDetail,
		At:        time.Now().UTC(),
	}
	body, err := json.Marshal(ev)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to marshal swap event")
		return
	}

	if err := s.publisher.SendWithRetry(ctx, retryStrategy, []byte(job.ID), body); err != nil {
		logger.Error().Err(err).Str("event", eventType).Msg(fmt.Sprintf("Failed to publish event for job %q", job.ID))
	}
}

func hasImage(in model.ImageInput) bool {
	return in.IsFile() || strings.TrimSpace(in.URL) != ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
