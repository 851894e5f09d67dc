// Package model provides data-structs for internal app-usage
package model

import (
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/disintegration/imaging"
)

type (
	JobState   string
	RemoteCode string
	ImageSide  string
)

const (
	StateSubmitting JobState = "SUBMITTING"
	StateProcessing JobState = "PROCESSING"
	StateCompleted  JobState = "COMPLETED"
	StateFailed     JobState = "FAILED"
	StateTimedOut   JobState = "TIMED_OUT"
	StateError      JobState = "ERROR"
)

// Terminal reports whether no further transition is possible from s
func (s JobState) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateTimedOut, StateError:
		return true
	}
	return false
}

// CanMoveTo keeps transitions monotonic: SUBMITTING -> PROCESSING -> terminal, SUBMITTING -> ERROR
func (s JobState) CanMoveTo(next JobState) bool {
	switch s {
	case StateSubmitting:
		return next == StateProcessing || next == StateError
	case StateProcessing:
		return next.Terminal()
	}
	return false
}

const (
	RemotePending   RemoteCode = "PENDING"
	RemoteCompleted RemoteCode = "COMPLETED"
	RemoteFailed    RemoteCode = "FAILED"
)

const (
	SideSource ImageSide = "source"
	SideTarget ImageSide = "target"
)

// Папки хранилища
const (
	FolderSource  = "source"
	FolderTarget  = "target"
	FolderResults = "results"
)

var Folders = []string{FolderSource, FolderTarget, FolderResults}

//---------------------

type SwapJob struct {
	ID             string     `json:"request_id,omitempty"`
	SourceImageRef string     `json:"-"`
	TargetImageRef string     `json:"-"`
	State          JobState   `json:"state"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	ResultRef      string     `json:"-"`
	ResultURL      string     `json:"result_url,omitempty"`
	Percent        int        `json:"percent,omitempty"`
	FailureDetail  string     `json:"message,omitempty"`
}

// MoveTo changes the state only along allowed edges
func (j *SwapJob) MoveTo(next JobState) error {
	if !j.State.CanMoveTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, j.State, next)
	}
	j.State = next
	return nil
}

// RemoteStatus - ответ статус-эндпоинта удаленного API
type RemoteStatus struct {
	Status        RemoteCode `json:"status"`
	Output        string     `json:"output,omitempty"`
	Error         string     `json:"error,omitempty"`
	DelayTime     int64      `json:"delayTime,omitempty"`
	ExecutionTime int64      `json:"executionTime,omitempty"`
}

type StoredFile struct {
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"stored_name"`
	Folder       string    `json:"folder"`
	CreatedAt    time.Time `json:"created_at"`
}

// Key - адрес файла внутри хранилища
func (f StoredFile) Key() string {
	return f.Folder + "/" + f.StoredName
}

// ImageInput - одна сторона запроса: либо загруженный файл, либо URL
type ImageInput struct {
	URL         string
	File        multipart.File
	FileName    string
	FileSize    int64
	ContentType string
}

func (in ImageInput) IsFile() bool {
	return in.File != nil
}

type SwapCreateData struct {
	Source ImageInput
	Target ImageInput
}

// SwapEvent - событие жизненного цикла задачи для публикации в очередь
type SwapEvent struct {
	Type      string    `json:"type"`
	RequestID string    `json:"request_id"`
	State     JobState  `json:"state"`
	ResultURL string    `json:"result_url,omitempty"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

const (
	EventSubmitted = "swap.submitted"
	EventCompleted = "swap.completed"
	EventFailed    = "swap.failed"
)

// ------------------

var (
	ErrCommon500       error = errors.New("something went wrong. Try again later")                     // 500
	ErrIncorrectID     error = errors.New("incorrect request id")                                      // 400
	ErrMissingImage    error = errors.New("both source and target images are required")                // 400
	ErrIncorrectForm   error = errors.New("failed to parse form")                                      // 400
	ErrInvalidFileType error = errors.New("invalid file type: allowed png, jpg, jpeg, gif, webp, bmp") // 400
	ErrPayloadTooLarge error = errors.New("file is too large")                                         // 413
	ErrUnreachable     error = errors.New("image is unreachable or is not an image")                   // 400
	ErrRemoteSubmit    error = errors.New("face swap service rejected the job")                        // 502
	ErrRemoteStatus    error = errors.New("failed to fetch job status from face swap service")         // 502
	ErrRemoteTimeout   error = errors.New("face swap service did not answer in time")                  // 504
	ErrRemoteFailed    error = errors.New("face swap failed")                                          // 200, status=failed
	ErrDecode          error = errors.New("failed to decode result image")                             // 500
	ErrFileNotFound    error = errors.New("requested file doesn't exist")                              // 404
	ErrBadTransition   error = errors.New("illegal job state transition")                              // 500
)

// UnreachableImageError tells which side of the pair failed the reachability probe
type UnreachableImageError struct {
	Which ImageSide
	Cause error
}

func (e *UnreachableImageError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s %v", e.Which, ErrUnreachable)
	}
	return fmt.Sprintf("%s %v: %v", e.Which, ErrUnreachable, e.Cause)
}

func (e *UnreachableImageError) Unwrap() error {
	return ErrUnreachable
}

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
	WEBP = "image/webp"
	BMP  = "image/bmp"
)

// AllowedExtensions - допустимые расширения загружаемых картинок
var AllowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"webp": true,
	"bmp":  true,
}

var GetImageFileExt = map[string]string{
	JPEG: ".jpg",
	PNG:  ".png",
	GIF:  ".gif",
	WEBP: ".webp",
	BMP:  ".bmp",
}

var InImageTypeMap = map[string]bool{
	JPEG: true,
	PNG:  true,
	GIF:  true,
	WEBP: true,
	BMP:  true,
}

var GetCType = map[imaging.Format]string{
	imaging.JPEG: JPEG,
	imaging.GIF:  GIF,
	imaging.PNG:  PNG,
	imaging.BMP:  BMP,
}
