// Package validation checks uploaded files before anything leaves the process
package validation

import (
	"fmt"
	"io"
	"strings"

	"github.com/UnendingLoop/FaceSwap/internal/filename"
	"github.com/UnendingLoop/FaceSwap/internal/model"
	"github.com/gabriel-vasile/mimetype"
)

// Validator - контракт проверки имени файла, новые правила добавляются без правки вызывающего кода
type Validator interface {
	Accepts(name string) bool
}

// ExtensionValidator accepts names whose extension is in the set (lower-case, no dot)
type ExtensionValidator map[string]bool

func (v ExtensionValidator) Accepts(name string) bool {
	ext := filename.Ext(name)
	return ext != "" && v[ext]
}

// NewImageValidator - png, jpg, jpeg, gif, webp, bmp
func NewImageValidator() ExtensionValidator {
	v := make(ExtensionValidator, len(model.AllowedExtensions))
	for ext, ok := range model.AllowedExtensions {
		v[ext] = ok
	}
	return v
}

// SniffImage detects the real content type and rewinds the file.
// Non-image content is reported as model.ErrInvalidFileType.
func SniffImage(file io.ReadSeeker) (string, error) {
	mType, err := mimetype.DetectReader(file)
	if err != nil {
		return "", fmt.Errorf("failed to detect content type: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind file: %w", err)
	}

	// mimetype может вернуть параметры, отрезаем их
	ctype, _, _ := strings.Cut(mType.String(), ";")
	if !model.InImageTypeMap[ctype] {
		return "", fmt.Errorf("%w: detected %s", model.ErrInvalidFileType, ctype)
	}

	return ctype, nil
}

// CheckSize fails fast with model.ErrPayloadTooLarge
func CheckSize(size, limit int64) error {
	if size > limit {
		return fmt.Errorf("%w: %d bytes, limit %d", model.ErrPayloadTooLarge, size, limit)
	}
	return nil
}
