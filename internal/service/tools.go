package service

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/UnendingLoop/FaceSwap/internal/model"
	"github.com/disintegration/imaging"
)

const (
	// ожидаемый остаток работы удаленного API, мс
	progressBufferMS = 20000
	minPercent       = 10
	maxPercent       = 95

	maxDetailLen  = 200
	defaultResExt = ".jpg"

	maxRequestIDLen = 512
)

const failureGuidance = "The face swap could not be completed. Common causes: no face was detected in one of the images; " +
	"the face is turned away, too small or poorly lit; the face is partly covered by hair, glasses, a mask or a hand. " +
	"Try clear, front-facing photos with good lighting."

// EstimateProgress is a display aid only: floor(elapsed/(elapsed+buffer)*100) clamped to [10, 95]
func EstimateProgress(delayTime, executionTime int64) int {
	elapsed := max(delayTime, 0) + max(executionTime, 0)
	total := elapsed + progressBufferMS

	percent := int(elapsed * 100 / total)
	return min(max(percent, minPercent), maxPercent)
}

// DecodeOutput strips an optional data-URL header (everything up to the first comma) and decodes base64
func DecodeOutput(output string) ([]byte, error) {
	payload := strings.TrimSpace(output)
	if _, rest, found := strings.Cut(payload, ","); found {
		payload = rest
	}
	payload = strings.TrimSpace(payload)

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// некоторые ответы приходят без паддинга
		raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if rawErr != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrDecode, err)
		}
		data = raw
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", model.ErrDecode)
	}
	return data, nil
}

// ExplainFailure builds the user-facing text for a job the remote API marked FAILED
func ExplainFailure(detail string) string {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return failureGuidance
	}
	return failureGuidance + " Technical detail: " + truncate(detail, maxDetailLen)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-3]) + "..."
}

// resultExt sniffs the decoded bytes; anything imaging can't recognise is saved as .jpg
func resultExt(data []byte) string {
	_, f, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return defaultResExt
	}

	format, err := imaging.FormatFromExtension(f)
	if err != nil {
		return defaultResExt
	}

	if ext, ok := model.GetImageFileExt[model.GetCType[format]]; ok {
		return ext
	}
	return defaultResExt
}

// validRequestID - id удаленного API непрозрачен, отсекаем только то, что не ляжет в один сегмент пути
func validRequestID(id string) bool {
	if id == "" || id == "." || id == ".." || len(id) > maxRequestIDLen {
		return false
	}
	return !strings.ContainsFunc(id, func(r rune) bool {
		return r == '/' || r == '\\' || unicode.IsSpace(r) || unicode.IsControl(r)
	})
}
