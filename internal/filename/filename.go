// Package filename builds collision-free storage names from user supplied file names
package filename

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	fallbackName = "image"
	maxNameLen   = 100
	shortIDLen   = 8

	maxResultIDLen = 64
)

// Generate returns {timestamp}_{shortUUID}_{sanitizedOriginalName}.
// It is a pure function of its arguments: tests pass a fixed clock value and random source.
func Generate(now time.Time, rnd io.Reader, original string) (string, error) {
	id, err := uuid.NewRandomFromReader(rnd)
	if err != nil {
		return "", fmt.Errorf("failed to generate short id: %w", err)
	}

	now = now.UTC()
	stamp := now.Format("20060102T150405") + fmt.Sprintf("%09d", now.Nanosecond())

	return stamp + "_" + strings.ReplaceAll(id.String(), "-", "")[:shortIDLen] + "_" + Sanitize(original), nil
}

// Sanitize drops directory components, folds accents to ASCII and keeps only [A-Za-z0-9._-].
// The extension survives: "..png" becomes "image.png".
func Sanitize(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err == nil {
		name = folded
	}

	clean := keepSafe(name)
	ext := path.Ext(clean)
	if !validExt(ext) {
		ext = ""
	}

	stem := strings.Trim(strings.TrimSuffix(clean, ext), "._")
	for strings.Contains(stem, "..") {
		stem = strings.ReplaceAll(stem, "..", ".")
	}
	if len(stem)+len(ext) > maxNameLen {
		stem = strings.TrimRight(stem[:maxNameLen-len(ext)], "._")
	}
	if stem == "" {
		stem = fallbackName
	}

	return stem + ext
}

// ResultName is stable per remote job id, so a finished job always maps to the same file
func ResultName(jobID, ext string) string {
	sum := sha256.Sum256([]byte(jobID))

	id := strings.Trim(keepSafe(jobID), "._-")
	if len(id) > maxResultIDLen {
		id = id[:maxResultIDLen]
	}
	if id == "" {
		id = "job"
	}
	if !validExt(ext) {
		ext = ""
	}

	return id + "_" + hex.EncodeToString(sum[:])[:shortIDLen] + "_result" + ext
}

func keepSafe(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	return b.String()
}

// validExt - точка и 1..10 букв/цифр
func validExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 11 || ext[0] != '.' {
		return false
	}
	for _, r := range ext[1:] {
		if r >= unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

// Ext returns the lower-cased extension without the leading dot
func Ext(name string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
}
