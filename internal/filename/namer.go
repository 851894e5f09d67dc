package filename

import (
	"crypto/rand"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

// Namer carries the clock and random source Generate needs
type Namer struct {
	Now  func() time.Time
	Rand io.Reader
}

func NewNamer() Namer {
	return Namer{Now: time.Now, Rand: rand.Reader}
}

func (n Namer) Next(original string) (string, error) {
	return Generate(n.Now(), n.Rand, original)
}

var ErrBadKey = errors.New("invalid storage key")

// CleanKey normalizes a folder/name key and refuses anything escaping the storage root
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", ErrBadKey
	}

	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrBadKey
	}

	return cleaned, nil
}
