// Package remote holds the face swap API contract and the image reachability probe
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/UnendingLoop/FaceSwap/internal/model"
)

// JobClient - контракт удаленного API: отправить задачу и узнать ее статус
type JobClient interface {
	Submit(ctx context.Context, sourceURL, targetURL string) (string, error)
	FetchStatus(ctx context.Context, jobID string) (*model.RemoteStatus, error)
}

// IsTimeout reports whether err came from a deadline rather than a remote answer
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// HTTPProber checks that a URL answers 2xx with an image content type
type HTTPProber struct {
	HTTP    *http.Client
	Timeout time.Duration
}

func NewHTTPProber(timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProber{HTTP: &http.Client{Timeout: timeout}, Timeout: timeout}
}

func (p *HTTPProber) Probe(ctx context.Context, rawURL string) error {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return fmt.Errorf("unsupported url %q", rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	resp, err := p.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return err
	}

	// часть хостингов (и presigned GET-ссылки) не отвечают на HEAD - пробуем GET первого байта
	switch resp.StatusCode {
	case http.StatusForbidden, http.StatusMethodNotAllowed, http.StatusNotImplemented:
		resp, err = p.do(ctx, http.MethodGet, rawURL)
		if err != nil {
			return err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	ctype := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(ctype, "image/") {
		return fmt.Errorf("content type %q is not an image", ctype)
	}
	return nil
}

func (p *HTTPProber) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	_ = resp.Body.Close()
	return resp, nil
}
