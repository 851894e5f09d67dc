// Package faceswap is the HTTP client of the remote face swap API
package faceswap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/UnendingLoop/FaceSwap/internal/model"
	"github.com/UnendingLoop/FaceSwap/internal/mwlogger"
	"github.com/UnendingLoop/FaceSwap/internal/remote"
	"github.com/UnendingLoop/FaceSwap/internal/settings"
)

const (
	runPath    = "/image/run"
	statusPath = "/image/status/"
	// сколько тела ошибки показываем в тексте ошибки
	maxErrBody = 512
)

type Client struct {
	baseURL   string
	apiKey    string
	keyHeader string
	http      *http.Client
}

var _ remote.JobClient = (*Client)(nil)

func NewClient(cfg settings.RemoteSettings) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	header := cfg.APIKeyHeader
	if header == "" {
		header = "x-api-market-key"
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		keyHeader: header,
		http:      &http.Client{Timeout: timeout},
	}
}

type runRequest struct {
	Input runInput `json:"input"`
}

type runInput struct {
	SwapImage   string `json:"swap_image"`
	TargetImage string `json:"target_image"`
}

type runResponse struct {
	ID string `json:"id"`
}

// Submit posts the job and returns the remote job id
func (c *Client) Submit(ctx context.Context, sourceURL, targetURL string) (string, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	body, err := json.Marshal(runRequest{Input: runInput{SwapImage: sourceURL, TargetImage: targetURL}})
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrRemoteSubmit, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+runPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrRemoteSubmit, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var res runResponse
	if err := c.do(req, &res); err != nil {
		if remote.IsTimeout(err) {
			return "", fmt.Errorf("%w: submit: %v", model.ErrRemoteTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", model.ErrRemoteSubmit, err)
	}

	if strings.TrimSpace(res.ID) == "" {
		return "", fmt.Errorf("%w: API did not return a request ID", model.ErrRemoteSubmit)
	}

	logger.Info().Str("remote_id", res.ID).Msg("Face swap job submitted")
	return res.ID, nil
}

// FetchStatus asks the remote API where the job is
func (c *Client) FetchStatus(ctx context.Context, jobID string) (*model.RemoteStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+statusPath+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrRemoteStatus, err)
	}

	var res model.RemoteStatus
	if err := c.do(req, &res); err != nil {
		if remote.IsTimeout(err) {
			return nil, fmt.Errorf("%w: status: %v", model.ErrRemoteTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrRemoteStatus, err)
	}

	res.Status = model.RemoteCode(strings.ToUpper(strings.TrimSpace(string(res.Status))))
	return &res, nil
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set(c.keyHeader, c.apiKey)
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer closeBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return fmt.Errorf("remote answered %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode remote response: %w", err)
	}
	return nil
}

func closeBody(b io.ReadCloser) {
	_, _ = io.Copy(io.Discard, b)
	_ = b.Close()
}
