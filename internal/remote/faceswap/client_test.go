package faceswap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/UnendingLoop/FaceSwap/internal/model"
	"github.com/UnendingLoop/FaceSwap/internal/settings"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string, timeout time.Duration) *Client {
	return NewClient(settings.RemoteSettings{
		BaseURL: url + "/",
		APIKey:  "secret",
		Timeout: timeout,
	})
}

func TestClient_Submit_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/image/run", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("x-api-market-key"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body runRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "http://img/src.jpg", body.Input.SwapImage)
		require.Equal(t, "http://img/dst.jpg", body.Input.TargetImage)

		_, _ = w.Write([]byte(`{"id":"job-42"}`))
	}))
	defer srv.Close()

	id, err := newTestClient(srv.URL, time.Second).Submit(context.Background(), "http://img/src.jpg", "http://img/dst.jpg")
	require.NoError(t, err)
	require.Equal(t, "job-42", id)
}

func TestClient_Submit_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "non 2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":"bad key"}`))
			},
			wantErr: model.ErrRemoteSubmit,
		},
		{
			name: "missing id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"status":"IN_QUEUE"}`))
			},
			wantErr: model.ErrRemoteSubmit,
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
			wantErr: model.ErrRemoteSubmit,
		},
		{
			name: "slow remote",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
				_, _ = w.Write([]byte(`{"id":"late"}`))
			},
			wantErr: model.ErrRemoteTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestClient(srv.URL, 50*time.Millisecond).Submit(context.Background(), "a", "b")
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_FetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "secret", r.Header.Get("x-api-market-key"))

		switch r.URL.Path {
		case "/image/status/done":
			_, _ = w.Write([]byte(`{"status":"COMPLETED","output":"data:image/jpeg;base64,AAAA","delayTime":10,"executionTime":20}`))
		case "/image/status/running":
			_, _ = w.Write([]byte(`{"status":"in_progress","delayTime":1500}`))
		case "/image/status/failed":
			_, _ = w.Write([]byte(`{"status":"FAILED","error":"no face detected"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, time.Second)
	ctx := context.Background()

	st, err := c.FetchStatus(ctx, "done")
	require.NoError(t, err)
	require.Equal(t, model.RemoteCompleted, st.Status)
	require.Equal(t, "data:image/jpeg;base64,AAAA", st.Output)
	require.Equal(t, int64(10), st.DelayTime)
	require.Equal(t, int64(20), st.ExecutionTime)

	st, err = c.FetchStatus(ctx, "running")
	require.NoError(t, err)
	require.Equal(t, model.RemoteCode("IN_PROGRESS"), st.Status)
	require.Equal(t, int64(1500), st.DelayTime)

	st, err = c.FetchStatus(ctx, "failed")
	require.NoError(t, err)
	require.Equal(t, model.RemoteFailed, st.Status)
	require.Equal(t, "no face detected", st.Error)

	_, err = c.FetchStatus(ctx, "unknown")
	require.ErrorIs(t, err, model.ErrRemoteStatus)
}

func TestClient_FetchStatus_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url, time.Second).FetchStatus(context.Background(), "x")
	require.ErrorIs(t, err, model.ErrRemoteStatus)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(settings.RemoteSettings{BaseURL: "http://x/"})
	require.Equal(t, "http://x", c.baseURL)
	require.Equal(t, "x-api-market-key", c.keyHeader)
	require.Equal(t, 30*time.Second, c.http.Timeout)
}
