package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPProber_Probe(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr bool
	}{
		{
			name: "image head ok",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "image/jpeg")
			},
		},
		{
			name: "head refused, ranged get ok",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodHead {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				require.Equal(t, "bytes=0-0", r.Header.Get("Range"))
				w.Header().Set("Content-Type", "image/png")
				w.WriteHeader(http.StatusPartialContent)
			},
		},
		{
			name: "html page",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
			},
			wantErr: true,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			err := NewHTTPProber(time.Second).Probe(context.Background(), srv.URL+"/img")
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestHTTPProber_BadScheme(t *testing.T) {
	require.Error(t, NewHTTPProber(0).Probe(context.Background(), "file:///etc/passwd"))
}

func TestHTTPProber_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	err := NewHTTPProber(50*time.Millisecond).Probe(context.Background(), srv.URL)
	require.Error(t, err)
	require.True(t, IsTimeout(err))
}

func TestIsTimeout(t *testing.T) {
	require.True(t, IsTimeout(fmt.Errorf("wrap: %w", context.DeadlineExceeded)))
	require.False(t, IsTimeout(errors.New("boom")))
}
