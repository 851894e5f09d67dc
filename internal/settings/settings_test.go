package settings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type mapGetter map[string]string

func (m mapGetter) GetString(key string) string {
	return m[key]
}

func TestLoad_Defaults(t *testing.T) {
	s, err := Load(mapGetter{
		"FACESWAP_BASE_URL": "https://api.example.com/faceswap/",
		"FACESWAP_API_KEY":  "key",
	})
	require.NoError(t, err)

	require.Equal(t, "https://api.example.com/faceswap", s.Remote.BaseURL)
	require.Equal(t, "x-api-market-key", s.Remote.APIKeyHeader)
	require.Equal(t, 30*time.Second, s.Remote.Timeout)
	require.Equal(t, 10*time.Second, s.Remote.ProbeTimeout)
	require.Equal(t, 20, s.Polling.Attempts)
	require.Equal(t, 3*time.Second, s.Polling.Interval)
	require.Equal(t, int64(16<<20), s.Storage.MaxUploadBytes)
	require.Equal(t, BackendFS, s.Storage.Backend)
	require.Equal(t, "http://localhost:8080", s.Storage.PublicBaseURL)
	require.False(t, s.Kafka.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	s, err := Load(mapGetter{
		"FACESWAP_BASE_URL": "https://api.example.com",
		"FACESWAP_API_KEY":  "key",
		"APP_PORT":          "9000",
		"POLL_ATTEMPTS":     "5",
		"POLL_INTERVAL":     "250ms",
		"MAX_UPLOAD_MB":     "2",
		"STORAGE_BACKEND":   "MINIO",
		"MINIO_SECURE":      "true",
		"KAFKA_BROKER":      "kafka:9092",
	})
	require.NoError(t, err)

	require.Equal(t, "http://localhost:9000", s.Storage.PublicBaseURL)
	require.Equal(t, 5, s.Polling.Attempts)
	require.Equal(t, 250*time.Millisecond, s.Polling.Interval)
	require.Equal(t, int64(2<<20), s.Storage.MaxUploadBytes)
	require.Equal(t, BackendMinio, s.Storage.Backend)
	require.True(t, s.Storage.MinioSecure)
	require.True(t, s.Kafka.Enabled())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  mapGetter
		err  error
	}{
		{"no base url", mapGetter{"FACESWAP_API_KEY": "k"}, ErrMissingBaseURL},
		{"no api key", mapGetter{"FACESWAP_BASE_URL": "http://x"}, ErrMissingAPIKey},
		{"bad backend", mapGetter{"FACESWAP_BASE_URL": "http://x", "FACESWAP_API_KEY": "k", "STORAGE_BACKEND": "s3"}, ErrBadBackend},
		{"bad duration", mapGetter{"FACESWAP_BASE_URL": "http://x", "FACESWAP_API_KEY": "k", "REMOTE_TIMEOUT": "soon"}, nil},
		{"bad number", mapGetter{"FACESWAP_BASE_URL": "http://x", "FACESWAP_API_KEY": "k", "POLL_ATTEMPTS": "abc"}, nil},
		{"zero attempts", mapGetter{"FACESWAP_BASE_URL": "http://x", "FACESWAP_API_KEY": "k", "POLL_ATTEMPTS": "0"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.cfg)
			require.Error(t, err)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestLoad_MalformedValueNamesKey(t *testing.T) {
	for key, val := range map[string]string{"POLL_ATTEMPTS": "abc", "POLL_INTERVAL": "3 sec", "MAX_UPLOAD_MB": "16MB"} {
		_, err := Load(mapGetter{"FACESWAP_BASE_URL": "http://x", "FACESWAP_API_KEY": "k", key: val})
		require.Error(t, err, key)
		require.Contains(t, err.Error(), key)
	}
}
