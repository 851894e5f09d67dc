// Package settings turns env/config values into one typed struct handed to every component at construction
package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wb-go/wbf/config"
)

const (
	BackendFS    = "fs"
	BackendMinio = "minio"
)

type Settings struct {
	AppPort  string
	GinMode  string
	LogLevel string

	Remote  RemoteSettings
	Polling PollingSettings
	Storage StorageSettings
	Kafka   KafkaSettings
}

type RemoteSettings struct {
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	Timeout      time.Duration
	ProbeTimeout time.Duration
}

type PollingSettings struct {
	Attempts int
	Interval time.Duration
}

type StorageSettings struct {
	Backend        string
	Root           string
	PublicBaseURL  string
	MaxUploadBytes int64

	Bucket      string
	MinioUser   string
	MinioPass   string
	MinioAddr   string
	MinioSecure bool
	URLExpiry   time.Duration
}

type KafkaSettings struct {
	Broker string
	Topic  string
}

// Enabled - без брокера события не публикуются
func (k KafkaSettings) Enabled() bool {
	return k.Broker != ""
}

var (
	ErrMissingBaseURL = errors.New("FACESWAP_BASE_URL is required")
	ErrMissingAPIKey  = errors.New("FACESWAP_API_KEY is required")
	ErrBadBackend     = errors.New("STORAGE_BACKEND must be fs or minio")
)

// Getter is the part of wbf config the loader needs
type Getter interface {
	GetString(key string) string
}

var _ Getter = (*config.Config)(nil)

// Load reads every key once, applies defaults and validates the result
func Load(cfg Getter) (*Settings, error) {
	s := &Settings{
		AppPort:  stringOr(cfg, "APP_PORT", "8080"),
		GinMode:  stringOr(cfg, "GIN_MODE", "release"),
		LogLevel: stringOr(cfg, "LOG_LEVEL", "info"),
	}

	var err error
	s.Remote.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.GetString("FACESWAP_BASE_URL")), "/")
	s.Remote.APIKey = strings.TrimSpace(cfg.GetString("FACESWAP_API_KEY"))
	s.Remote.APIKeyHeader = stringOr(cfg, "FACESWAP_API_KEY_HEADER", "x-api-market-key")
	if s.Remote.Timeout, err = durationOr(cfg, "REMOTE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if s.Remote.ProbeTimeout, err = durationOr(cfg, "PROBE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if s.Polling.Attempts, err = intOr(cfg, "POLL_ATTEMPTS", 20); err != nil {
		return nil, err
	}
	if s.Polling.Interval, err = durationOr(cfg, "POLL_INTERVAL", 3*time.Second); err != nil {
		return nil, err
	}

	maxMB, err := intOr(cfg, "MAX_UPLOAD_MB", 16)
	if err != nil {
		return nil, err
	}
	s.Storage.MaxUploadBytes = int64(maxMB) << 20
	s.Storage.Backend = strings.ToLower(stringOr(cfg, "STORAGE_BACKEND", BackendFS))
	s.Storage.Root = stringOr(cfg, "STORAGE_ROOT", "./data")
	s.Storage.PublicBaseURL = strings.TrimRight(stringOr(cfg, "PUBLIC_BASE_URL", "http://localhost:"+s.AppPort), "/")
	s.Storage.Bucket = stringOr(cfg, "BUCKET_NAME", "faceswap")
	s.Storage.MinioUser = cfg.GetString("MINIO_USER")
	s.Storage.MinioPass = cfg.GetString("MINIO_PASS")
	s.Storage.MinioAddr = stringOr(cfg, "MINIO_ENDPOINT", "localhost:9000")
	s.Storage.MinioSecure = strings.EqualFold(cfg.GetString("MINIO_SECURE"), "true")
	if s.Storage.URLExpiry, err = durationOr(cfg, "MINIO_URL_EXPIRY", time.Hour); err != nil {
		return nil, err
	}

	s.Kafka.Broker = strings.TrimSpace(cfg.GetString("KAFKA_BROKER"))
	s.Kafka.Topic = stringOr(cfg, "KAFKA_TOPIC", "faceswap-events")

	return s, s.validate()
}

func (s *Settings) validate() error {
	switch {
	case s.Remote.BaseURL == "":
		return ErrMissingBaseURL
	case s.Remote.APIKey == "":
		return ErrMissingAPIKey
	case s.Storage.Backend != BackendFS && s.Storage.Backend != BackendMinio:
		return ErrBadBackend
	case s.Polling.Attempts <= 0:
		return fmt.Errorf("POLL_ATTEMPTS must be positive, got %d", s.Polling.Attempts)
	case s.Storage.MaxUploadBytes <= 0:
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

func stringOr(cfg Getter, key, def string) string {
	if v := strings.TrimSpace(cfg.GetString(key)); v != "" {
		return v
	}
	return def
}

func intOr(cfg Getter, key string, def int) (int, error) {
	raw := strings.TrimSpace(cfg.GetString(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func durationOr(cfg Getter, key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(cfg.GetString(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
