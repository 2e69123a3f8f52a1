// Package config loads the archiver configuration from the environment.
//
// A .env file is honored when present so local development does not need
// exported variables. Durations accept Go duration syntax ("1500ms").
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backend names accepted by STORAGE_BACKEND.
const (
	BackendLocal = "local"
	BackendGCS   = "gcs"
)

type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"local"`

	// Slack
	SlackBotToken  string        `env:"SLACK_BOT_TOKEN,required,notEmpty"`
	SlackBaseURL   string        `env:"SLACK_BASE_URL" envDefault:"https://slack.com/api"`
	APIMinInterval time.Duration `env:"API_MIN_INTERVAL" envDefault:"1s"`
	JoinCooldown   time.Duration `env:"JOIN_COOLDOWN" envDefault:"1500ms"`
	APITimeout     time.Duration `env:"API_TIMEOUT" envDefault:"30s"`

	// Pagination and thread fetching
	ChannelPageSize  int `env:"CHANNEL_PAGE_SIZE" envDefault:"100"`
	HistoryPageSize  int `env:"HISTORY_PAGE_SIZE" envDefault:"100"`
	ThreadReplyLimit int `env:"THREAD_REPLY_LIMIT" envDefault:"0"` // 0 = unbounded

	// Archive store
	StorageBackend    string `env:"STORAGE_BACKEND" envDefault:"local"`
	ArchiveRoot       string `env:"ARCHIVE_ROOT" envDefault:"./archive"`
	GCSBucket         string `env:"GCS_BUCKET"`
	JoinedChannelsKey string `env:"JOINED_CHANNELS_KEY" envDefault:"joined_channels.json"`

	// HTTP surface
	HTTPPort      int    `env:"HTTP_PORT" envDefault:"8080"`
	BasicAuthFile string `env:"BASIC_AUTH_FILE"`

	// Scheduled capture; zero disables the ticker so captures run only
	// when triggered through /capture.
	CaptureInterval time.Duration `env:"CAPTURE_INTERVAL" envDefault:"0"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	if cfg.StorageBackend == BackendGCS && cfg.GCSBucket == "" {
		return nil, fmt.Errorf("GCS_BUCKET is required when STORAGE_BACKEND=%s", BackendGCS)
	}

	return cfg, nil
}
