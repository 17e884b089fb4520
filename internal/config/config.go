package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds application configuration
type Config struct {
	ServerPort string `env:"PORT" envDefault:"8501"`
	BindAddr   string `env:"BIND_ADDR" envDefault:"127.0.0.1"`

	// Deck source. The column names are the headers of the spreadsheet.
	DeckPath         string `env:"DECK_PATH" envDefault:"ジョイマン百人一首_全リスト.xlsx"`
	DeckSheet        string `env:"DECK_SHEET" envDefault:"シート1"`
	DeckIDColumn     string `env:"DECK_ID_COLUMN" envDefault:"#"`
	DeckFirstColumn  string `env:"DECK_FIRST_COLUMN" envDefault:"上の句"`
	DeckSecondColumn string `env:"DECK_SECOND_COLUMN" envDefault:"下の句"`
	UploadMaxSize    int64  `env:"UPLOAD_MAX_SIZE" envDefault:"5242880"` // 5MB

	// Speech synthesis
	TTSProvider string        `env:"TTS_PROVIDER" envDefault:"google"`
	TTSLanguage string        `env:"TTS_LANGUAGE" envDefault:"ja"`
	TTSEndpoint string        `env:"TTS_ENDPOINT" envDefault:"https://translate.google.com/translate_tts"`
	TTSTimeout  time.Duration `env:"TTS_TIMEOUT" envDefault:"10s"`
	TTSRetry    bool          `env:"TTS_RETRY" envDefault:"true"`
	PollyVoice  string        `env:"POLLY_VOICE" envDefault:"Takumi"`
	PollyEngine string        `env:"POLLY_ENGINE" envDefault:"neural"`
	AWSRegion   string        `env:"AWS_REGION" envDefault:"ap-northeast-1"`

	// Audio cache: none, memory or database
	AudioCache   string `env:"AUDIO_CACHE" envDefault:"memory"`
	DatabaseType string `env:"DB_TYPE" envDefault:"sqlite"`
	DatabasePath string `env:"DB_PATH" envDefault:"./yomiage.db"`
	DatabaseURL  string `env:"DATABASE_URL"`

	// SelectorSeed fixes the draw order when non-zero.
	SelectorSeed    int64  `env:"SELECTOR_SEED" envDefault:"0"`
	FormTokenSecret string `env:"FORM_TOKEN_SECRET"`
	// ReplayRateLimit caps replays per client per minute; 0 disables the limit.
	ReplayRateLimit int `env:"REPLAY_RATE_LIMIT" envDefault:"30"`

	// Completion notification via SES, disabled unless both addresses are set
	NotifyEmailTo string `env:"NOTIFY_EMAIL_TO"`
	SESFromEmail  string `env:"SES_FROM_EMAIL"`
	SESFromName   string `env:"SES_FROM_NAME" envDefault:"yomiage"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Debug    bool   `env:"DEBUG" envDefault:"false"`
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the binaries cannot act on.
func (c *Config) Validate() error {
	switch strings.ToLower(c.TTSProvider) {
	case "google", "polly":
	default:
		return fmt.Errorf("unsupported TTS_PROVIDER: %q", c.TTSProvider)
	}

	switch strings.ToLower(c.AudioCache) {
	case "none", "memory", "database":
	default:
		return fmt.Errorf("unsupported AUDIO_CACHE: %q", c.AudioCache)
	}

	switch strings.ToLower(c.DatabaseType) {
	case "sqlite", "sqlite3", "postgres", "postgresql", "mysql", "":
	default:
		return fmt.Errorf("unsupported DB_TYPE: %q", c.DatabaseType)
	}

	if c.UploadMaxSize <= 0 {
		return fmt.Errorf("UPLOAD_MAX_SIZE must be positive, got %d", c.UploadMaxSize)
	}
	if c.ReplayRateLimit < 0 {
		return fmt.Errorf("REPLAY_RATE_LIMIT must not be negative, got %d", c.ReplayRateLimit)
	}
	if c.TTSTimeout <= 0 {
		return fmt.Errorf("TTS_TIMEOUT must be positive, got %s", c.TTSTimeout)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.BindAddr + ":" + c.ServerPort
}

// NotificationsEnabled reports whether a completion email can be sent.
func (c *Config) NotificationsEnabled() bool {
	return c.NotifyEmailTo != "" && c.SESFromEmail != ""
}

// SlogLevel maps LOG_LEVEL onto a slog level. DEBUG=true always wins.
func (c *Config) SlogLevel() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
