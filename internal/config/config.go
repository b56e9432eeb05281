package config

import (
	"errors"
	"os"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken       string             `yaml:"discord_token" env:"DISCORD_TOKEN"`
	DatabasePath       string             `yaml:"database_path" env:"DATABASE_PATH"`
	LogLevel           string             `yaml:"log_level" env:"LOG_LEVEL"`
	DefaultLogChannel  string             `yaml:"default_log_channel" env:"DEFAULT_LOG_CHANNEL"`
	AuditWindowSeconds int                `yaml:"audit_window_seconds" env:"AUDIT_WINDOW_SECONDS"`
	Health             HealthConfig       `yaml:"health"`
	MessageCache       MessageCacheConfig `yaml:"message_cache"`
	Transcripts        TranscriptConfig   `yaml:"transcripts"`
	History            HistoryConfig      `yaml:"history"`
	Dashboard          DashboardConfig    `yaml:"dashboard"`
	Notifications      NotifyConfig       `yaml:"notifications"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled" env:"HEALTH_ENABLED"`
	Addr    string `yaml:"addr" env:"HEALTH_ADDR"`
}

type MessageCacheConfig struct {
	Enabled bool `yaml:"enabled" env:"MESSAGE_CACHE_ENABLED"`
	// StateMessages is the per-channel message count kept by the gateway state.
	StateMessages int `yaml:"state_messages" env:"MESSAGE_CACHE_STATE_MESSAGES"`
	TTLHours      int `yaml:"ttl_hours" env:"MESSAGE_CACHE_TTL_HOURS"`
}

type TranscriptConfig struct {
	Enabled       bool `yaml:"enabled" env:"TRANSCRIPTS_ENABLED"`
	Workers       int  `yaml:"workers" env:"TRANSCRIPTS_WORKERS"`
	RetentionDays int  `yaml:"retention_days" env:"TRANSCRIPTS_RETENTION_DAYS"`
}

type HistoryConfig struct {
	RetentionDays int `yaml:"retention_days" env:"HISTORY_RETENTION_DAYS"`
}

type DashboardConfig struct {
	Enabled         bool    `yaml:"enabled" env:"DASHBOARD_ENABLED"`
	Addr            string  `yaml:"addr" env:"DASHBOARD_ADDR"`
	PublicURL       string  `yaml:"public_url" env:"DASHBOARD_PUBLIC_URL"`
	AuthToken       string  `yaml:"auth_token" env:"DASHBOARD_AUTH_TOKEN"`
	RateLimit       float64 `yaml:"rate_limit" env:"DASHBOARD_RATE_LIMIT"`
	RateBurst       int     `yaml:"rate_burst" env:"DASHBOARD_RATE_BURST"`
	DefaultPageSize int     `yaml:"default_page_size" env:"DASHBOARD_DEFAULT_PAGE_SIZE"`
	MaxPageSize     int     `yaml:"max_page_size" env:"DASHBOARD_MAX_PAGE_SIZE"`
}

type NotifyConfig struct {
	EmbedColors EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Delete int `yaml:"delete" env:"EMBED_COLOR_DELETE"`
	Bulk   int `yaml:"bulk" env:"EMBED_COLOR_BULK"`
	Info   int `yaml:"info" env:"EMBED_COLOR_INFO"`
	Error  int `yaml:"error" env:"EMBED_COLOR_ERROR"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:       "/data/modlog.db",
		LogLevel:           "info",
		DefaultLogChannel:  "",
		AuditWindowSeconds: 30,
		Health:             HealthConfig{Enabled: false, Addr: ":8080"},
		MessageCache:       MessageCacheConfig{Enabled: true, StateMessages: 200, TTLHours: 72},
		Transcripts:        TranscriptConfig{Enabled: true, Workers: 8, RetentionDays: 0},
		History:            HistoryConfig{RetentionDays: 30},
		Dashboard: DashboardConfig{
			Enabled:         false,
			Addr:            ":8081",
			PublicURL:       "http://localhost:8081",
			RateLimit:       10,
			RateBurst:       20,
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Notifications: NotifyConfig{
			EmbedColors: EmbedColors{
				Delete: 0xEF4444,
				Bulk:   0xF97316,
				Info:   0x3B82F6,
				Error:  0xB91C1C,
			},
		},
	}
}

// Load reads the bot configuration. DISCORD_TOKEN is required.
func Load() (Config, error) {
	cfg, err := load()
	if err != nil {
		return Config{}, err
	}
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	return cfg, nil
}

// LoadDashboard reads the same configuration for the standalone dashboard
// backend, which never talks to the gateway.
func LoadDashboard() (Config, error) {
	return load()
}

func load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	_ = godotenv.Load()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	normalize(&cfg)
	return cfg, nil
}

func normalize(cfg *Config) {
	defaults := DefaultConfig()
	if cfg.AuditWindowSeconds <= 0 {
		cfg.AuditWindowSeconds = defaults.AuditWindowSeconds
	}
	if cfg.Transcripts.Workers <= 0 {
		cfg.Transcripts.Workers = defaults.Transcripts.Workers
	}
	if cfg.Transcripts.RetentionDays < 0 {
		cfg.Transcripts.RetentionDays = 0
	}
	if cfg.Dashboard.MaxPageSize <= 0 {
		cfg.Dashboard.MaxPageSize = defaults.Dashboard.MaxPageSize
	}
	if cfg.Dashboard.DefaultPageSize <= 0 || cfg.Dashboard.DefaultPageSize > cfg.Dashboard.MaxPageSize {
		cfg.Dashboard.DefaultPageSize = min(defaults.Dashboard.DefaultPageSize, cfg.Dashboard.MaxPageSize)
	}
	cfg.Dashboard.PublicURL = strings.TrimRight(cfg.Dashboard.PublicURL, "/")
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
