package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application. It is built once at
// startup and handed to every component that needs it.
type Config struct {
	DatabasePath   string
	UploadDir      string
	Port           string
	LogLevel       string
	LogFormat      string
	BusyTimeout    time.Duration
	MaxUploadBytes int64
	PageSize       int
	SessionSecret  string
	AdminSecret    string
	TelegramToken  string
	FFmpegPath     string
	PreviewEnabled bool
	PreviewTimeout time.Duration
	MetricsEnabled bool
}

// Load loads configuration from the environment (optionally seeded from a
// .env file) and from command line flags, flags taking precedence.
func Load(flags *pflag.FlagSet) (*Config, error) {
	// A missing .env file is the normal case in production.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("HIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("db_path", "hive.db")
	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("busy_timeout", 3*time.Second)
	v.SetDefault("max_upload_mb", 200)
	v.SetDefault("page_size", 25)
	v.SetDefault("ffmpeg_path", "ffmpeg")
	v.SetDefault("preview_enabled", true)
	v.SetDefault("preview_timeout", 5*time.Second)
	v.SetDefault("metrics_enabled", true)

	// Unprefixed names kept for existing deployments.
	if err := v.BindEnv("admin_secret", "ADMIN_RESET_PASSWORD", "HIVE_ADMIN_RESET"); err != nil {
		return nil, fmt.Errorf("failed to bind admin secret: %w", err)
	}
	if err := v.BindEnv("telegram_token", "TELEGRAM_TOKEN", "HIVE_TELEGRAM_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind telegram token: %w", err)
	}

	if flags != nil {
		for key, name := range map[string]string{
			"db_path":    "db",
			"upload_dir": "uploads",
			"port":       "port",
			"log_level":  "log-level",
		} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		DatabasePath:   v.GetString("db_path"),
		UploadDir:      v.GetString("upload_dir"),
		Port:           v.GetString("port"),
		LogLevel:       v.GetString("log_level"),
		LogFormat:      v.GetString("log_format"),
		BusyTimeout:    v.GetDuration("busy_timeout"),
		MaxUploadBytes: v.GetInt64("max_upload_mb") * 1024 * 1024,
		PageSize:       v.GetInt("page_size"),
		SessionSecret:  v.GetString("session_secret"),
		AdminSecret:    v.GetString("admin_secret"),
		TelegramToken:  v.GetString("telegram_token"),
		FFmpegPath:     v.GetString("ffmpeg_path"),
		PreviewEnabled: v.GetBool("preview_enabled"),
		PreviewTimeout: v.GetDuration("preview_timeout"),
		MetricsEnabled: v.GetBool("metrics_enabled"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("HIVE_DB_PATH must not be empty")
	}
	if strings.TrimSpace(c.UploadDir) == "" {
		return fmt.Errorf("HIVE_UPLOAD_DIR must not be empty")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("HIVE_PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("HIVE_MAX_UPLOAD_MB must be positive")
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("HIVE_BUSY_TIMEOUT must not be negative")
	}
	return nil
}
