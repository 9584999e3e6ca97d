package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port            string
	DBDriver        string
	DatabaseDSN     string
	SessionSecret   string
	MediaRoot       string
	Domain          string
	BackofficeUsers []string
	LogLevel        string
	GinMode         string
	ShutdownTimeout time.Duration
}

var ErrMissingSessionSecret = errors.New("SESSION_SECRET environment variable not set")

// Load reads .env (if present) into the environment, then resolves every key
// from the environment, an optional config.yaml, or the defaults below.
func Load() (*Config, error) {
	// a missing .env is fine, deployments set the environment directly
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "yatube.db")
	v.SetDefault("MEDIA_ROOT", "media")
	v.SetDefault("DOMAIN", "http://localhost:8080")
	v.SetDefault("BACKOFFICE_USERS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return &Config{
		Port:            v.GetString("PORT"),
		DBDriver:        strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN:     v.GetString("DATABASE_DSN"),
		SessionSecret:   v.GetString("SESSION_SECRET"),
		MediaRoot:       v.GetString("MEDIA_ROOT"),
		Domain:          strings.TrimSuffix(v.GetString("DOMAIN"), "/"),
		BackofficeUsers: splitList(v.GetString("BACKOFFICE_USERS")),
		LogLevel:        v.GetString("LOG_LEVEL"),
		GinMode:         v.GetString("GIN_MODE"),
		ShutdownTimeout: parseDuration(v.GetString("SHUTDOWN_TIMEOUT"), 10*time.Second),
	}, nil
}

// RequireSessionSecret is checked by commands that serve HTTP.
func (c *Config) RequireSessionSecret() error {
	if c.SessionSecret == "" {
		return ErrMissingSessionSecret
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}
