package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// client
	APIBaseURL                  string
	PushURL                     string
	UserID                      string
	UserEmail                   string
	BoardRefreshSeconds         int
	NotificationsRefreshSeconds int
	UnreadRefreshSeconds        int
	DragActivationDistance      int
	RequestTimeoutSeconds       int
	BoardSchemaFile             string

	// backend
	AppURL                 string
	DatabaseDSN            string
	RedisAddr              string
	RedisChannel           string
	PushAllowedOrigins     []string
	RateLimit              int
	ShutdownTimeoutSeconds int
	SeedDemoData           bool

	LogLevel  string
	LogFormat string
}

func Load() (Config, error) {
	var errs []error
	intEnv := func(key string, defaultVal int) int {
		v, err := getEnvAsInt(key, defaultVal)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	appHost := getEnv("APP_HOST", "127.0.0.1")
	appPort := getEnv("APP_PORT", "8080")

	cfg := Config{
		APIBaseURL:                  getEnv("API_BASE_URL", "http://127.0.0.1:8080"),
		PushURL:                     getEnv("PUSH_URL", "ws://127.0.0.1:8080/ws"),
		UserID:                      os.Getenv("USER_ID"),
		UserEmail:                   os.Getenv("USER_EMAIL"),
		BoardRefreshSeconds:         intEnv("BOARD_REFRESH_SECONDS", 0),
		NotificationsRefreshSeconds: intEnv("NOTIFICATIONS_REFRESH_SECONDS", 30),
		UnreadRefreshSeconds:        intEnv("UNREAD_REFRESH_SECONDS", 15),
		DragActivationDistance:      intEnv("DRAG_ACTIVATION_DISTANCE", 5),
		RequestTimeoutSeconds:       intEnv("REQUEST_TIMEOUT_SECONDS", 15),
		BoardSchemaFile:             os.Getenv("BOARD_SCHEMA_FILE"),

		AppURL:                 fmt.Sprintf("%s:%s", appHost, appPort),
		DatabaseDSN:            getEnv("DATABASE_DSN", "board.db"),
		RedisChannel:           getEnv("REDIS_CHANNEL", "board:notifications"),
		PushAllowedOrigins:     getEnvAsList("PUSH_ALLOWED_ORIGINS"),
		RateLimit:              intEnv("RATE_LIMIT_PER_MINUTE", 600),
		ShutdownTimeoutSeconds: intEnv("SHUTDOWN_TIMEOUT_SECONDS", 20),
		SeedDemoData:           getEnvAsBool("SEED_DEMO_DATA", true),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		cfg.RedisAddr = fmt.Sprintf("%s:%s", redisHost, getEnv("REDIS_PORT", "6379"))
	}
	if getEnvAsBool("DEBUG", false) {
		cfg.LogLevel = "debug"
	}

	if err := errors.Join(errs...); err != nil {
		return cfg, err
	}
	return cfg, validate(cfg)
}

func validate(cfg Config) error {
	if cfg.AppURL == "" {
		return errors.New("APP_HOST/APP_PORT must not be empty (e.g. 127.0.0.1:8080)")
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN must not be empty")
	}
	if cfg.RateLimit <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be greater than 0")
	}
	if cfg.BoardRefreshSeconds < 0 || cfg.NotificationsRefreshSeconds < 0 || cfg.UnreadRefreshSeconds < 0 {
		return errors.New("refresh intervals must not be negative")
	}
	if cfg.DragActivationDistance <= 0 {
		return errors.New("DRAG_ACTIVATION_DISTANCE must be greater than 0")
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		return errors.New("REQUEST_TIMEOUT_SECONDS must be greater than 0")
	}
	if cfg.ShutdownTimeoutSeconds <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT_SECONDS must be greater than 0")
	}
	return nil
}

func (c Config) BoardRefresh() time.Duration {
	return time.Duration(c.BoardRefreshSeconds) * time.Second
}

func (c Config) NotificationsRefresh() time.Duration {
	return time.Duration(c.NotificationsRefreshSeconds) * time.Second
}

func (c Config) UnreadRefresh() time.Duration {
	return time.Duration(c.UnreadRefreshSeconds) * time.Second
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) (int, error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return defaultVal, fmt.Errorf("invalid integer value for %s", key)
		}
		return i, nil
	}
	return defaultVal, nil
}

// getEnvAsList splits a comma separated value, dropping empty entries.
func getEnvAsList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultVal
}
