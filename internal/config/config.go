// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Draw modes. In host mode the host's client sends every draw; in server mode
// a pacer inside the service draws on the room's interval.
const (
	DrawModeHost   = "host"
	DrawModeServer = "server"
)

// Config is the service configuration, read from the environment.
type Config struct {
	Port           string
	Env            string
	AllowedOrigins []string

	StoreBackend      string
	StoreMaxRetries   int
	StoreRetryBackoff time.Duration

	RedisAddr      string
	RedisDB        int
	RedisKeyPrefix string

	DatabaseURL       string
	HistoryQueue      string
	HistoryBatchSize  int
	HistoryFlushDelay time.Duration
	// HistoryEmbedded runs the historian inside the service. Turn it off when
	// a separate historian process drains the Redis queue.
	HistoryEmbedded bool

	DrawMode string

	RateLimitRPS   float64
	RateLimitBurst int

	// TokenTTL is zero when seat tokens never expire.
	TokenTTL time.Duration
	// Raw ed25519 key files for seat tokens. When unset a key pair is generated at startup.
	SeatPrivateKeyPath string
	SeatPublicKeyPath  string

	LogLevel  logrus.Level
	LogFormat string
}

// Production reports whether the service runs with production settings.
func (c Config) Production() bool {
	return c.Env == "production"
}

// SeatKeysConfigured reports whether seat tokens use key files.
func (c Config) SeatKeysConfigured() bool {
	return c.SeatPrivateKeyPath != ""
}

// HistoryEnabled reports whether finished rounds are persisted.
func (c Config) HistoryEnabled() bool {
	return c.DatabaseURL != ""
}

// Load reads the configuration from environment variables, applying defaults
// for anything unset. Malformed values are errors rather than silent defaults.
func Load() (Config, error) {
	var errs []string
	fail := func(key string, err error) {
		errs = append(errs, fmt.Sprintf("%s: %v", key, err))
	}

	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("LOTERIA_ENV", "development"),
		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "loteria"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		HistoryQueue:   getEnv("HISTORIAN_QUEUE_NAME", "loteria_rounds"),
		DrawMode:       strings.ToLower(getEnv("DRAW_MODE", DrawModeHost)),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),

		SeatPrivateKeyPath: os.Getenv("SEAT_PRIVATE_KEY_PATH"),
		SeatPublicKeyPath:  os.Getenv("SEAT_PUBLIC_KEY_PATH"),
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	var err error
	if cfg.StoreMaxRetries, err = getEnvInt("STORE_MAX_RETRIES", 5); err != nil {
		fail("STORE_MAX_RETRIES", err)
	}
	if cfg.StoreRetryBackoff, err = getEnvDuration("STORE_RETRY_BACKOFF", 25*time.Millisecond); err != nil {
		fail("STORE_RETRY_BACKOFF", err)
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		fail("REDIS_DB", err)
	}
	if cfg.HistoryBatchSize, err = getEnvInt("HISTORIAN_BATCH_SIZE", 20); err != nil {
		fail("HISTORIAN_BATCH_SIZE", err)
	}
	if cfg.HistoryFlushDelay, err = getEnvDuration("HISTORIAN_FLUSH_DELAY", 500*time.Millisecond); err != nil {
		fail("HISTORIAN_FLUSH_DELAY", err)
	}
	if cfg.HistoryEmbedded, err = getEnvBool("HISTORIAN_EMBEDDED", true); err != nil {
		fail("HISTORIAN_EMBEDDED", err)
	}
	if cfg.RateLimitRPS, err = getEnvFloat("RATE_LIMIT_RPS", 20); err != nil {
		fail("RATE_LIMIT_RPS", err)
	}
	if cfg.RateLimitBurst, err = getEnvInt("RATE_LIMIT_BURST", 40); err != nil {
		fail("RATE_LIMIT_BURST", err)
	}
	if cfg.TokenTTL, err = parseTokenTTL(os.Getenv("TOKEN_EXPIRE_TIME")); err != nil {
		fail("TOKEN_EXPIRE_TIME", err)
	}
	if cfg.LogLevel, err = logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		fail("LOG_LEVEL", err)
	}

	switch cfg.StoreBackend {
	case BackendMemory, BackendRedis:
	default:
		fail("STORE_BACKEND", fmt.Errorf("unknown backend %q", cfg.StoreBackend))
	}
	switch cfg.DrawMode {
	case DrawModeHost, DrawModeServer:
	default:
		fail("DRAW_MODE", fmt.Errorf("unknown draw mode %q", cfg.DrawMode))
	}
	if (cfg.SeatPrivateKeyPath == "") != (cfg.SeatPublicKeyPath == "") {
		fail("SEAT_PRIVATE_KEY_PATH", fmt.Errorf("set both key paths or neither"))
	}
	if !cfg.HistoryEmbedded && cfg.StoreBackend != BackendRedis {
		fail("HISTORIAN_EMBEDDED", fmt.Errorf("an external historian needs STORE_BACKEND=redis"))
	}
	if cfg.StoreMaxRetries < 1 {
		fail("STORE_MAX_RETRIES", fmt.Errorf("must be at least 1"))
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// NewLogger builds the service logger from the configured level and format.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// parseTokenTTL accepts a Go duration, or "never"/"0"/"" for tokens without expiry.
func parseTokenTTL(s string) (time.Duration, error) {
	switch s {
	case "", "0", "never":
		return 0, nil
	}
	return time.ParseDuration(s)
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func getEnvBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	return strconv.ParseBool(s)
}

func getEnvFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	return strconv.ParseFloat(s, 64)
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}
