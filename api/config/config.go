// Package config reads the dashboard server configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort         = 8050
	DefaultDataDir      = "data"
	DefaultRegion       = "us-east-1"
	DefaultEnvironment  = "development"
	DefaultRatePerMin   = 600
	DefaultRateBurst    = 60
	DefaultShutdownTime = 30 * time.Second
)

type Config struct {
	// ListenAddr is host:port; the host is always 0.0.0.0.
	ListenAddr  string
	DataDir     string
	SchemaFile  string
	MetricsAddr string
	Verbose     bool

	S3Region    string
	S3Endpoint  string
	S3PathStyle bool

	SentryDSN         string
	SentryEnvironment string

	CORSAllowedOrigins []string

	RatePerMinute int
	RateBurst     int

	ShutdownTimeout time.Duration
}

func (cfg *Config) Validate() error {
	if cfg.ListenAddr == "" {
		return errors.New("listen addr is required")
	}
	if cfg.DataDir == "" {
		return errors.New("data dir is required")
	}
	if cfg.RatePerMinute <= 0 || cfg.RateBurst <= 0 {
		return errors.New("rate limit must be positive")
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	return nil
}

// LoadDotEnv reads a .env file into the environment when one exists. Values
// already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// LoadFromEnv builds the configuration from getenv, usually os.Getenv.
func LoadFromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DataDir:           DefaultDataDir,
		S3Region:          DefaultRegion,
		SentryEnvironment: DefaultEnvironment,
		RatePerMinute:     DefaultRatePerMin,
		RateBurst:         DefaultRateBurst,
		ShutdownTimeout:   DefaultShutdownTime,
	}

	port := DefaultPort
	if v := getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return nil, fmt.Errorf("PORT must be a port number, got %q", v)
		}
		port = p
	}
	cfg.ListenAddr = net.JoinHostPort("0.0.0.0", strconv.Itoa(port))

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("DATA_DIR", &cfg.DataDir)
	str("SCHEMA_FILE", &cfg.SchemaFile)
	str("METRICS_ADDR", &cfg.MetricsAddr)
	str("S3_REGION", &cfg.S3Region)
	str("S3_ENDPOINT", &cfg.S3Endpoint)
	str("SENTRY_DSN", &cfg.SentryDSN)
	str("SENTRY_ENVIRONMENT", &cfg.SentryEnvironment)

	var err error
	if cfg.Verbose, err = parseBool(getenv, "VERBOSE"); err != nil {
		return nil, err
	}
	if cfg.S3PathStyle, err = parseBool(getenv, "S3_PATH_STYLE"); err != nil {
		return nil, err
	}
	if cfg.RatePerMinute, err = parseInt(getenv, "RATE_LIMIT_PER_MINUTE", cfg.RatePerMinute); err != nil {
		return nil, err
	}
	if cfg.RateBurst, err = parseInt(getenv, "RATE_LIMIT_BURST", cfg.RateBurst); err != nil {
		return nil, err
	}
	if v := getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}

	for _, o := range strings.Split(getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseBool(getenv func(string) string, key string) (bool, error) {
	v := getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

func parseInt(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}
