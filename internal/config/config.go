package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Brownie44l1/pdaq-server/internal/headers"
	"github.com/Brownie44l1/pdaq-server/internal/request"
)

// Environment variables read by FromEnv
const (
	EnvAddr           = "PDAQ_ADDR"
	EnvDatabaseURL    = "PDAQ_DATABASE_URL"
	EnvMaxBodySize    = "PDAQ_MAX_BODY_SIZE"
	EnvReadTimeout    = "PDAQ_READ_TIMEOUT"
	EnvLogLevel       = "PDAQ_LOG_LEVEL"
	EnvLogFormat      = "PDAQ_LOG_FORMAT"
	EnvAllowedOrigins = "PDAQ_ALLOWED_ORIGINS"
	EnvAdmins         = "PDAQ_ADMINS"
	EnvSeedMock       = "PDAQ_SEED"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Addr string
	// DatabaseURL is a SQLite path. Empty selects the in-memory mock.
	DatabaseURL string
	MaxBodySize int64
	// ReadTimeout bounds each connection's reads. Zero disables it.
	ReadTimeout    time.Duration
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string
	Admins         []string
	SeedMock       bool
}

func Default() Config {
	return Config{
		Addr:           "127.0.0.1:7878",
		MaxBodySize:    request.DefaultMaxBodySize,
		LogLevel:       "info",
		LogFormat:      "console",
		AllowedOrigins: headers.DefaultCORSConfig().AllowedOrigins,
	}
}

// FromEnv starts from Default and applies any PDAQ_* variables that are set.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup(EnvAddr); ok && v != "" {
		cfg.Addr = v
	}
	if v, ok := lookup(EnvDatabaseURL); ok {
		cfg.DatabaseURL = v
	}
	if v, ok := lookup(EnvMaxBodySize); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, EnvMaxBodySize, v, err)
		}
		cfg.MaxBodySize = n
	}
	if v, ok := lookup(EnvReadTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, EnvReadTimeout, v, err)
		}
		cfg.ReadTimeout = d
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		cfg.LogFormat = v
	}
	if v, ok := lookup(EnvAllowedOrigins); ok {
		cfg.AllowedOrigins = SplitList(v)
	}
	if v, ok := lookup(EnvAdmins); ok {
		cfg.Admins = SplitList(v)
	}
	if v, ok := lookup(EnvSeedMock); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, EnvSeedMock, v, err)
		}
		cfg.SeedMock = b
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: empty listen address", ErrInvalidConfig)
	}
	if c.MaxBodySize <= 0 {
		return fmt.Errorf("%w: max body size must be positive", ErrInvalidConfig)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("%w: negative read timeout", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log format %q (want console or json)", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// CORS returns the preflight config for the allowed origins
func (c Config) CORS() headers.CORSConfig {
	cors := headers.DefaultCORSConfig()
	cors.AllowedOrigins = c.AllowedOrigins
	return cors
}

// SplitList splits a comma-separated list, dropping blanks
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
