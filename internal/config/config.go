package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultBaseURL           = "http://localhost:8080/api/v1"
	defaultProfile           = "default"
	defaultCredentialBackend = BackendFile
	defaultLogLevel          = "info"
	defaultRequestTimeout    = 30 * time.Second
	defaultRenewalTimeout    = 10 * time.Second
	envFileEnvVar            = "WALLETGATE_ENV_FILE"
)

// Credential store backends selectable through CREDENTIAL_BACKEND.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config captures client runtime configuration loaded from environment variables.
type Config struct {
	BaseURL           string
	Profile           string
	CredentialBackend string
	CredentialFile    string
	RedisURL          string
	DatabaseURL       string
	RequestTimeout    time.Duration
	RenewalTimeout    time.Duration
	RateLimitRPS      float64
	LogLevel          string
}

// Load reads configuration values from the environment and populates a Config
// instance. A .env file (or the file named by WALLETGATE_ENV_FILE) is applied
// first; variables already present in the environment win.
func Load() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		BaseURL:           strings.TrimRight(getEnv("WALLETGATE_BASE_URL", defaultBaseURL), "/"),
		Profile:           getEnv("WALLETGATE_PROFILE", defaultProfile),
		CredentialBackend: strings.ToLower(getEnv("CREDENTIAL_BACKEND", defaultCredentialBackend)),
		CredentialFile:    os.Getenv("CREDENTIAL_FILE"),
		RedisURL:          os.Getenv("REDIS_URL"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
	}

	var err error
	if cfg.RequestTimeout, err = durationFromEnv("REQUEST_TIMEOUT_SECONDS", "REQUEST_TIMEOUT", defaultRequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.RenewalTimeout, err = durationFromEnv("RENEWAL_TIMEOUT_SECONDS", "RENEWAL_TIMEOUT", defaultRenewalTimeout); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps < 0 {
			return Config{}, fmt.Errorf("invalid RATE_LIMIT_RPS: %q", v)
		}
		cfg.RateLimitRPS = rps
	}

	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return Config{}, fmt.Errorf("invalid WALLETGATE_BASE_URL: %w", err)
	}

	switch cfg.CredentialBackend {
	case BackendMemory:
	case BackendFile:
		if cfg.CredentialFile == "" {
			path, err := defaultCredentialFile(cfg.Profile)
			if err != nil {
				return Config{}, err
			}
			cfg.CredentialFile = path
		}
	case BackendRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when CREDENTIAL_BACKEND=%s", BackendRedis)
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when CREDENTIAL_BACKEND=%s", BackendPostgres)
		}
	default:
		return Config{}, fmt.Errorf("unknown CREDENTIAL_BACKEND %q", cfg.CredentialBackend)
	}

	return cfg, nil
}

func defaultCredentialFile(profile string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "walletgate", "credentials-"+profile+".json"), nil
}

func loadDotEnv() error {
	path := getEnv(envFileEnvVar, ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// durationFromEnv accepts either an integer number of seconds under secondsKey
// or a Go duration string under durationKey. The seconds form wins.
func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
