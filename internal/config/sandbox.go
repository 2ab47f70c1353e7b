package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultSandboxName     = "walletgate-sandbox"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	defaultLoginAttempts   = 5
	defaultPasswordCost    = 10
	devJWTSecret           = "walletgate-sandbox-dev-secret"
)

// SandboxConfig configures the local ledger backend emulator.
type SandboxConfig struct {
	AppName         string
	AppEnv          string
	Port            string
	LogLevel        string
	RedisURL        string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	IdempotencyTTL  time.Duration
	ShutdownPeriod  time.Duration
	LoginPerMinute  int
	// PasswordCost is the bcrypt work factor for stored passwords.
	PasswordCost    int
}

// SandboxDefaults returns a configuration usable without any environment,
// which is what the in-process test harness starts from.
func SandboxDefaults() SandboxConfig {
	return SandboxConfig{
		AppName:         defaultSandboxName,
		AppEnv:          defaultAppEnv,
		Port:            defaultPort,
		LogLevel:        defaultLogLevel,
		JWTSecret:       devJWTSecret,
		AccessTokenTTL:  defaultAccessTokenTTL,
		RefreshTokenTTL: defaultRefreshTokenTTL,
		IdempotencyTTL:  defaultIdempotencyTTL,
		ShutdownPeriod:  defaultShutdownDelay,
		LoginPerMinute:  defaultLoginAttempts,
		PasswordCost:    defaultPasswordCost,
	}
}

// LoadSandbox reads the emulator configuration from the environment.
func LoadSandbox() (SandboxConfig, error) {
	if err := loadDotEnv(); err != nil {
		return SandboxConfig{}, err
	}

	cfg := SandboxDefaults()
	cfg.AppName = getEnv("APP_NAME", cfg.AppName)
	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv("SHUTDOWN_TIMEOUT_SECONDS", "SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return SandboxConfig{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv("IDEMPOTENCY_TTL_SECONDS", "IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return SandboxConfig{}, err
	}
	if cfg.AccessTokenTTL, err = durationFromEnv("ACCESS_TOKEN_TTL_SECONDS", "ACCESS_TOKEN_TTL", cfg.AccessTokenTTL); err != nil {
		return SandboxConfig{}, err
	}
	if cfg.RefreshTokenTTL, err = durationFromEnv("REFRESH_TOKEN_TTL_SECONDS", "REFRESH_TOKEN_TTL", cfg.RefreshTokenTTL); err != nil {
		return SandboxConfig{}, err
	}

	if v := os.Getenv("LOGIN_ATTEMPTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return SandboxConfig{}, fmt.Errorf("invalid LOGIN_ATTEMPTS_PER_MINUTE: %w", err)
		}
		cfg.LoginPerMinute = n
	}

	if v := os.Getenv("PASSWORD_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return SandboxConfig{}, fmt.Errorf("invalid PASSWORD_COST: %w", err)
		}
		cfg.PasswordCost = n
	}

	if !cfg.IsDev() && cfg.JWTSecret == devJWTSecret {
		return SandboxConfig{}, fmt.Errorf("JWT_SECRET must be set when APP_ENV=%s", cfg.AppEnv)
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c SandboxConfig) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the emulator runs in a local development environment.
func (c SandboxConfig) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
