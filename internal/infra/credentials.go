package infra

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/congo-pay/walletgate/internal/config"
	"github.com/congo-pay/walletgate/internal/credstore"
)

// OpenCredentialStore builds the credential store selected by the
// configuration. The returned close function releases any connection the
// backend holds and is safe to call when nothing was opened.
func OpenCredentialStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (credstore.Store, func(), error) {
	noop := func() {}

	switch cfg.CredentialBackend {
	case config.BackendMemory:
		return credstore.NewMemoryStore(), noop, nil

	case config.BackendFile:
		return credstore.NewFileStore(cfg.CredentialFile), noop, nil

	case config.BackendRedis:
		client, err := NewRedisClient(ctx, cfg.RedisURL, "walletgate-"+cfg.Profile)
		if err != nil {
			return nil, noop, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}
		return credstore.NewRedisStore(client, cfg.Profile), closeFn, nil

	case config.BackendPostgres:
		pool, err := NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		store := credstore.NewPostgresStore(pool, cfg.Profile)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return store, pool.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown credential backend %q", cfg.CredentialBackend)
	}
}
