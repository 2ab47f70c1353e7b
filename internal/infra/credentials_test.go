package infra

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/congo-pay/walletgate/internal/config"
	"github.com/congo-pay/walletgate/internal/credstore"
	"github.com/congo-pay/walletgate/internal/logging"
)

func TestOpenCredentialStoreBackends(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	cases := []struct {
		name string
		cfg  config.Config
	}{
		{name: "memory", cfg: config.Config{CredentialBackend: config.BackendMemory}},
		{name: "file", cfg: config.Config{CredentialBackend: config.BackendFile, CredentialFile: filepath.Join(t.TempDir(), "c.json")}},
		{name: "redis", cfg: config.Config{CredentialBackend: config.BackendRedis, RedisURL: "redis://" + mr.Addr(), Profile: "ci"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, closeFn, err := OpenCredentialStore(ctx, tc.cfg, logging.Discard())
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer closeFn()

			if err := store.Set(ctx, credstore.Pair{AccessToken: "a", RefreshToken: "r"}); err != nil {
				t.Fatalf("set: %v", err)
			}
			pair, err := store.Get(ctx)
			if err != nil || pair.AccessToken != "a" {
				t.Fatalf("unexpected get result %+v, %v", pair, err)
			}
		})
	}

	if v, _ := mr.Get("walletgate:v1:ci:accessToken"); v != "a" {
		t.Fatalf("expected redis backend to write under the profile key, got %q", v)
	}
}

func TestOpenCredentialStoreUnknownBackend(t *testing.T) {
	_, closeFn, err := OpenCredentialStore(context.Background(), config.Config{CredentialBackend: "etcd"}, logging.Discard())
	defer closeFn()
	if err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestNewRedisClientRequiresURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "", ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestNewRedisClientFailsFastWhenUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	start := time.Now()
	client, err := NewRedisClient(context.Background(), "redis://"+addr, "walletgate-test")
	if err == nil {
		client.Close()
		t.Fatalf("expected ping error for closed server")
	}
	if !strings.Contains(err.Error(), "ping redis") {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*connectTimeout {
		t.Fatalf("connect took %s", elapsed)
	}
}

func TestNewPostgresPoolRejectsBadURL(t *testing.T) {
	if _, err := NewPostgresPool(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
	_, err := NewPostgresPool(context.Background(), "postgres://%zz")
	if err == nil || !strings.Contains(err.Error(), "parse postgres config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}
