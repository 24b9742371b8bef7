package app

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shareyt/backend/internal/config"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

func TestBuildComponents(t *testing.T) {
	cfg := config.Config{
		AccessTokenTTL:    time.Hour,
		RefreshTokenTTL:   24 * time.Hour,
		KeepAliveInterval: time.Second,
		ObjectStore:       config.ObjectStoreConfig{Bucket: "test-bucket", Endpoint: "http://localhost:9000", Region: "us-east-1"},
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	comps, err := buildComponents(context.Background(), fakePool{}, cfg, slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		comps.shutdown(ctx, slog.Default())
	}()

	if comps.deps.Users == nil {
		t.Fatal("expected user repository to be configured")
	}
	if comps.deps.Sessions == nil {
		t.Fatal("expected session manager to be configured")
	}
	if comps.deps.Social == nil {
		t.Fatal("expected social service to be configured")
	}
	if comps.deps.Directory == nil {
		t.Fatal("expected profile directory to be configured")
	}
	if comps.deps.Relay == nil {
		t.Fatal("expected relay to be configured")
	}
	if comps.deps.Sync == nil {
		t.Fatal("expected sync handler to be configured")
	}
	if comps.archiver == nil {
		t.Fatal("expected thumbnail archiver to be configured")
	}
	if comps.redis != nil {
		t.Fatal("expected redis to stay disabled without an address")
	}
}

func TestBuildComponentsWithoutBucket(t *testing.T) {
	cfg := config.Config{
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	}

	comps, err := buildComponents(context.Background(), fakePool{}, cfg, slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer comps.shutdown(context.Background(), slog.Default())

	if comps.archiver != nil {
		t.Fatal("expected thumbnail archiving to stay disabled without a bucket")
	}
}
