package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shareyt/backend/internal/auth"
	"github.com/shareyt/backend/internal/config"
	"github.com/shareyt/backend/internal/db"
	"github.com/shareyt/backend/internal/directory"
	"github.com/shareyt/backend/internal/handlers"
	"github.com/shareyt/backend/internal/middleware"
	"github.com/shareyt/backend/internal/relay"
	"github.com/shareyt/backend/internal/repositories"
	"github.com/shareyt/backend/internal/social"
	"github.com/shareyt/backend/internal/storage"
	"github.com/shareyt/backend/internal/thumbs"
	"github.com/shareyt/backend/internal/ws"
)

// components holds the wired application graph plus the pieces that need
// explicit lifecycle management during shutdown.
type components struct {
	deps     handlers.Dependencies
	hub      *ws.Hub
	relay    *relay.Relay
	archiver *thumbs.Archiver
	redis    *redis.Client
}

// buildComponents wires together concrete implementations used by the HTTP
// handlers and the sync relay. Redis and the object store are optional:
// without them the directory skips caching and thumbnails are never
// archived.
func buildComponents(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (*components, error) {
	userRepo := repositories.NewPostgresUserRepository(pool)
	relationshipRepo := repositories.NewPostgresRelationshipRepository(pool)
	suggestionRepo := repositories.NewPostgresSuggestionRepository(pool)
	sessionStore := repositories.NewPostgresSessionStore(pool)

	sessions := auth.NewManager(cfg.AccessTokenTTL, cfg.RefreshTokenTTL, sessionStore)

	broker := relay.NewBroker(logger)

	var archiver *thumbs.Archiver
	var thumbnails social.ThumbnailArchiver
	if cfg.ObjectStore.Bucket != "" {
		store, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return nil, fmt.Errorf("configure thumbnail storage: %w", err)
		}
		archiver = thumbs.NewArchiver(nil, store, suggestionRepo, thumbs.ArchiverConfig{
			QueueSize:    cfg.ThumbQueueSize,
			Workers:      cfg.ThumbWorkers,
			FetchTimeout: cfg.ThumbFetchTimeout,
		}, logger)
		thumbnails = archiver
	} else {
		logger.Info("thumbnail archiving disabled, no bucket configured")
	}

	service := social.NewService(relationshipRepo, suggestionRepo, userRepo, broker, thumbnails)

	var redisClient *redis.Client
	var cache directory.ProfileCache
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache = directory.NewRedisProfileCache(redisClient, cfg.ProfileCacheTTL)
	} else {
		logger.Info("profile caching disabled, no redis configured")
	}

	dir := directory.New(userRepo, relationshipRepo, cache)

	hub := ws.NewHub(logger)
	pusher := ws.NewPusher(hub, logger)
	mirror := relay.NewMirror()
	beat := relay.NewHeartbeat(cfg.KeepAliveInterval, poolPing(pool), logger)

	rel := relay.New(service, dir, broker, mirror, pusher, pusher, beat, logger)

	return &components{
		deps: handlers.Dependencies{
			Users:       userRepo,
			Sessions:    sessions,
			Social:      service,
			Directory:   dir,
			Relay:       rel,
			Sync:        ws.ServeWS(hub, sessions, rel),
			AuthLimiter: middleware.NewKeyedLimiter(10, time.Minute, 5, 10*time.Minute),
		},
		hub:      hub,
		relay:    rel,
		archiver: archiver,
		redis:    redisClient,
	}, nil
}

// poolPing keeps a database round trip flowing while users are signed in.
func poolPing(pool db.Pool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return err
		}
		defer conn.Release()
		return conn.Ping(ctx)
	}
}

func (c *components) shutdown(ctx context.Context, logger *slog.Logger) {
	c.relay.Shutdown()

	if c.archiver != nil {
		if err := c.archiver.Shutdown(ctx); err != nil {
			logger.Warn("thumbnail archiver shutdown", "error", err)
		}
	}

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			logger.Warn("redis close", "error", err)
		}
	}
}
