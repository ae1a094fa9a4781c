package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fjod/go_storefront/internal/config"
	"github.com/fjod/go_storefront/internal/events"
	"github.com/fjod/go_storefront/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const eventsChannel = "storefront:events"

// openedStorage is the selected backend plus whatever it offers for cross-process change
// notification.
type openedStorage struct {
	backend storage.Backend
	watcher storage.Watcher
	relay   events.Relay
	redis   *redis.Client
}

func (s *openedStorage) Close() error {
	err := s.backend.Close()
	if s.redis != nil {
		if cerr := s.redis.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*openedStorage, error) {
	out := &openedStorage{}

	if cfg.RedisAddr != "" {
		out.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := out.redis.Ping(ctx).Err(); err != nil {
			out.redis.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		out.relay = events.NewRedisRelay(out.redis, eventsChannel, log)
	}

	switch cfg.StorageBackend {
	case config.BackendMemory:
		out.backend = storage.NewMemory()

	case config.BackendFile:
		f, err := storage.NewFile(cfg.StoragePath, log)
		if err != nil {
			return nil, err
		}
		out.backend = f
		out.watcher = f

	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.StoragePath, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
		db, err := storage.OpenSQL(ctx, storage.DialectSQLite, filepath.Join(cfg.StoragePath, "storefront.db"))
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(); err != nil {
			db.Close()
			return nil, err
		}
		out.backend = db

	case config.BackendPostgres:
		db, err := storage.OpenSQL(ctx, storage.DialectPostgres, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(); err != nil {
			db.Close()
			return nil, err
		}
		out.backend = db

	case config.BackendRedis:
		out.backend = storage.NewRedis(out.redis, "storefront")

	case config.BackendMongo:
		db, err := storage.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, err
		}
		out.backend = storage.NewMongo(db)

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	log.Info().Str("backend", string(cfg.StorageBackend)).Bool("relay", out.relay != nil).Msg("storage ready")
	return out, nil
}
