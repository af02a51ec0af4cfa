package app

import (
	"context"
	"fmt"

	"github.com/KarpovAlexandrGo/task-tracker/internal/config"
	"github.com/KarpovAlexandrGo/task-tracker/internal/repo/memory"
	mongorepo "github.com/KarpovAlexandrGo/task-tracker/internal/repo/mongo"
	"github.com/KarpovAlexandrGo/task-tracker/internal/repo/postgres"
	redisrepo "github.com/KarpovAlexandrGo/task-tracker/internal/repo/redis"
	"github.com/KarpovAlexandrGo/task-tracker/internal/usecase"
	"github.com/KarpovAlexandrGo/task-tracker/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Storage: хранилище, выбранное при старте. Mode не меняется до остановки процесса.
type Storage struct {
	Repo     usecase.TaskRepository
	Mode     string
	Fallback bool
	close    func(ctx context.Context) error
}

func (s *Storage) Close(ctx context.Context) {
	if s.close == nil {
		return
	}
	if err := s.close(ctx); err != nil {
		logger.Log.WithError(err).WithField("storage", s.Mode).Warn("Failed to close storage")
	}
}

// OpenStorage подключается к настроенному хранилищу. Если подключение не удалось
// за StoreConnectTimeout, сервис навсегда переходит на хранение в памяти.
func OpenStorage(ctx context.Context, cfg *config.Config) *Storage {
	if cfg.StorageDriver == config.DriverMemory {
		logger.Log.Info("Using in-memory storage")
		return &Storage{Repo: memory.NewTaskRepository(), Mode: config.DriverMemory}
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.StoreConnectTimeout)
	defer cancel()

	var (
		storage *Storage
		err     error
	)
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		storage, err = openPostgres(connectCtx, cfg)
	default:
		storage, err = openMongo(connectCtx, cfg)
	}
	if err == nil {
		logger.Log.WithField("storage", storage.Mode).Info("Storage connected")
		return storage
	}

	logger.Log.WithFields(logrus.Fields{
		"storage": cfg.StorageDriver,
		"timeout": cfg.StoreConnectTimeout.String(),
	}).WithError(err).Warn("Storage unavailable, falling back to in-memory storage")

	return &Storage{Repo: memory.NewTaskRepository(), Mode: config.DriverMemory, Fallback: true}
}

func openMongo(ctx context.Context, cfg *config.Config) (*Storage, error) {
	client, err := mongorepo.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}

	return &Storage{
		Repo:  mongorepo.NewTaskRepository(client.Database(cfg.MongoDatabase)),
		Mode:  config.DriverMongo,
		close: client.Disconnect,
	}, nil
}

func openPostgres(ctx context.Context, cfg *config.Config) (*Storage, error) {
	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{
		Repo: postgres.NewTaskRepository(pool),
		Mode: config.DriverPostgres,
		close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}

type cacheHandle struct {
	repo   usecase.CacheRepository
	client *redisrepo.CacheRepository
}

func (c *cacheHandle) Close() {
	if c.client == nil {
		return
	}
	if err := c.client.Close(); err != nil {
		logger.Log.WithError(err).Warn("Failed to close Redis client")
	}
}

// openCache подключает Redis, если задан REDIS_ADDR. Ключи кэша разделены
// по режиму хранилища, а при старте кэш сбрасывается. Хранилище в памяти
// принадлежит одному процессу, поэтому с ним общий кэш не используется.
func openCache(ctx context.Context, cfg *config.Config, namespace string) *cacheHandle {
	if cfg.RedisAddr == "" {
		return &cacheHandle{repo: usecase.NopCache{}}
	}
	if namespace == config.DriverMemory {
		logger.Log.WithField("addr", cfg.RedisAddr).Info("In-memory storage is process-local, Redis cache disabled")
		return &cacheHandle{repo: usecase.NopCache{}}
	}

	cache := redisrepo.NewCacheRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, namespace)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.StoreConnectTimeout)
	defer cancel()

	if err := cache.Ping(pingCtx); err != nil {
		logger.Log.WithError(err).WithField("addr", cfg.RedisAddr).Warn("Redis unavailable, caching disabled")
		_ = cache.Close()
		return &cacheHandle{repo: usecase.NopCache{}}
	}

	if err := cache.Invalidate(pingCtx); err != nil {
		logger.Log.WithError(err).Warn("Failed to reset task cache")
	}

	logger.Log.WithField("addr", cfg.RedisAddr).Info("Connected to Redis")
	return &cacheHandle{repo: cache, client: cache}
}
