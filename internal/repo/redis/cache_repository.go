package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/KarpovAlexandrGo/task-tracker/internal/entity"
	"github.com/KarpovAlexandrGo/task-tracker/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// CacheRepository кэширует полный список задач. Список лежит под ключом
// текущего поколения; Invalidate увеличивает поколение, и список, собранный
// до записи, больше не читается.
// Ключи включают режим хранилища: списки разных хранилищ не пересекаются.
type CacheRepository struct {
	client *redis.Client
	prefix string
}

func NewCacheRepository(addr, password string, db int, namespace string) *CacheRepository {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return NewCacheRepositoryWithClient(client, namespace)
}

func NewCacheRepositoryWithClient(client *redis.Client, namespace string) *CacheRepository {
	return &CacheRepository{client: client, prefix: "tasks:" + namespace}
}

func (c *CacheRepository) genKey() string {
	return c.prefix + ":gen"
}

func (c *CacheRepository) listKey(gen int64) string {
	return c.prefix + ":all:" + strconv.FormatInt(gen, 10)
}

// Generation возвращает текущее поколение кэша; отсутствующий ключ означает 0.
func (c *CacheRepository) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *CacheRepository) SetTasks(ctx context.Context, gen int64, tasks []entity.Task, ttl time.Duration) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("failed to marshal tasks: %w", err)
	}
	return c.client.Set(ctx, c.listKey(gen), data, ttl).Err()
}

func (c *CacheRepository) GetTasks(ctx context.Context, gen int64) ([]entity.Task, error) {
	data, err := c.client.Get(ctx, c.listKey(gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, usecase.ErrCacheMiss
	} else if err != nil {
		return nil, err
	}

	var tasks []entity.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached tasks: %w", err)
	}
	return tasks, nil
}

// Invalidate переводит кэш на новое поколение. Списки старых поколений
// истекают по TTL.
func (c *CacheRepository) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, c.genKey()).Err()
}

// Ping проверяет подключение к Redis
func (c *CacheRepository) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *CacheRepository) Close() error {
	return c.client.Close()
}
