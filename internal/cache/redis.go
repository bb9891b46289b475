// Package cache зеркалирует текущие записи станций в Redis
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"solar-simulator/internal/models"
)

const (
	// RecordKeyPrefix префикс ключа записи станции
	RecordKeyPrefix = "solar:current:"
	// FarmsKey множество станций в снимке
	FarmsKey = "solar:farms"
	// RefreshCounterKey счетчик опубликованных снимков
	RefreshCounterKey = "solar:refresh:total"
	// SnapshotTTL время жизни записи в кэше
	SnapshotTTL = 5 * time.Minute
)

// ErrNotFound возвращается, если для станции нет записи в кэше
var ErrNotFound = errors.New("record not cached")

// RedisCache хранит последний снимок в Redis
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// Options параметры подключения к Redis
type Options struct {
	Addr     string
	Password string
	DB       int
	// MaxRetries ограничивает число попыток подключения
	MaxRetries uint64
}

// NewRedisCache подключается к Redis с повторами и экспоненциальной задержкой
func NewRedisCache(ctx context.Context, opts Options, logger *zap.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), opts.MaxRetries), ctx)
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis connection attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	}, policy)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("connected to redis", zap.String("addr", opts.Addr))
	return &RedisCache{client: client, logger: logger}, nil
}

// NewFromClient оборачивает существующий клиент
func NewFromClient(client *redis.Client, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, logger: logger}
}

// StoreSnapshot записывает все записи одним пайплайном и увеличивает счетчик обновлений
func (r *RedisCache) StoreSnapshot(ctx context.Context, records map[string]models.Record) error {
	pipe := r.client.TxPipeline()
	for farm, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record of %s: %w", farm, err)
		}
		pipe.Set(ctx, RecordKeyPrefix+farm, data, SnapshotTTL)
		pipe.SAdd(ctx, FarmsKey, farm)
	}
	pipe.Expire(ctx, FarmsKey, SnapshotTTL)
	pipe.Incr(ctx, RefreshCounterKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}
	return nil
}

// Record возвращает запись станции из кэша
func (r *RedisCache) Record(ctx context.Context, farm string) (models.Record, error) {
	data, err := r.client.Get(ctx, RecordKeyPrefix+farm).Bytes()
	if err == redis.Nil {
		return models.Record{}, ErrNotFound
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to get record: %w", err)
	}
	var rec models.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.Record{}, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return rec, nil
}

// Snapshot возвращает все записи из кэша. Истекшие и битые записи пропускаются.
func (r *RedisCache) Snapshot(ctx context.Context) (map[string]models.Record, error) {
	farms, err := r.client.SMembers(ctx, FarmsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list farms: %w", err)
	}
	out := make(map[string]models.Record, len(farms))
	for _, farm := range farms {
		rec, err := r.Record(ctx, farm)
		if err != nil {
			r.logger.Debug("skipping cached record", zap.String("farm", farm), zap.Error(err))
			continue
		}
		out[farm] = rec
	}
	return out, nil
}

// Refreshes возвращает число опубликованных снимков
func (r *RedisCache) Refreshes(ctx context.Context) (int64, error) {
	val, err := r.client.Get(ctx, RefreshCounterKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

// Ping проверяет соединение
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close закрывает соединение
func (r *RedisCache) Close() error {
	return r.client.Close()
}
