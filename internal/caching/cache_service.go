package caching

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheService fronts the stock aggregator with a short-TTL cache so
// storefront availability reads stay off the ledger tables. Cache failures
// are never fatal; callers fall through to the database.
type CacheService interface {
	GetStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*int, error)
	SetStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, qty int, ttl time.Duration) error
	DeleteStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) error
	InvalidateAll(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisClient builds the shared Redis client. Accepts redis:// and
// rediss:// URLs as plain host:port.
func NewRedisClient(addr, password string, db int) *redis.Client {
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsedAddr = strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")
	}
	return redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})
}

func NewRedisCacheService(client *redis.Client, logger *zap.Logger) CacheService {
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis ping failed on initialization", zap.Error(err))
	}
	return &redisCacheService{client: client, logger: logger}
}

func stockKey(productID uuid.UUID, variantID *uuid.UUID) string {
	variant := "-"
	if variantID != nil {
		variant = variantID.String()
	}
	return fmt.Sprintf("lotwise:stock:%s:%s", productID.String(), variant)
}

func (r *redisCacheService) GetStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*int, error) {
	val, err := r.client.Get(ctx, stockKey(productID, variantID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}
	qty, err := strconv.Atoi(val)
	if err != nil {
		return nil, fmt.Errorf("corrupt stock cache entry %q: %w", val, err)
	}
	return &qty, nil
}

func (r *redisCacheService) SetStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, qty int, ttl time.Duration) error {
	return r.client.Set(ctx, stockKey(productID, variantID), strconv.Itoa(qty), ttl).Err()
}

func (r *redisCacheService) DeleteStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) error {
	return r.client.Del(ctx, stockKey(productID, variantID)).Err()
}

func (r *redisCacheService) InvalidateAll(ctx context.Context) error {
	keys, err := r.client.Keys(ctx, "lotwise:stock:*").Result()
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}
