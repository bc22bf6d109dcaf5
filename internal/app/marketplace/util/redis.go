package util

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shoply/internal/app/marketplace/entity"
	"shoply/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	serviceName = "marketplace"

	// Ключ кеша дефолтной страницы каталога (без поиска, page=1, limit=10).
	// Именно её запрашивают клиенты при открытии листинга
	defaultListingCacheKey = "products:listing:default"

	listingCacheTTL = time.Hour
)

type RedisClient struct {
	client *redis.Client
}

func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// SetDefaultListing кеширует дефолтную страницу каталога
func (r *RedisClient) SetDefaultListing(ctx context.Context, data *entity.ProductListData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal listing: %w", err)
	}

	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpSet)
	defer timer.ObserveDuration()

	if err := r.client.Set(ctx, defaultListingCacheKey, payload, listingCacheTTL).Err(); err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpSet)
		return fmt.Errorf("failed to set listing in cache: %w", err)
	}

	return nil
}

// GetDefaultListing возвращает закешированную страницу или nil при промахе
func (r *RedisClient) GetDefaultListing(ctx context.Context) (*entity.ProductListData, error) {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpGet)
	data, err := r.client.Get(ctx, defaultListingCacheKey).Bytes()
	timer.ObserveDuration()

	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		metrics.RecordRedisError(serviceName, metrics.RedisOpGet)
		return nil, fmt.Errorf("failed to get listing from cache: %w", err)
	}

	var listing entity.ProductListData
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, fmt.Errorf("failed to unmarshal listing: %w", err)
	}

	return &listing, nil
}

// InvalidateListing сбрасывает кеш листинга.
// Вызывается при любом изменении каталога
func (r *RedisClient) InvalidateListing(ctx context.Context) error {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpDel)
	defer timer.ObserveDuration()

	if err := r.client.Del(ctx, defaultListingCacheKey).Err(); err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpDel)
		return fmt.Errorf("failed to invalidate listing cache: %w", err)
	}
	return nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
