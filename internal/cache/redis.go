package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avdonin/ridepool/config"
	"github.com/avdonin/ridepool/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client    *redis.Client
	searchTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, searchTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:    redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		searchTTL: searchTTL,
	}
}

// GetTrips returns the cached result for a search key, nil on a miss.
func (c *RedisCache) GetTrips(ctx context.Context, key string) ([]domain.Trip, error) {
	data, err := c.client.Get(ctx, searchKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var trips []domain.Trip
	if err := json.Unmarshal(data, &trips); err != nil {
		return nil, err
	}
	return trips, nil
}

func (c *RedisCache) SetTrips(ctx context.Context, key string, trips []domain.Trip) error {
	payload, err := json.Marshal(trips)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, searchKey(key), payload, c.searchTTL).Err()
}

// InvalidateTrips drops every cached search result. Called whenever trip
// inventory changes.
func (c *RedisCache) InvalidateTrips(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, searchKey("*"), 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// AcquireBookingLock guards against duplicate concurrent booking submissions
// by the same passenger on the same trip.
func (c *RedisCache) AcquireBookingLock(ctx context.Context, tripID, passengerID int64, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, bookingLockKey(tripID, passengerID), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseBookingLock(ctx context.Context, tripID, passengerID int64) error {
	return c.client.Del(ctx, bookingLockKey(tripID, passengerID)).Err()
}

func searchKey(key string) string {
	return "cache:trips:" + key
}

func bookingLockKey(tripID, passengerID int64) string {
	return fmt.Sprintf("lock:trip:%d:passenger:%d", tripID, passengerID)
}
