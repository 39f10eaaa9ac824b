package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomfuertes/murmur/internal/config"
)

// bucketTTL bounds how long an idle bucket key survives. The limiter
// compacts buckets on every check, so the TTL only matters for keys
// nothing touches anymore.
const bucketTTL = time.Hour

// RedisBucketStore keeps rate buckets in Redis so limits stay coherent
// when several replicas share one store.
type RedisBucketStore struct {
	client *redis.Client
	prefix string
}

// NewRedisBucketStore connects to Redis and verifies the connection.
func NewRedisBucketStore(cfg config.RedisConfig, prefix string) (*RedisBucketStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisBucketStore{client: client, prefix: prefix}, nil
}

func (s *RedisBucketStore) buildKey(key string) string {
	return fmt.Sprintf("%s:bucket:%s", s.prefix, key)
}

// GetBucket loads a rate bucket. A missing key is an empty bucket.
func (s *RedisBucketStore) GetBucket(ctx context.Context, key string) ([]int64, error) {
	data, err := s.client.Get(ctx, s.buildKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bucket from redis: %w", err)
	}

	var stamps []int64
	if err := json.Unmarshal(data, &stamps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bucket data: %w", err)
	}
	return stamps, nil
}

// PutBucket writes a rate bucket, removing the key when empty.
func (s *RedisBucketStore) PutBucket(ctx context.Context, key string, stamps []int64) error {
	if len(stamps) == 0 {
		return s.DeleteBucket(ctx, key)
	}

	data, err := json.Marshal(stamps)
	if err != nil {
		return fmt.Errorf("failed to marshal bucket data: %w", err)
	}
	if err := s.client.Set(ctx, s.buildKey(key), data, bucketTTL).Err(); err != nil {
		return fmt.Errorf("failed to set bucket in redis: %w", err)
	}
	return nil
}

// DeleteBucket removes a rate bucket.
func (s *RedisBucketStore) DeleteBucket(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.buildKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete bucket from redis: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisBucketStore) Close() error {
	return s.client.Close()
}
