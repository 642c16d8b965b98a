package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces job records in Redis
const KeyPrefix = "onaykontrol:jobs:"

// Key returns the Redis key of a job
func Key(id uuid.UUID) string {
	return KeyPrefix + id.String()
}

// RedisStore keeps jobs in Redis as JSON with a TTL
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore from a Redis URL
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Put(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := s.client.Set(ctx, Key(job.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store job %s: %w", job.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	data, err := s.client.Get(ctx, Key(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", id, err)
	}
	return &job, nil
}

// Close releases the Redis connection pool
func (s *RedisStore) Close() error {
	return s.client.Close()
}
