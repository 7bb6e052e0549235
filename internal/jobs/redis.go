// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	pendingKey = "voxalign:jobs"
	jobPrefix  = "voxalign:job:"
)

// RedisStore is a Redis-backed Store for deployments that must survive
// process restarts. Each job is a flat JSON record under jobPrefix+id and
// the pending pool is a Redis list, so NextPending is an atomic LPOP.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(cfg RedisConfig, logger zerolog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to Redis job store")

	return &RedisStore{client: client, logger: logger}, nil
}

// Add persists the job record and pushes its id onto the pending list.
func (s *RedisStore) Add(ctx context.Context, recordingID, audioURL, callbackURL string) (*Job, error) {
	job := &Job{
		ID:          uuid.NewString(),
		RecordingID: recordingID,
		AudioURL:    audioURL,
		CallbackURL: callbackURL,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.set(ctx, job); err != nil {
		return nil, err
	}
	if err := s.client.RPush(ctx, pendingKey, job.ID).Err(); err != nil {
		return nil, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	return job, nil
}

// Get loads the job record, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	data, err := s.client.Get(ctx, jobPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

// NextPending atomically pops the oldest id from the pending list. LPOP
// guarantees each id is handed to at most one consumer.
func (s *RedisStore) NextPending(ctx context.Context) (*Job, error) {
	id, err := s.client.LPop(ctx, pendingKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop pending job: %w", err)
	}

	job, err := s.Get(ctx, id)
	if err == ErrNotFound {
		// Record expired between push and pop; treat as idle.
		s.logger.Warn().Str("job_id", id).Msg("pending id without job record")
		return nil, nil
	}
	return job, err
}

// Update reads, mutates and rewrites the job record. Unknown ids are a no-op.
// The single worker is the only writer after dequeue, so read-modify-write is
// safe here.
func (s *RedisStore) Update(ctx context.Context, id string, u Update) error {
	job, err := s.Get(ctx, id)
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	if err := u.apply(job, time.Now().UTC()); err != nil {
		return err
	}
	return s.set(ctx, job)
}

func (s *RedisStore) set(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	if err := s.client.Set(ctx, jobPrefix+job.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	return nil
}

// HealthCheck reports whether Redis is reachable.
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
