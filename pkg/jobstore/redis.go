package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"card-template-pipeline/pkg/types"
)

// ErrJobNotFound is returned when no job is stored under an id.
var ErrJobNotFound = errors.New("job not found")

// Store keeps template job state in Redis
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a store writing jobs with the given TTL.
func New(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func key(id string) string {
	return "job:" + id
}

// Save writes the job, replacing any previous state.
func (s *Store) Save(ctx context.Context, job *types.TemplateJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := s.rdb.Set(ctx, key(job.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	return nil
}

// Get loads a job by id.
func (s *Store) Get(ctx context.Context, id string) (*types.TemplateJob, error) {
	data, err := s.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}

	var job types.TemplateJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// Connect parses url and waits for Redis to answer a ping.
func Connect(ctx context.Context, url string, log zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := waitForRedis(ctx, rdb, log); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// waitForRedis waits for Redis to be ready with retries
func waitForRedis(ctx context.Context, rdb *redis.Client, log zerolog.Logger) error {
	maxRetries := 30
	retryDelay := time.Second

	for i := 0; i < maxRetries; i++ {
		if err := rdb.Ping(ctx).Err(); err == nil {
			return nil
		}
		log.Warn().Msgf("waiting for Redis... (attempt %d/%d)", i+1, maxRetries)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return fmt.Errorf("Redis not ready after %d attempts", maxRetries)
}
