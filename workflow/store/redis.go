package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/workflow"
)

const (
	defaultRedisPrefix = "mapshock:report:"
	defaultRedisTTL    = 24 * time.Hour
)

// RedisStore keeps recent reports in Redis with an expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig holds Redis configuration for reports.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration // Zero keeps reports forever
}

// NewRedisStore creates a new Redis-based report store.
func NewRedisStore(config *RedisConfig) *RedisStore {
	if config == nil {
		config = &RedisConfig{
			Addr:   "localhost:6379",
			Prefix: defaultRedisPrefix,
			TTL:    defaultRedisTTL,
		}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	return NewRedisStoreFromClient(client, config.Prefix, config.TTL)
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Save implements workflow.ReportStore.
func (s *RedisStore) Save(ctx context.Context, report *workflow.Report) error {
	raw, err := encode(report)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(report.SessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// Load implements workflow.ReportStore.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (*workflow.Report, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("report %s: %w", sessionID, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return decode(raw)
}

// Delete removes a report.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}
