package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/tutorconnect/payment-bridge/internal/config"
)

const eventKeyPrefix = "stripe:event:"

// NewRedisClient connects to Redis. Returns nil, nil when no address is configured.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, logger *logrus.Logger) (*redis.Client, error) {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not set, webhook event ledger disabled")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.WithField("addr", cfg.Addr).Info("Connected to Redis")
	return client, nil
}

// RedisEventLedger records processed gateway event ids with a TTL
type RedisEventLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisEventLedger creates a ledger on top of client
func NewRedisEventLedger(client *redis.Client, ttl time.Duration) *RedisEventLedger {
	return &RedisEventLedger{client: client, ttl: ttl}
}

// Seen reports whether eventID was already processed
func (l *RedisEventLedger) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := l.client.Exists(ctx, eventKey(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check event %s: %w", eventID, err)
	}
	return n > 0, nil
}

// MarkProcessed records eventID as processed
func (l *RedisEventLedger) MarkProcessed(ctx context.Context, eventID string) error {
	if err := l.client.Set(ctx, eventKey(eventID), time.Now().UTC().Format(time.RFC3339), l.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark event %s: %w", eventID, err)
	}
	return nil
}

func eventKey(eventID string) string {
	return eventKeyPrefix + eventID
}
