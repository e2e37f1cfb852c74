package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/nidhisingh5958/inventory-pulse/internal/config"
)

// Store tracks processed idempotency keys so at-least-once alert delivery
// collapses to exactly-once handling.
type Store interface {
	// FirstSeen atomically marks the key and reports whether this was the
	// first sighting within the TTL window.
	FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisStore implements Store on Redis SETNX
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// MemoryStore is the fallback when Redis is unreachable. Keys are local to
// the process, which still dedups redeliveries within one consumer.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewStore connects to Redis, falling back to an in-memory store when the
// connection cannot be established.
func NewStore(cfg *config.Config, logger *zap.Logger) Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		PoolSize: 10,
		// Timeouts
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		// Retry settings
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("Failed to connect to Redis, using in-memory dedup store",
			zap.String("host", cfg.RedisHost),
			zap.String("port", cfg.RedisPort),
			zap.Error(err),
		)
		rdb.Close()
		return NewMemoryStore()
	}

	logger.Info("Redis dedup store initialized",
		zap.String("host", cfg.RedisHost),
		zap.String("port", cfg.RedisPort),
		zap.Int("db", cfg.RedisDB),
	)

	return &RedisStore{client: rdb, logger: logger}
}

func (s *RedisStore) FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, "dedup:"+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return ok, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// NewMemoryStore creates an in-memory dedup store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]time.Time)}
}

func (s *MemoryStore) FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expires, ok := s.seen[key]; ok && now.Before(expires) {
		return false, nil
	}

	// drop whatever has expired while we are here
	for k, exp := range s.seen {
		if now.After(exp) {
			delete(s.seen, k)
		}
	}

	s.seen[key] = now.Add(ttl)
	return true, nil
}
