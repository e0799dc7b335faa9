package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// WebhookDedupStore remembers which provider event ids have been applied
type WebhookDedupStore interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// RedisDedupStore keeps processed event ids in redis with a TTL
type RedisDedupStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisDedupStore creates a redis backed dedup store
func NewRedisDedupStore(client *redis.Client, prefix string, ttl time.Duration) *RedisDedupStore {
	return &RedisDedupStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// NewRedisClient parses a redis:// URL and verifies the connection
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (s *RedisDedupStore) key(eventID string) string {
	return s.prefix + eventID
}

// IsProcessed reports whether the event id has been marked
func (s *RedisDedupStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check webhook event %s: %w", eventID, err)
	}
	return n > 0, nil
}

// MarkProcessed records the event id until the TTL expires
func (s *RedisDedupStore) MarkProcessed(ctx context.Context, eventID string) error {
	if err := s.client.SetNX(ctx, s.key(eventID), time.Now().UTC().Format(time.RFC3339), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark webhook event %s: %w", eventID, err)
	}
	return nil
}

const defaultMemoryDedupTTL = 72 * time.Hour

// MemoryDedupStore is the single-process fallback used when redis is not configured.
// Expired ids are swept on write, at most once per ttl.
type MemoryDedupStore struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryDedupStore creates an in-process dedup store. A non-positive ttl
// falls back to 72h so the map stays bounded.
func NewMemoryDedupStore(ttl time.Duration) *MemoryDedupStore {
	if ttl <= 0 {
		ttl = defaultMemoryDedupTTL
	}
	return &MemoryDedupStore{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *MemoryDedupStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.seen[eventID]
	if !ok {
		return false, nil
	}
	if s.now().Sub(at) > s.ttl {
		delete(s.seen, eventID)
		return false, nil
	}
	return true, nil
}

func (s *MemoryDedupStore) MarkProcessed(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.ttl {
		for id, at := range s.seen {
			if now.Sub(at) > s.ttl {
				delete(s.seen, id)
			}
		}
		s.lastSweep = now
	}
	s.seen[eventID] = now
	return nil
}

// Len returns the number of tracked event ids
func (s *MemoryDedupStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
