package store

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StoreType selects the conversation store driver.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

const conversationKeyPrefix = "conversation:"

// New creates a ConversationStore for the given driver type.
// The redis driver requires WithRedisClient.
func New(storeType StoreType, opts ...Option) (ConversationStore, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	switch storeType {
	case StoreTypeMemory:
		return &memoryStore{
			conversations: make(map[string]string),
		}, nil

	case StoreTypeRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		ttl := cfg.redisTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		return &redisStore{
			client: cfg.redisClient,
			ttl:    ttl,
		}, nil

	default:
		return nil, ErrInvalidStoreType
	}
}

// memoryStore keeps conversation ids in a map; the default driver.
type memoryStore struct {
	mu            sync.RWMutex
	conversations map[string]string
}

func (s *memoryStore) Get(ctx context.Context, userKey string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversations[userKey], nil
}

func (s *memoryStore) Set(ctx context.Context, userKey, conversationID string) error {
	if conversationID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[userKey] = conversationID
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, userKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, userKey)
	return nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = nil
	return nil
}

// redisStore keeps conversation ids in Redis with a TTL refreshed on read.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func (s *redisStore) Get(ctx context.Context, userKey string) (string, error) {
	val, err := s.client.Get(ctx, conversationKeyPrefix+userKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	// Refresh TTL on read.
	_ = s.client.Expire(ctx, conversationKeyPrefix+userKey, s.ttl).Err()

	return val, nil
}

func (s *redisStore) Set(ctx context.Context, userKey, conversationID string) error {
	if conversationID == "" {
		return nil
	}
	return s.client.Set(ctx, conversationKeyPrefix+userKey, conversationID, s.ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, userKey string) error {
	return s.client.Del(ctx, conversationKeyPrefix+userKey).Err()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
