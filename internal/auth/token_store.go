package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/etbur/eschool-portal/internal/models"
	appErrors "github.com/etbur/eschool-portal/pkg/errors"
)

// TokenStore keeps the credentials of the signed-in user.
// Get returns appErrors.ErrNoCredentials when nothing is stored.
type TokenStore interface {
	Get(ctx context.Context) (*models.Credentials, error)
	Set(ctx context.Context, creds models.Credentials) error
	Clear(ctx context.Context) error
}

// MemoryTokenStore holds credentials for the lifetime of the process.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	creds *models.Credentials
}

// NewMemoryTokenStore returns an empty in-process store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Get returns a copy of the stored credentials.
func (s *MemoryTokenStore) Get(context.Context) (*models.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return nil, appErrors.ErrNoCredentials
	}
	creds := *s.creds
	return &creds, nil
}

// Set replaces the stored credentials.
func (s *MemoryTokenStore) Set(_ context.Context, creds models.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = &creds
	return nil
}

// Clear removes the stored credentials.
func (s *MemoryTokenStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
	return nil
}

// RedisTokenStore persists credentials as JSON under a single key so they survive gateway restarts.
type RedisTokenStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisTokenStore builds a store writing to "<prefix>:credentials".
func NewRedisTokenStore(client *redis.Client, prefix string, logger *zap.Logger) *RedisTokenStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "eschool-portal"
	}
	return &RedisTokenStore{client: client, key: prefix + ":credentials", logger: logger}
}

// Key returns the Redis key used for the credentials.
func (s *RedisTokenStore) Key() string {
	return s.key
}

// Get loads and decodes the stored credentials.
func (s *RedisTokenStore) Get(ctx context.Context) (*models.Credentials, error) {
	if s.client == nil {
		return nil, appErrors.ErrNoCredentials
	}

	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrNoCredentials
		}
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}

	var creds models.Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("unmarshal credentials for %s: %w", s.key, err)
	}
	return &creds, nil
}

// Set stores the credentials without expiry; the session timer bounds their lifetime.
func (s *RedisTokenStore) Set(ctx context.Context, creds models.Credentials) error {
	if s.client == nil {
		return nil
	}

	payload, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshal credentials for %s: %w", s.key, err)
	}
	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// Clear deletes the stored credentials.
func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		s.logger.Warn("failed to clear credentials", zap.String("key", s.key), zap.Error(err))
		return fmt.Errorf("redis delete %s: %w", s.key, err)
	}
	return nil
}
