package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	redisclient "github.com/Muhammad3111/elektromart-backend/pkg/redis"
)

// Carts older than this are considered abandoned and expire on their own.
const cartTTL = 30 * 24 * time.Hour

// Store abstracts cart persistence so the service can run against Redis in
// production and an in-memory map in tests.
type Store interface {
	Load(ctx context.Context, userID uuid.UUID) ([]Item, error)
	Save(ctx context.Context, userID uuid.UUID, items []Item) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartBackend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(userID string) string
}

type redisStore struct {
	backend cartBackend
}

// NewRedisStore builds the production cart store on top of the shared Redis client.
func NewRedisStore(client *redisclient.Client) (Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &redisStore{backend: client}, nil
}

func (s *redisStore) Load(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	raw, err := s.backend.Get(ctx, s.backend.CartKey(userID.String()))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return items, nil
}

func (s *redisStore) Save(ctx context.Context, userID uuid.UUID, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.backend.Set(ctx, s.backend.CartKey(userID.String()), payload, cartTTL); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *redisStore) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.backend.Del(ctx, s.backend.CartKey(userID.String())); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// MemoryStore keeps carts in a process-local map. Test double for Store.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[uuid.UUID][]Item
}

// NewMemoryStore builds an empty in-memory cart store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[uuid.UUID][]Item)}
}

func (s *MemoryStore) Load(_ context.Context, userID uuid.UUID) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.carts[userID]
	out := make([]Item, len(items))
	copy(out, items)
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, userID uuid.UUID, items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]Item, len(items))
	copy(stored, items)
	s.carts[userID] = stored
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	return nil
}
