package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Chetan2520/india-food-court/internal/cart"
	"github.com/Chetan2520/india-food-court/internal/geo"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps client session state (cart, last location) in Redis, for
// storefront deployments that share carts between devices. Keys slide their
// expiry on every write.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &SessionStore{client: client, ttl: ttl}
}

// RedisSession satisfies cart.Store and storefront.LocationStore.
type RedisSession struct {
	store *SessionStore
	id    string
}

func (s *SessionStore) Session(id string) *RedisSession {
	return &RedisSession{store: s, id: id}
}

func sessionKey(id, key string) string {
	return fmt.Sprintf("session:%s:%s", id, key)
}

func (r *RedisSession) LoadCart(ctx context.Context) ([]cart.Line, error) {
	data, err := r.store.client.Get(ctx, sessionKey(r.id, "cart")).Bytes()
	if errors.Is(err, redis.Nil) {
		return []cart.Line{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var lines []cart.Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return lines, nil
}

func (r *RedisSession) SaveCart(ctx context.Context, lines []cart.Line) error {
	if lines == nil {
		lines = []cart.Line{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := r.store.client.Set(ctx, sessionKey(r.id, "cart"), data, r.store.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// ClearCart drops the stored cart of session id.
func (s *SessionStore) ClearCart(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id, "cart")).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisSession) LoadLocation(ctx context.Context) (geo.Coordinate, bool, error) {
	data, err := r.store.client.Get(ctx, sessionKey(r.id, "userLocation")).Bytes()
	if errors.Is(err, redis.Nil) {
		return geo.Coordinate{}, false, nil
	}
	if err != nil {
		return geo.Coordinate{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var c geo.Coordinate
	if err := json.Unmarshal(data, &c); err != nil {
		return geo.Coordinate{}, false, fmt.Errorf("unmarshal location failed: %w", err)
	}
	return c, true, nil
}

func (r *RedisSession) SaveLocation(ctx context.Context, c geo.Coordinate) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal location failed: %w", err)
	}
	if err := r.store.client.Set(ctx, sessionKey(r.id, "userLocation"), data, r.store.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisSession) ClearLocation(ctx context.Context) error {
	if err := r.store.client.Del(ctx, sessionKey(r.id, "userLocation")).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
