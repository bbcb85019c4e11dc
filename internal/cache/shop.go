package cache

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/Chetan2520/india-food-court/internal/geo"
	"github.com/Chetan2520/india-food-court/internal/shop"
	"github.com/redis/go-redis/v9"
)

const shopKey = "shop:location"

// ShopCache keeps the singleton shop in a Redis hash (name, lat, lng). The
// expiry is spread by up to jitter so replicas do not refill it together.
type ShopCache struct {
	client *redis.Client
	ttl    time.Duration
	jitter time.Duration
}

// NewShopCache falls back to a 15 minute ttl; jitter <= 0 disables spreading.
func NewShopCache(client *redis.Client, ttl, jitter time.Duration) *ShopCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ShopCache{client: client, ttl: ttl, jitter: jitter}
}

func (c *ShopCache) Get(ctx context.Context) (*shop.Shop, error) {
	fields, err := c.client.HGetAll(ctx, shopKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}
	if len(fields) == 0 {
		return nil, shop.ErrCacheMiss
	}

	lat, err := strconv.ParseFloat(fields["lat"], 64)
	if err != nil {
		return nil, fmt.Errorf("cached shop lat %q: %w", fields["lat"], err)
	}
	lng, err := strconv.ParseFloat(fields["lng"], 64)
	if err != nil {
		return nil, fmt.Errorf("cached shop lng %q: %w", fields["lng"], err)
	}
	loc := geo.Coordinate{Latitude: lat, Longitude: lng}
	if !loc.Valid() {
		return nil, fmt.Errorf("cached shop location out of range: %v", loc)
	}
	return &shop.Shop{Name: fields["name"], Location: loc}, nil
}

func (c *ShopCache) Set(ctx context.Context, s *shop.Shop) error {
	ttl := c.ttl
	if c.jitter > 0 {
		ttl += rand.N(c.jitter)
	}

	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, shopKey)
		p.HSet(ctx, shopKey,
			"name", s.Name,
			"lat", strconv.FormatFloat(s.Location.Latitude, 'f', -1, 64),
			"lng", strconv.FormatFloat(s.Location.Longitude, 'f', -1, 64))
		p.Expire(ctx, shopKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis cache shop failed: %w", err)
	}
	return nil
}

func (c *ShopCache) Delete(ctx context.Context) error {
	if err := c.client.Del(ctx, shopKey).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
