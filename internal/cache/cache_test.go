package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Chetan2520/india-food-court/internal/cart"
	"github.com/Chetan2520/india-food-court/internal/geo"
	"github.com/Chetan2520/india-food-court/internal/shop"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestShopCache_Miss(t *testing.T) {
	client, _ := setupTestRedis(t)
	c := NewShopCache(client, 15*time.Minute, 5*time.Minute)

	got, err := c.Get(context.Background())
	assert.ErrorIs(t, err, shop.ErrCacheMiss)
	assert.Nil(t, got)
}

func TestShopCache_SetGetWithJitteredTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewShopCache(client, 15*time.Minute, 5*time.Minute)
	ctx := context.Background()

	s := shop.DefaultShop()
	require.NoError(t, c.Set(ctx, &s))

	got, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, s, *got)

	ttl := mr.TTL(shopKey)
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.Less(t, ttl, 20*time.Minute)
}

func TestShopCache_CorruptFields(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng string
	}{
		{"non numeric", "north", "75.9"},
		{"out of range", "95", "75.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mr := setupTestRedis(t)
			c := NewShopCache(client, 15*time.Minute, 5*time.Minute)
			mr.HSet(shopKey, "name", "x", "lat", tt.lat, "lng", tt.lng)

			_, err := c.Get(context.Background())
			assert.Error(t, err)
			assert.NotErrorIs(t, err, shop.ErrCacheMiss)
		})
	}
}

func TestShopCache_StoredAsHash(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewShopCache(client, time.Minute, 0)

	s := shop.DefaultShop()
	require.NoError(t, c.Set(context.Background(), &s))

	assert.Equal(t, s.Name, mr.HGet(shopKey, "name"))
	assert.Equal(t, "22.755048346589977", mr.HGet(shopKey, "lat"))
	assert.Equal(t, time.Minute, mr.TTL(shopKey))
}

func TestShopCache_Delete(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewShopCache(client, 15*time.Minute, 5*time.Minute)
	ctx := context.Background()

	s := shop.DefaultShop()
	require.NoError(t, c.Set(ctx, &s))
	require.NoError(t, c.Delete(ctx))
	assert.False(t, mr.Exists(shopKey))
}

func TestShopCache_RedisDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewShopCache(client, 15*time.Minute, 5*time.Minute)
	mr.Close()

	_, err := c.Get(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, shop.ErrCacheMiss)
}

func TestRedisSession_CartRoundTrip(t *testing.T) {
	client, mr := setupTestRedis(t)
	sess := NewSessionStore(client, time.Hour).Session("abc")
	ctx := context.Background()

	lines, err := sess.LoadCart(ctx)
	require.NoError(t, err)
	assert.Empty(t, lines)

	want := []cart.Line{
		{ItemID: "p1", Name: "Paneer Tikka", OriginalPrice: 150, DiscountPrice: 120, Qty: 2},
	}
	require.NoError(t, sess.SaveCart(ctx, want))

	got, err := sess.LoadCart(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, time.Hour, mr.TTL("session:abc:cart"))
}

func TestRedisSession_SessionsAreIsolated(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewSessionStore(client, 0)
	ctx := context.Background()

	require.NoError(t, store.Session("a").SaveCart(ctx, []cart.Line{{ItemID: "p1", Qty: 1}}))

	got, err := store.Session("b").LoadCart(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisSession_Location(t *testing.T) {
	client, _ := setupTestRedis(t)
	sess := NewSessionStore(client, 0).Session("abc")
	ctx := context.Background()

	_, ok, err := sess.LoadLocation(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	loc := geo.Coordinate{Latitude: 22.76, Longitude: 75.91}
	require.NoError(t, sess.SaveLocation(ctx, loc))

	got, ok, err := sess.LoadLocation(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, loc, got)

	require.NoError(t, sess.ClearLocation(ctx))
	_, ok, err = sess.LoadLocation(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStore_ClearCart(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewSessionStore(client, 0)
	ctx := context.Background()

	require.NoError(t, store.Session("abc").SaveCart(ctx, []cart.Line{{ItemID: "p1", Qty: 2}}))
	require.NoError(t, store.Session("abc").SaveLocation(ctx, geo.Coordinate{Latitude: 1, Longitude: 2}))

	require.NoError(t, store.ClearCart(ctx, "abc"))
	assert.False(t, mr.Exists("session:abc:cart"))
	assert.True(t, mr.Exists("session:abc:userLocation"))

	got, err := store.Session("abc").LoadCart(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	// clearing an absent cart is fine
	assert.NoError(t, store.ClearCart(ctx, "nobody"))
}
