package cache

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"usha_storefront/internal/models"
	"usha_storefront/internal/session"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

type countingSource struct {
	products  atomic.Int32
	discounts atomic.Int32
}

func (s *countingSource) ListProducts(context.Context, session.Context) ([]models.Product, error) {
	s.products.Add(1)
	return []models.Product{
		{ID: 1, Name: "Mug", Price: decimal.NewFromInt(1000), IsActive: true},
		{ID: 2, Name: "Ancien mug", Price: decimal.NewFromInt(800), IsActive: false},
	}, nil
}

func (s *countingSource) ListDiscounts(context.Context, session.Context) ([]models.Discount, error) {
	s.discounts.Add(1)
	return []models.Discount{
		{ID: 1, Code: "AVURUDU", IsActive: true, EndDate: time.Now().Add(24 * time.Hour)},
		{ID: 2, Code: "EXPIRED", IsActive: true, EndDate: time.Now().Add(-time.Hour)},
		{ID: 3, Code: "OFF", IsActive: false},
	}, nil
}

func TestCatalog_WithoutRedis(t *testing.T) {
	src := &countingSource{}
	cat := NewCatalog(src, nil, nil)
	ctx := context.Background()

	products, err := cat.Products(ctx, session.Context{})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Mug", products[0].Name)

	_, err = cat.Products(ctx, session.Context{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.products.Load())

	discounts, err := cat.Discounts(ctx, session.Context{})
	require.NoError(t, err)
	require.Len(t, discounts, 1)
	assert.Equal(t, "AVURUDU", discounts[0].Code)
}

func TestCatalog_CachesInRedis(t *testing.T) {
	client := getRedisClient(t)
	r := NewRedis(client)
	src := &countingSource{}
	cat := NewCatalog(src, r, nil)
	ctx := context.Background()
	require.NoError(t, cat.Invalidate(ctx))
	t.Cleanup(func() { _ = cat.Invalidate(context.Background()) })

	for range 3 {
		products, err := cat.Products(ctx, session.Context{})
		require.NoError(t, err)
		assert.Len(t, products, 1)
	}
	assert.Equal(t, int32(1), src.products.Load())
}

func TestRedis_RateLimitCounter(t *testing.T) {
	client := getRedisClient(t)
	r := NewRedis(client)
	ctx := context.Background()
	key := "ratelimit:test:" + time.Now().Format(time.RFC3339Nano)
	t.Cleanup(func() { client.Del(context.Background(), key) })

	for want := int64(1); want <= 3; want++ {
		n, err := r.IncrementRateLimit(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0)
}

func TestRedis_CartPubSub(t *testing.T) {
	client := getRedisClient(t)
	r := NewRedis(client)
	ctx := context.Background()

	sub := r.SubscribeCart(ctx, 7)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, r.CartChanged(ctx, 7, models.Cart{ID: 7, Items: []models.CartItem{{ID: 1, ProductID: 1, Quantity: 2}}}))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "cart:7", msg.Channel)
		assert.Contains(t, msg.Payload, `"quantity":2`)
	case <-time.After(2 * time.Second):
		t.Fatal("aucun message reçu")
	}
}
