package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopcore/go-cart-checkout/internal/cart"
	"github.com/shopcore/go-cart-checkout/internal/shop"
)

// CartCache implements cart.Cache on Redis. TTL is jittered so a burst of
// sessions created together does not expire together.
type CartCache struct {
	client *redis.Client
}

func NewCartCache(client *redis.Client) *CartCache {
	return &CartCache{client: client}
}

func (c *CartCache) Get(ctx context.Context, sessionID string) (*shop.CartView, error) {
	key := fmt.Sprintf(KeyCartView, sessionID)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cart.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var view shop.CartView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("unmarshal cart view: %w", err)
	}
	return &view, nil
}

func (c *CartCache) Set(ctx context.Context, sessionID string, view *shop.CartView) error {
	key := fmt.Sprintf(KeyCartView, sessionID)
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal cart view: %w", err)
	}
	jitter := time.Duration(rand.Intn(60)) * time.Second
	if err := c.client.Set(ctx, key, data, TTLCartView+jitter).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *CartCache) Delete(ctx context.Context, sessionID string) error {
	key := fmt.Sprintf(KeyCartView, sessionID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
