package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/coop_market/internal/transport"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// payment_status:{order_id} -> PaymentStatusView JSON
const keyPaymentStatus = "payment_status:%s"

const TTLPaymentStatus = 5 * time.Minute

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatusCache(client *redis.Client) *StatusCache {
	return &StatusCache{client: client, ttl: TTLPaymentStatus}
}

func (c *StatusCache) Get(ctx context.Context, orderID string) (*transport.PaymentStatusView, error) {
	data, err := c.client.Get(ctx, statusKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var view transport.PaymentStatusView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("unmarshal payment status failed: %w", err)
	}
	return &view, nil
}

func (c *StatusCache) Set(ctx context.Context, view *transport.PaymentStatusView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal payment status failed: %w", err)
	}
	if err := c.client.Set(ctx, statusKey(view.OrderID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *StatusCache) Delete(ctx context.Context, orderID string) error {
	if err := c.client.Del(ctx, statusKey(orderID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func statusKey(orderID string) string {
	return fmt.Sprintf(keyPaymentStatus, orderID)
}
