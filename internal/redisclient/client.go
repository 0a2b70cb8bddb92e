package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"basketbay/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	recentOrdersPrefix = "recentOrders:"
	receiptPrefix      = "receipt:"
)

type Client struct {
	rdb *redis.Client
}

// NewClient connects to Redis and verifies the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// SaveRecentOrders overwrites the customer's recent-order list wholesale
func (c *Client) SaveRecentOrders(ctx context.Context, customerID string, orders []models.Order) error {
	if orders == nil {
		orders = []models.Order{}
	}
	payload, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("failed to marshal recent orders: %w", err)
	}
	if err := c.rdb.Set(ctx, recentOrdersPrefix+customerID, payload, 0).Err(); err != nil {
		return fmt.Errorf("save recent orders failed: %w", err)
	}
	return nil
}

// LoadRecentOrders returns the stored list, or an empty one if none exists.
// A corrupted value is treated as empty.
func (c *Client) LoadRecentOrders(ctx context.Context, customerID string) ([]models.Order, error) {
	raw, err := c.rdb.Get(ctx, recentOrdersPrefix+customerID).Bytes()
	if err == redis.Nil {
		return []models.Order{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load recent orders failed: %w", err)
	}

	var orders []models.Order
	if err := json.Unmarshal(raw, &orders); err != nil {
		return []models.Order{}, nil
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// ClearRecentOrders drops the customer's list
func (c *Client) ClearRecentOrders(ctx context.Context, customerID string) error {
	return c.rdb.Del(ctx, recentOrdersPrefix+customerID).Err()
}

// ClaimReceipt marks a gateway payment as being turned into an order.
// It returns false when the payment was already claimed.
func (c *Client) ClaimReceipt(ctx context.Context, paymentID string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, receiptPrefix+paymentID, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim receipt failed: %w", err)
	}
	return ok, nil
}

// ReleaseReceipt frees a claim so the shopper can retry after a failed submission
func (c *Client) ReleaseReceipt(ctx context.Context, paymentID string) error {
	return c.rdb.Del(ctx, receiptPrefix+paymentID).Err()
}
