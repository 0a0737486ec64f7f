package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/contactbridge/contactbridge/internal/brevo"
)

const (
	listsKeyPrefix = "brevo:lists:"

	// DefaultListsTTL is the TTL for cached Brevo list pages.
	DefaultListsTTL = 5 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// listsKey builds the key for one enumeration window.
func listsKey(pageSize, offset int) string {
	return listsKeyPrefix + strconv.Itoa(pageSize) + ":" + strconv.Itoa(offset)
}

// GetLists returns cached lists for the window, or ErrCacheMiss.
func (c *Cache) GetLists(ctx context.Context, pageSize, offset int) ([]brevo.List, error) {
	data, err := c.client.Get(ctx, listsKey(pageSize, offset)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get lists: %w", err)
	}

	var lists []brevo.List
	if err := json.Unmarshal(data, &lists); err != nil {
		// Corrupted entry - treat as miss
		return nil, ErrCacheMiss
	}
	if lists == nil {
		lists = []brevo.List{}
	}
	return lists, nil
}

// SetLists caches lists for the window.
func (c *Cache) SetLists(ctx context.Context, pageSize, offset int, lists []brevo.List, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultListsTTL
	}
	if lists == nil {
		lists = []brevo.List{}
	}

	data, err := json.Marshal(lists)
	if err != nil {
		return fmt.Errorf("marshal lists: %w", err)
	}

	if err := c.client.Set(ctx, listsKey(pageSize, offset), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache lists: %w", err)
	}
	return nil
}

// InvalidateLists removes every cached list window. Subscriber counts
// change whenever a contact joins a list.
func (c *Cache) InvalidateLists(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, listsKeyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan list keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete list keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
