package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rrens/zara-ai/internal/persistence"
	"github.com/redis/go-redis/v9"
)

const kvPrefix = "zara:kv:"

// KV implements persistence.KV on Redis strings. Values never expire.
type KV struct {
	client *Client
}

// NewKV creates a new Redis-backed KV
func NewKV(client *Client) *KV {
	return &KV{client: client}
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := k.client.rdb.Get(ctx, kvPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	return k.client.rdb.Set(ctx, kvPrefix+key, value, 0).Err()
}

func (k *KV) Remove(ctx context.Context, key string) error {
	return k.client.rdb.Del(ctx, kvPrefix+key).Err()
}

// Ping verifies Redis connectivity
func (k *KV) Ping(ctx context.Context) error {
	return k.client.Ping(ctx)
}
