package resilience

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
)

// RedisMirror shadows a RetryQueue's contents in Redis under one key, so a
// second dcp process (e.g. a web dashboard replica) can display retry
// queue depth without reading the first process's local file.
type RedisMirror struct {
	client *redis.Client
	key    string
}

// NewRedisMirror builds a Mirror backed by client, storing the queue
// snapshot under key.
func NewRedisMirror(client *redis.Client, key string) *RedisMirror {
	return &RedisMirror{client: client, key: key}
}

// Sync overwrites the mirrored snapshot with items.
func (m *RedisMirror) Sync(ctx context.Context, items []*RetryItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return m.client.Set(ctx, m.key, data, 0).Err()
}

// Read fetches the last-synced snapshot, for a replica that has no local
// queue file of its own.
func (m *RedisMirror) Read(ctx context.Context) ([]*RetryItem, error) {
	data, err := m.client.Get(ctx, m.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var items []*RetryItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}
