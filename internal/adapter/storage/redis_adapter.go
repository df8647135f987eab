package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/pantry-tracker/internal/port"
)

const (
	keyPrefix     = "pantry:"
	quantityField = "quantity"
)

// KEYS: doc, index, seq. ARGV: name, quantity
var setDocumentScript = redis.NewScript(`
redis.call('HSET', KEYS[1], 'quantity', ARGV[2])
if not redis.call('ZSCORE', KEYS[2], ARGV[1]) then
	local seq = redis.call('INCR', KEYS[3])
	redis.call('ZADD', KEYS[2], seq, ARGV[1])
end
return 1
`)

// KEYS: doc, index, seq. ARGV: name
var incrementQuantityScript = redis.NewScript(`
local quantity = redis.call('HINCRBY', KEYS[1], 'quantity', 1)
if not redis.call('ZSCORE', KEYS[2], ARGV[1]) then
	local seq = redis.call('INCR', KEYS[3])
	redis.call('ZADD', KEYS[2], seq, ARGV[1])
end
return quantity
`)

// KEYS: doc, index. ARGV: name. Returns -1 when the document is absent.
var decrementQuantityScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'quantity')
if not current then
	return -1
end

current = tonumber(current)
if current <= 1 then
	redis.call('DEL', KEYS[1])
	redis.call('ZREM', KEYS[2], ARGV[1])
	return 0
end

return redis.call('HINCRBY', KEYS[1], 'quantity', -1)
`)

// RedisAdapter stores each document as a hash and keeps a sorted set per
// collection so scans come back in insertion order.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func docKey(collection, key string) string {
	return keyPrefix + collection + ":doc:" + key
}

func indexKey(collection string) string {
	return keyPrefix + collection + ":index"
}

func seqKey(collection string) string {
	return keyPrefix + collection + ":seq"
}

func (r *RedisAdapter) GetDocument(ctx context.Context, collection, key string) (port.Document, bool, error) {
	quantity, err := r.client.HGet(ctx, docKey(collection, key), quantityField).Int()
	if errors.Is(err, redis.Nil) {
		return port.Document{}, false, nil
	}
	if err != nil {
		return port.Document{}, false, fmt.Errorf("hget %s: %w", key, err)
	}

	return port.Document{Key: key, Data: port.DocumentData{Quantity: quantity}}, true, nil
}

func (r *RedisAdapter) SetDocument(ctx context.Context, collection, key string, data port.DocumentData) error {
	keys := []string{docKey(collection, key), indexKey(collection), seqKey(collection)}
	if err := setDocumentScript.Run(ctx, r.client, keys, key, data.Quantity).Err(); err != nil {
		return fmt.Errorf("set document %s: %w", key, err)
	}
	return nil
}

func (r *RedisAdapter) DeleteDocument(ctx context.Context, collection, key string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, docKey(collection, key))
		pipe.ZRem(ctx, indexKey(collection), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete document %s: %w", key, err)
	}
	return nil
}

func (r *RedisAdapter) ListDocuments(ctx context.Context, collection string) ([]port.Document, error) {
	names, err := r.client.ZRange(ctx, indexKey(collection), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange index: %w", err)
	}
	if len(names) == 0 {
		return []port.Document{}, nil
	}

	cmds := make([]*redis.StringCmd, len(names))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, name := range names {
			cmds[i] = pipe.HGet(ctx, docKey(collection, name), quantityField)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("hget documents: %w", err)
	}

	docs := make([]port.Document, 0, len(names))
	for i, name := range names {
		quantity, err := cmds[i].Int()
		if errors.Is(err, redis.Nil) {
			// removed between the index read and the hash read
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		docs = append(docs, port.Document{Key: name, Data: port.DocumentData{Quantity: quantity}})
	}
	return docs, nil
}

func (r *RedisAdapter) IncrementQuantity(ctx context.Context, collection, key string) (int, error) {
	keys := []string{docKey(collection, key), indexKey(collection), seqKey(collection)}
	quantity, err := incrementQuantityScript.Run(ctx, r.client, keys, key).Int()
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return quantity, nil
}

func (r *RedisAdapter) DecrementQuantity(ctx context.Context, collection, key string) (int, bool, error) {
	keys := []string{docKey(collection, key), indexKey(collection)}
	remaining, err := decrementQuantityScript.Run(ctx, r.client, keys, key).Int()
	if err != nil {
		return 0, false, fmt.Errorf("decrement %s: %w", key, err)
	}
	if remaining < 0 {
		return 0, false, nil
	}
	return remaining, true, nil
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
