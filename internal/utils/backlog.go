package utils

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisBacklog is a FIFO of JSON items kept in a Redis list
type RedisBacklog struct {
	rdb *redis.Client
	key string
}

func NewRedisBacklog(rdb *redis.Client, key string) *RedisBacklog {
	return &RedisBacklog{rdb: rdb, key: key}
}

// Push appends item to the tail of the list
func (b *RedisBacklog) Push(ctx context.Context, item any) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return errors.Wrap(err, "marshal backlog item")
	}
	return errors.Wrap(b.rdb.RPush(ctx, b.key, raw).Err(), "push backlog item")
}

// Len returns the number of queued items
func (b *RedisBacklog) Len(ctx context.Context) (int64, error) {
	return b.rdb.LLen(ctx, b.key).Result()
}

// Drain pops items from the head and hands each raw payload to fn. An item
// whose fn fails is put back at the head and draining stops, so order holds.
func (b *RedisBacklog) Drain(ctx context.Context, fn func(raw []byte) error) (int, error) {
	n := 0
	for {
		raw, err := b.rdb.LPop(ctx, b.key).Bytes()
		if err == redis.Nil {
			return n, nil
		}
		if err != nil {
			return n, errors.Wrap(err, "pop backlog item")
		}
		if err := fn(raw); err != nil {
			if perr := b.rdb.LPush(ctx, b.key, raw).Err(); perr != nil {
				return n, errors.Wrapf(perr, "requeue backlog item after %v", err)
			}
			return n, err
		}
		n++
	}
}
