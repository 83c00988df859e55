// Package rdx wraps the redis client used for the trending cache, the
// revoked-session hash and the engagement pub/sub channel. Every helper
// tolerates a nil connection so the server runs without redis.
package rdx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var Conn *redis.Client

// Init dials redis. Callers may ignore the error and keep Conn nil; every
// path through this package degrades to the backing store.
func Init(addr string) error {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return err
	}
	Conn = client
	return nil
}

func RdxSet(ctx context.Context, key, value string, ttl time.Duration) error {
	if Conn == nil {
		return redis.ErrClosed
	}
	return Conn.Set(ctx, key, value, ttl).Err()
}

func RdxGet(ctx context.Context, key string) (string, error) {
	if Conn == nil {
		return "", redis.ErrClosed
	}
	return Conn.Get(ctx, key).Result()
}

func RdxDel(ctx context.Context, key string) error {
	if Conn == nil {
		return redis.ErrClosed
	}
	return Conn.Del(ctx, key).Err()
}

func RdxHset(ctx context.Context, hash, field, value string) error {
	if Conn == nil {
		return redis.ErrClosed
	}
	return Conn.HSet(ctx, hash, field, value).Err()
}

func RdxHdel(ctx context.Context, hash, field string) error {
	if Conn == nil {
		return redis.ErrClosed
	}
	return Conn.HDel(ctx, hash, field).Err()
}

func Publish(ctx context.Context, channel string, payload []byte) error {
	if Conn == nil {
		return redis.ErrClosed
	}
	return Conn.Publish(ctx, channel, payload).Err()
}

// IsMiss reports whether err is a plain cache miss rather than a failure.
// A nil connection reads as a miss so callers degrade to the store.
func IsMiss(err error) bool {
	return err == redis.Nil || err == redis.ErrClosed
}
