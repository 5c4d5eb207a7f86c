package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	appLog "groovecal/internal/log"
)

// RedisOptions configures the Redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// DialTimeout bounds the startup ping; zero means 5s.
	DialTimeout time.Duration
}

// Redis is a Cache backed by Redis. If the server cannot be reached at
// startup, or a command later fails, the cache disables itself and every
// call becomes a miss.
type Redis struct {
	client *redis.Client

	mu       sync.RWMutex
	disabled bool
}

// NewRedis connects to Redis. It never fails; an unreachable server yields
// a disabled cache.
func NewRedis(opts RedisOptions) *Redis {
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		appLog.Error("redis cache unavailable, running without caching", err, "addr", opts.Addr)
		_ = client.Close()
		return &Redis{disabled: true}
	}

	appLog.Info("redis cache initialized", "addr", opts.Addr)
	return &Redis{client: client}
}

// Available reports whether the cache is operational.
func (r *Redis) Available() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.disabled && r.client != nil
}

func (r *Redis) handleError(err error, op string) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}
	appLog.Error("redis cache operation failed, disabling cache", err, "operation", op)
	r.mu.Lock()
	r.disabled = true
	r.mu.Unlock()
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	if !r.Available() {
		return nil, false
	}
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		r.handleError(err, "get")
		return nil, false
	}
	return data, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if !r.Available() || ttl <= 0 {
		return
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.handleError(err, "set")
	}
}

// DeletePrefix uses SCAN rather than KEYS so large keyspaces do not block
// the server.
func (r *Redis) DeletePrefix(ctx context.Context, prefix string) {
	if !r.Available() {
		return
	}

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			r.handleError(err, "scan")
			return
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				r.handleError(err, "delete")
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

func (r *Redis) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
