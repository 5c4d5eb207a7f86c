// Package cache stores generated schedules between requests.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"groovecal/internal/config"
	appLog "groovecal/internal/log"
)

// KeyPrefix namespaces every key written by this process.
const KeyPrefix = "groovecal:"

// Cache is a TTL byte cache. Misses and backend failures are both reported
// as a miss; callers recompute.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string)
	Close() error
}

// New builds the cache selected by cfg.Backend.
func New(cfg config.CacheConfig) Cache {
	switch cfg.Backend {
	case "redis":
		return NewRedis(RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case "none":
		appLog.Info("schedule cache disabled")
		return Nop{}
	default:
		return NewMemory()
	}
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Cache guarded by a RWMutex. Expired entries are
// dropped lazily on read and on Set.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry

	// Now is the clock; tests may replace it.
	Now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		Now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	now := m.Now()

	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !now.Before(e.expiresAt) {
		m.mu.Lock()
		if cur, still := m.entries[key]; still && !now.Before(cur.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	now := m.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.entries[key] = entry{value: value, expiresAt: now.Add(ttl)}
}

func (m *Memory) DeletePrefix(_ context.Context, prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) Close() error { return nil }

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Nop) Set(context.Context, string, []byte, time.Duration) {}
func (Nop) DeletePrefix(context.Context, string) {}
func (Nop) Close() error { return nil }
