package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrKeyNotFound is returned by KV.Get for a missing or expired key.
var ErrKeyNotFound = errors.New("key not found")

// KV is the persisted key-value storage behind the roster, sessions and attendance codes.
// Writes replace the whole value; there are no transactions across keys.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A zero ttl keeps the key until deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisKV implements KV on plain redis strings.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV builds a KV on an existing client.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (k *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := k.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	return val, err
}

func (k *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return k.client.Set(ctx, key, value, ttl).Err()
}

func (k *RedisKV) Delete(ctx context.Context, key string) error {
	return k.client.Del(ctx, key).Err()
}

// MemoryKV is a process-local KV for dev/testing.
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	now     func() time.Time
}

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryKV creates an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string]memEntry), now: time.Now}
}

func (k *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	k.mu.RLock()
	e, ok := k.entries[key]
	k.mu.RUnlock()
	if !ok || (!e.expiresAt.IsZero() && !k.now().Before(e.expiresAt)) {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (k *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = k.now().Add(ttl)
	}
	k.mu.Lock()
	k.entries[key] = e
	k.mu.Unlock()
	return nil
}

func (k *MemoryKV) Delete(_ context.Context, key string) error {
	k.mu.Lock()
	delete(k.entries, key)
	k.mu.Unlock()
	return nil
}
