// Package loader provides the back-source abstraction used by the view-state
// controllers: a Loader fetches one value by key, and CachedLoader keeps
// recent results for a short TTL so repeated detail views skip the network.
//
// Package loader 提供视图状态控制器使用的回源抽象：Loader按键获取一个值，
// CachedLoader在短TTL内保留最近的结果，使重复的详情视图跳过网络。
package loader

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader is the interface that wraps the basic Load method.
//
// Load retrieves data for the given key from a data source.
//
// Loader 是包装基本Load方法的接口。
type Loader[T any] interface {
	Load(ctx context.Context, key string) (T, error)
}

// LoaderFunc is a function type that implements the Loader interface.
//
// LoaderFunc 是实现Loader接口的函数类型。
type LoaderFunc[T any] func(ctx context.Context, key string) (T, error)

// Load calls the function itself.
func (f LoaderFunc[T]) Load(ctx context.Context, key string) (T, error) {
	return f(ctx, key)
}

// CachedLoader wraps a loader with a local cache to reduce load on the backend.
// A non-positive TTL disables caching and every Load goes to the backend.
// Errors are never cached. Concurrent misses for one key share a single
// backend call.
//
// CachedLoader 用本地缓存包装加载器，以减轻后端负载。
// 非正TTL禁用缓存，每次Load都会访问后端。错误永远不会被缓存。
// 同一键的并发未命中共享一次后端调用。
type CachedLoader[T any] struct {
	backend Loader[T]
	ttl     time.Duration
	now     func() time.Time
	group   singleflight.Group

	mu    sync.RWMutex
	items map[string]cachedItem[T]

	hits   uint64
	misses uint64
}

// cachedItem represents an item in the local cache with its expiration time.
type cachedItem[T any] struct {
	value      T
	expiration time.Time
}

// NewCachedLoader creates a new CachedLoader with the given backend loader and TTL.
//
// NewCachedLoader 使用给定的后端加载器和TTL创建一个新的CachedLoader。
func NewCachedLoader[T any](backend Loader[T], ttl time.Duration) *CachedLoader[T] {
	return &CachedLoader[T]{
		backend: backend,
		ttl:     ttl,
		now:     time.Now,
		items:   make(map[string]cachedItem[T]),
	}
}

// Load attempts to retrieve the value from the local cache first.
// If the value is not in the cache or has expired, it loads from the backend.
//
// Load 首先尝试从本地缓存检索值。
// 如果值不在缓存中或已过期，它会从后端加载。
func (c *CachedLoader[T]) Load(ctx context.Context, key string) (T, error) {
	c.mu.Lock()
	item, ok := c.items[key]
	if c.ttl > 0 && ok && c.now().Before(item.expiration) {
		c.hits++
		c.mu.Unlock()
		return item.value, nil
	}
	c.misses++
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		value, err := c.backend.Load(ctx, key)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			delete(c.items, key)
			return value, err
		}
		if c.ttl > 0 {
			c.items[key] = cachedItem[T]{value: value, expiration: c.now().Add(c.ttl)}
		}
		return value, nil
	})
	value, _ := v.(T)
	return value, err
}

// Invalidate drops a single key. A load already in flight for it is not
// shared with later callers.
func (c *CachedLoader[T]) Invalidate(key string) {
	c.group.Forget(key)
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Purge drops every cached entry.
func (c *CachedLoader[T]) Purge() {
	c.mu.Lock()
	c.items = make(map[string]cachedItem[T])
	c.mu.Unlock()
}

// SetTTL changes the TTL for future loads. Existing entries keep their expiry;
// a non-positive TTL also purges them.
func (c *CachedLoader[T]) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	c.ttl = ttl
	if ttl <= 0 {
		c.items = make(map[string]cachedItem[T])
	}
	c.mu.Unlock()
}

// Stats returns hit and miss counts.
func (c *CachedLoader[T]) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
