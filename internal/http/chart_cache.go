package http

import (
	"bytes"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"saralfin/internal/cache"
)

// chartCache keeps rendered PNGs keyed by chart, store revision and reference
// day. Concurrent misses for one key share a single render.
type chartCache struct {
	lru     *cache.LRUCache[[]byte]
	group   singleflight.Group
	renders atomic.Int64
}

func newChartCache(maxSize int, ttl time.Duration) *chartCache {
	return &chartCache{lru: cache.NewLRUCache[[]byte](maxSize, ttl)}
}

func chartKey(name string, revision uint64, day string) string {
	return fmt.Sprintf("%s:%d:%s", name, revision, day)
}

// get returns the cached image for key or renders it. Render errors are not
// cached.
func (c *chartCache) get(key string, render func(io.Writer) error) ([]byte, error) {
	if b, ok := c.lru.Get(key); ok {
		return b, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if b, ok := c.lru.Get(key); ok {
			return b, nil
		}
		var buf bytes.Buffer
		if err := render(&buf); err != nil {
			return nil, err
		}
		c.renders.Add(1)
		b := buf.Bytes()
		c.lru.Set(key, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
