package jwks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// Cache holds one JWKS client per endpoint URL for the whole process.
// Distributors pointing at the same identity provider share the underlying
// key set and its background refresh.
type Cache struct {
	mu     sync.RWMutex
	group  singleflight.Group
	keys   map[string]keyfunc.Keyfunc
	logger *slog.Logger
}

func NewCache(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		keys:   make(map[string]keyfunc.Keyfunc),
		logger: logger,
	}
}

// Provider returns a key resolver bound to one JWKS URL. The first use of a
// URL fetches the key set; concurrent first uses collapse into one fetch.
func (c *Cache) Provider(url string) *Provider {
	return &Provider{cache: c, url: url}
}

// Invalidate drops the cached key set for a URL so the next resolution
// refetches it.
func (c *Cache) Invalidate(url string) {
	c.mu.Lock()
	delete(c.keys, url)
	c.mu.Unlock()
}

func (c *Cache) resolve(ctx context.Context, url string) (keyfunc.Keyfunc, error) {
	c.mu.RLock()
	cached, ok := c.keys[url]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	value, err, _ := c.group.Do(url, func() (any, error) {
		c.mu.RLock()
		cached, ok := c.keys[url]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		created, err := keyfunc.NewDefaultCtx(ctx, []string{url})
		if err != nil {
			return nil, fmt.Errorf("jwks: fetch key set from %s: %w", url, err)
		}
		c.mu.Lock()
		c.keys[url] = created
		c.mu.Unlock()

		c.logger.Info("jwks key set loaded",
			"event", "jwks_loaded",
			"module", "internal/platform/jwks",
			"layer", "platform",
			"url", url,
		)
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(keyfunc.Keyfunc), nil
}

// Provider adapts the cache to a single endpoint.
type Provider struct {
	cache *Cache
	url   string
}

func (p *Provider) Keyfunc(ctx context.Context) (jwt.Keyfunc, error) {
	keys, err := p.cache.resolve(ctx, p.url)
	if err != nil {
		return nil, err
	}
	return keys.Keyfunc, nil
}
