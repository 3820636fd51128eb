package optimizer

import (
	"context"
	"sync"
	"time"
)

// DefaultVolatility is served when no cached value exists and the feed is
// unreachable (spec §4.7/§7).
const DefaultVolatility = 50.0

const volatilityCacheTTL = 60 * time.Second

// VolatilityFeed fetches a single 0-100 volatility score from an external
// source. Implementations are expected to be rate-limited; Client wraps one
// with the cache-then-fetch-then-cache discipline spec §7 requires.
type VolatilityFeed interface {
	FetchVolatility(ctx context.Context) (float64, error)
}

// RateLimitedError marks a VolatilityFeed failure as a 429: Client serves
// the stale cache instead of propagating it.
type RateLimitedError struct {
	Err error
}

func (e *RateLimitedError) Error() string { return "volatility feed rate limited: " + e.Err.Error() }
func (e *RateLimitedError) Unwrap() error { return e.Err }

// VolatilityClient wraps a VolatilityFeed with a 60s cache that is served
// even when expired on a 429, exactly mirroring
// markets.CachedMetadataClient's cache-then-fetch-then-cache shape.
type VolatilityClient struct {
	feed VolatilityFeed

	mu        sync.Mutex
	value     float64
	fetchedAt time.Time
	haveValue bool
}

// NewVolatilityClient wraps feed with the spec's caching policy.
func NewVolatilityClient(feed VolatilityFeed) *VolatilityClient {
	return &VolatilityClient{feed: feed}
}

// Get returns the current volatility score, honoring the 60s TTL, the
// stale-on-429 fallback, and the 50.0 default when nothing is cached.
func (c *VolatilityClient) Get(ctx context.Context) float64 {
	c.mu.Lock()
	fresh := c.haveValue && time.Since(c.fetchedAt) < volatilityCacheTTL
	cached := c.value
	haveValue := c.haveValue
	c.mu.Unlock()

	if fresh {
		return cached
	}

	v, err := c.feed.FetchVolatility(ctx)
	if err != nil {
		if haveValue {
			return cached
		}
		return DefaultVolatility
	}

	c.mu.Lock()
	c.value = v
	c.fetchedAt = time.Now()
	c.haveValue = true
	c.mu.Unlock()

	return v
}
