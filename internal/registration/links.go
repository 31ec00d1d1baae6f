package registration

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/raffleapp/registration/internal/metrics"
)

type linkEntry struct {
	link  string
	found bool
}

// CachedLinks memoizes community links, including districts that have none,
// for ttl. Links change only when the seeder runs. A ttl of zero or less
// disables caching.
type CachedLinks struct {
	src     LinkSource
	cache   *gocache.Cache
	metrics *metrics.Metrics
}

func NewCachedLinks(src LinkSource, ttl time.Duration, m *metrics.Metrics) *CachedLinks {
	c := &CachedLinks{src: src, metrics: m}
	// go-cache reads a zero ttl as "never expire".
	if ttl > 0 {
		c.cache = gocache.New(ttl, 2*ttl)
	}
	return c
}

func (c *CachedLinks) CommunityLink(ctx context.Context, district string) (string, bool, error) {
	if c.cache == nil {
		return c.src.CommunityLink(ctx, district)
	}
	if v, ok := c.cache.Get(district); ok {
		if e, ok := v.(linkEntry); ok {
			c.metrics.IncLinkCache(true)
			return e.link, e.found, nil
		}
	}
	c.metrics.IncLinkCache(false)

	link, found, err := c.src.CommunityLink(ctx, district)
	if err != nil {
		return "", false, err
	}
	c.cache.SetDefault(district, linkEntry{link: link, found: found})
	return link, found, nil
}
