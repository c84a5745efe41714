package airports

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/md80av8r/propilot-core/internal/metrics"
)

// CachedDirectory wraps a Directory with a TTL cache. Concurrent
// lookups for the same code collapse into one underlying query; misses
// are cached too, so repeated lookups of a bogus code stay cheap.
type CachedDirectory struct {
	inner   Directory
	cache   *cache.Cache
	group   singleflight.Group
	ttl     time.Duration
	metrics *metrics.MetricsRegistry
}

var _ Directory = (*CachedDirectory)(nil)

func NewCachedDirectory(inner Directory, ttl time.Duration, reg *metrics.MetricsRegistry) *CachedDirectory {
	return &CachedDirectory{
		inner:   inner,
		cache:   cache.New(ttl, 2*ttl),
		ttl:     ttl,
		metrics: reg,
	}
}

func (d *CachedDirectory) Lookup(ctx context.Context, code string) (*Airport, error) {
	key := strings.ToUpper(strings.TrimSpace(code))
	if key == "" {
		return nil, nil
	}

	if val, found := d.cache.Get(key); found {
		d.count("cache_hit")
		ap, _ := val.(*Airport)
		return ap, nil
	}

	v, err, _ := d.group.Do(key, func() (interface{}, error) {
		started := time.Now()
		ap, err := d.inner.Lookup(ctx, key)
		if err != nil {
			d.count("error")
			return nil, err
		}
		if d.metrics != nil {
			d.metrics.LookupDuration.WithLabelValues("db").Observe(time.Since(started).Seconds())
		}
		if ap == nil {
			d.count("miss")
		} else {
			d.count("db_hit")
		}
		d.cache.Set(key, ap, d.ttl)
		return ap, nil
	})
	if err != nil {
		return nil, err
	}
	ap, _ := v.(*Airport)
	return ap, nil
}

func (d *CachedDirectory) count(outcome string) {
	if d.metrics != nil {
		d.metrics.AirportLookupsTotal.WithLabelValues(outcome).Inc()
	}
}
