// Package linkcache memoizes discovered profile URLs per identity
// fingerprint for a bounded time window.
package linkcache

import (
	"strings"
	"time"

	"github.com/codeGROOVE-dev/sfcache"

	"github.com/sells-group/osint-cli/internal/model"
)

// DefaultTTL is the entry lifetime when none is configured.
const DefaultTTL = 900 * time.Second

// Anonymous is the fingerprint of a parameter bag with no identity fields.
const Anonymous = "anonymous"

type entry struct {
	url    string
	stored time.Time
}

// Cache is an in-process (platform, fingerprint) -> URL map with TTL. The
// backing sfcache drops entries on its own TTL; freshness on read is
// decided by the cache clock.
type Cache struct {
	ttl     time.Duration
	nowFunc func() time.Time
	mem     *sfcache.MemoryCache[string, entry]
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.nowFunc = now
	}
}

// New creates a cache. A non-positive ttl selects DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl:     ttl,
		nowFunc: time.Now,
		mem:     sfcache.New[string, entry](sfcache.TTL(ttl)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func key(platform, fingerprint string) string {
	return platform + ":" + fingerprint
}

// SetBest stores or overwrites the best URL for platform and fingerprint.
func (c *Cache) SetBest(platform, fingerprint, url string) {
	if url == "" {
		return
	}
	c.mem.Set(key(platform, fingerprint), entry{url: url, stored: c.nowFunc()})
}

// GetBest returns the stored URL if the entry is within the TTL. Expired
// entries are evicted.
func (c *Cache) GetBest(platform, fingerprint string) (string, bool) {
	k := key(platform, fingerprint)
	e, ok := c.mem.Get(k)
	if !ok {
		return "", false
	}
	if c.nowFunc().Sub(e.stored) > c.ttl {
		c.mem.Delete(k)
		return "", false
	}
	return e.url, true
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	return c.mem.Len()
}

// Fingerprint derives a cache key from the strongest identity field:
// email, then phone, then the name|location pair, else Anonymous.
func Fingerprint(params model.Params) string {
	if email := strings.ToLower(params.String(model.FieldEmail)); email != "" {
		return "email:" + email
	}
	if phone := params.String(model.FieldPhone); phone != "" {
		return "phone:" + phone
	}
	name := strings.ToLower(params.String(model.FieldName))
	loc := strings.ToLower(params.String(model.FieldLocation))
	if name != "" || loc != "" {
		return "name_loc:" + name + "|" + loc
	}
	return Anonymous
}
