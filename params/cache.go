package params

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goIAM/store"
)

// DefaultTTL is how long a resolved parameter is served from memory.
const DefaultTTL = 5 * time.Minute

// Source is the read side of the parameter store.
type Source interface {
	GetParameter(ctx context.Context, key string) (*store.Parameter, error)
}

// Config configures a Cache.
type Config struct {
	TTL time.Duration
	Now func() time.Time

	// OnError is called when the source fails with anything other than
	// store.ErrNotFound. The cache then serves defaults without caching them.
	OnError func(key string, err error)
}

type entry struct {
	param *store.Parameter
	at    time.Time
}

// Cache is a read-through cache over a Source. Staleness is bounded by TTL
// and by explicit invalidation on writes. It is safe for concurrent use.
type Cache struct {
	src Source
	cfg Config

	mu      sync.Mutex
	entries map[string]entry
	// gen advances on every invalidation. A read only stores its result
	// when no invalidation ran while it was in flight.
	gen uint64
}

// NewCache returns a Cache reading from src.
func NewCache(src Source, cfg Config) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cache{src: src, cfg: cfg, entries: make(map[string]entry)}
}

// Lookup returns the stored parameter for key, or nil when absent. Absence is
// cached like a value.
func (c *Cache) Lookup(ctx context.Context, key string) *store.Parameter {
	key = store.NormalizeParameterKey(key)
	now := c.cfg.Now()

	c.mu.Lock()
	e, ok := c.entries[key]
	gen := c.gen
	c.mu.Unlock()
	if ok && now.Sub(e.at) < c.cfg.TTL {
		return e.param
	}

	p, err := c.src.GetParameter(ctx, key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		p = nil
	case err != nil:
		if c.cfg.OnError != nil {
			c.cfg.OnError(key, err)
		}
		return nil
	}

	c.mu.Lock()
	if c.gen == gen {
		c.entries[key] = entry{param: p, at: now}
	}
	c.mu.Unlock()
	return p
}

// Invalidate drops key from the cache.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, store.NormalizeParameterKey(key))
	c.gen++
	c.mu.Unlock()
}

// InvalidateAll clears the cache.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.gen++
	c.mu.Unlock()
}

// String returns the raw value of key, or def when absent.
func (c *Cache) String(ctx context.Context, key, def string) string {
	p := c.Lookup(ctx, key)
	if p == nil {
		return def
	}
	return p.Value
}

// Int returns key parsed as an integer. Absent and unparsable values
// resolve to def. A stored zero is returned as zero.
func (c *Cache) Int(ctx context.Context, key string, def int) int {
	p := c.Lookup(ctx, key)
	if p == nil {
		return def
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(p.Value), 64)
	if err != nil {
		return def
	}
	return int(n)
}

// PositiveInt is Int for settings that have no "off" value: zero and
// negative values also resolve to def.
func (c *Cache) PositiveInt(ctx context.Context, key string, def int) int {
	if n := c.Int(ctx, key, def); n > 0 {
		return n
	}
	return def
}

// Bool returns key parsed as a boolean: "true", "1" and "yes" are true, any
// other stored value is false. Absent keys resolve to def.
func (c *Cache) Bool(ctx context.Context, key string, def bool) bool {
	p := c.Lookup(ctx, key)
	if p == nil {
		return def
	}
	return ParseBool(p.Value)
}

// ParseBool is the boolean reading used for stored parameters.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// ValidateValue checks value against dataType before it is written.
func ValidateValue(dataType, value string) error {
	switch dataType {
	case "", store.DataTypeString:
		return nil
	case store.DataTypeNumber:
		if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
			return errors.New("params: value is not a number")
		}
		return nil
	case store.DataTypeBoolean:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "false", "1", "0", "yes", "no":
			return nil
		}
		return errors.New("params: value is not a boolean")
	default:
		return errors.New("params: unknown data type")
	}
}
