package environment

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies one cached context.
type Key struct {
	LocationID string
	WindowID   int64
}

func (k Key) String() string {
	return k.LocationID + "@" + strconv.FormatInt(k.WindowID, 10)
}

// Entry is a cached context with its bookkeeping timestamps.
type Entry struct {
	Value      Context
	ComputedAt time.Time
	ExpiresAt  time.Time
}

// Cache hands out one environment context per (location, window).
//
// A miss is filled through a single-flight group keyed by Key: concurrent
// callers for the same key wait for one computation and all observe its
// result. When a newer window is stored for a location, the window just before
// it is kept so callers still inside it see the same value, and anything older
// is dropped. Sweep removes whatever else has expired.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]Entry
	latest  map[string]int64              // location id -> newest stored window id
	windows map[string]map[int64]struct{} // location id -> stored window ids

	group  singleflight.Group
	window time.Duration
	gen    Generator
	seed   SeedFunc
	now    func() time.Time
	logger *slog.Logger
}

// NewCache creates a cache with the given window length.
func NewCache(window time.Duration, gen Generator, seed SeedFunc, logger *slog.Logger) *Cache {
	if window <= 0 {
		window = 10 * time.Minute
	}
	if gen == nil {
		gen = ClimateGenerator{}
	}
	if seed == nil {
		seed = DeterministicSeed(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries: make(map[Key]Entry),
		latest:  make(map[string]int64),
		windows: make(map[string]map[int64]struct{}),
		window:  window,
		gen:     gen,
		seed:    seed,
		now:     time.Now,
		logger:  logger,
	}
}

// WindowLength returns the configured window length.
func (c *Cache) WindowLength() time.Duration {
	return c.window
}

// Get returns the context for locationID in the window containing now.
func (c *Cache) Get(locationID string, now time.Time) (Context, error) {
	w := WindowFor(now, c.window)
	key := Key{LocationID: locationID, WindowID: w.ID}

	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	res, err, shared := c.group.Do(key.String(), func() (any, error) {
		// A caller that lost the race to an earlier flight finds the value here.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, err := c.compute(locationID, w)
		if err != nil {
			return nil, err
		}
		c.store(key, Entry{Value: v, ComputedAt: c.now(), ExpiresAt: w.End})
		c.logger.Debug("Environment computed",
			"location", locationID,
			"window", w.ID,
			"weather", v.Weather,
			"season", v.Season)
		return v, nil
	})
	if err != nil {
		c.logger.Warn("Environment computation failed", "location", locationID, "window", w.ID, "error", err)
		return Context{}, err
	}
	if shared {
		c.logger.Debug("Environment shared with concurrent caller", "location", locationID, "window", w.ID)
	}
	return res.(Context).clone(), nil
}

// Put overrides the context for locationID in the window containing now.
func (c *Cache) Put(locationID string, now time.Time, v Context) {
	w := WindowFor(now, c.window)
	v = v.clone()
	v.Window = w
	c.store(Key{LocationID: locationID, WindowID: w.ID}, Entry{Value: v, ComputedAt: c.now(), ExpiresAt: w.End})
}

// Lookup returns the cached entry for locationID in the window containing now
// without computing anything.
func (c *Cache) Lookup(locationID string, now time.Time) (Entry, bool) {
	w := WindowFor(now, c.window)
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[Key{LocationID: locationID, WindowID: w.ID}]
	if !ok {
		return Entry{}, false
	}
	e.Value = e.Value.clone()
	return e, true
}

// Sweep drops every entry whose window has ended by now and returns how many went.
func (c *Cache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.ExpiresAt) {
			c.forget(k)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (c *Cache) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			if n := c.Sweep(t); n > 0 {
				c.logger.Debug("Environment cache swept", "removed", n, "remaining", c.Len())
			}
		}
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) lookup(key Key) (Context, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return Context{}, false
	}
	return e.Value.clone(), true
}

func (c *Cache) store(key Key, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = e
	ids, ok := c.windows[key.LocationID]
	if !ok {
		ids = make(map[int64]struct{})
		c.windows[key.LocationID] = ids
	}
	ids[key.WindowID] = struct{}{}

	prev, seen := c.latest[key.LocationID]
	if seen && key.WindowID <= prev {
		return
	}
	c.latest[key.LocationID] = key.WindowID
	for id := range ids {
		if id < key.WindowID-1 {
			c.forget(Key{LocationID: key.LocationID, WindowID: id})
		}
	}
}

// forget removes one entry and its bookkeeping. The caller holds c.mu.
func (c *Cache) forget(key Key) {
	delete(c.entries, key)
	ids := c.windows[key.LocationID]
	delete(ids, key.WindowID)
	if len(ids) == 0 {
		delete(c.windows, key.LocationID)
		delete(c.latest, key.LocationID)
		return
	}
	if c.latest[key.LocationID] == key.WindowID {
		newest := int64(math.MinInt64)
		for id := range ids {
			newest = max(newest, id)
		}
		c.latest[key.LocationID] = newest
	}
}

func (c *Cache) compute(locationID string, w Window) (Context, error) {
	seed, err := c.seed(locationID, w)
	if err != nil {
		return Context{}, &ComputationError{LocationID: locationID, WindowID: w.ID, Err: err}
	}
	v, err := c.gen.Generate(locationID, w, seededRNG(seed))
	if err != nil {
		return Context{}, &ComputationError{LocationID: locationID, WindowID: w.ID, Err: err}
	}
	v.Window = w
	return v.clone(), nil
}
