// ABOUTME: Bounded LRU cache of live agent instances keyed by agent type.
// ABOUTME: Lazily constructs via an injected factory, evicts at capacity, sweeps idle entries.

package agent

import (
	"container/list"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrCacheClosed is returned by Get after the cache has been closed.
var ErrCacheClosed = errors.New("agent cache closed")

// cacheEntry owns exactly one live agent instance.
type cacheEntry struct {
	agentType  Type
	instance   Agent
	lastUsedAt time.Time
	useCount   int
	element    *list.Element
}

// EntryInfo is a read-only snapshot of one cache entry, for observability.
type EntryInfo struct {
	AgentType  Type      `json:"agent_type"`
	LastUsedAt time.Time `json:"last_used_at"`
	UseCount   int       `json:"use_count"`
}

// CacheConfig holds cache sizing and sweep settings plus lifecycle hooks.
type CacheConfig struct {
	Capacity      int
	IdleTimeout   time.Duration
	SweepInterval time.Duration

	// OnCreate fires once per successful construction, OnEvict once per
	// eviction (LRU, idle sweep, or manual). Both may be nil.
	OnCreate func(Type)
	OnEvict  func(Type)
}

// Cache is a thread-safe, size-bounded store of live agents. Hits update
// recency in O(1) via a doubly-linked list (least recently used at the front).
// Concurrent misses for the same type are collapsed into a single factory
// call; misses for different types construct concurrently.
type Cache struct {
	mu      sync.Mutex
	entries map[Type]*cacheEntry
	order   *list.List
	cfg     CacheConfig
	factory Factory
	group   singleflight.Group
	logger  *slog.Logger
	done    chan struct{}
	closed  bool
}

// NewCache creates a cache and starts its background idle sweeper when
// SweepInterval is positive. Pass nil logger for default.
func NewCache(cfg CacheConfig, factory Factory, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		entries: make(map[Type]*cacheEntry),
		order:   list.New(),
		cfg:     cfg,
		factory: factory,
		logger:  logger.With("component", "agent_cache"),
		done:    make(chan struct{}),
	}
	if cfg.SweepInterval > 0 {
		go c.sweeper()
	}
	return c
}

// getResult carries a Get outcome through singleflight.
type getResult struct {
	instance    Agent
	constructed bool
}

// Get returns the live agent for agentType, constructing it on a miss. The
// second return is true when this call constructed a new instance rather than
// reusing a cached one. A failed construction leaves the cache unchanged and
// the error propagates to every waiting caller.
func (c *Cache) Get(agentType Type) (Agent, bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, false, ErrCacheClosed
	}
	if e, ok := c.entries[agentType]; ok {
		c.touchLocked(e)
		inst := e.instance
		c.mu.Unlock()
		return inst, false, nil
	}
	c.mu.Unlock()

	// singleflight runs fn in the first caller's goroutine, so constructed
	// is set for exactly one caller per actual construction. Callers that
	// joined an in-progress construction report a hit.
	var constructed bool
	v, err, _ := c.group.Do(string(agentType), func() (any, error) {
		res, err := c.construct(agentType)
		if err == nil {
			constructed = res.constructed
		}
		return res, err
	})
	if err != nil {
		return nil, false, err
	}
	res := v.(getResult)
	return res.instance, constructed, nil
}

// construct is the singleflight body for a cache miss. The factory call runs
// outside the cache lock so unrelated types are never serialized behind it.
func (c *Cache) construct(agentType Type) (getResult, error) {
	// Another caller may have inserted between the fast-path check and the
	// singleflight admission.
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return getResult{}, ErrCacheClosed
	}
	if e, ok := c.entries[agentType]; ok {
		c.touchLocked(e)
		inst := e.instance
		c.mu.Unlock()
		return getResult{instance: inst}, nil
	}
	c.mu.Unlock()

	inst, err := c.factory(agentType)
	if err != nil {
		c.logger.Warn("agent construction failed", "agent_type", string(agentType), "error", err)
		return getResult{}, err
	}

	// Evict-then-insert happens under one lock hold so no other Get can
	// observe a partially-evicted state.
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		inst.Release()
		return getResult{}, ErrCacheClosed
	}
	var victim *cacheEntry
	if len(c.entries) >= c.cfg.Capacity {
		victim = c.removeOldestLocked()
	}
	e := &cacheEntry{
		agentType:  agentType,
		instance:   inst,
		lastUsedAt: time.Now(),
		useCount:   1,
	}
	e.element = c.order.PushBack(agentType)
	c.entries[agentType] = e
	c.mu.Unlock()

	if victim != nil {
		c.releaseEntry(victim)
	}
	if c.cfg.OnCreate != nil {
		c.cfg.OnCreate(agentType)
	}
	c.logger.Debug("agent constructed", "agent_type", string(agentType))
	return getResult{instance: inst, constructed: true}, nil
}

// touchLocked updates recency bookkeeping for a hit. Must hold mu.
func (c *Cache) touchLocked(e *cacheEntry) {
	e.lastUsedAt = time.Now()
	e.useCount++
	c.order.MoveToBack(e.element)
}

// removeOldestLocked unlinks the least-recently-used entry and returns it.
// Must hold mu; the caller releases the instance outside the lock.
func (c *Cache) removeOldestLocked() *cacheEntry {
	front := c.order.Front()
	if front == nil {
		return nil
	}
	agentType, _ := front.Value.(Type)
	e := c.entries[agentType]
	c.order.Remove(front)
	delete(c.entries, agentType)
	return e
}

// releaseEntry invokes the release hook and eviction callback for one entry.
func (c *Cache) releaseEntry(e *cacheEntry) {
	e.instance.Release()
	if c.cfg.OnEvict != nil {
		c.cfg.OnEvict(e.agentType)
	}
	c.logger.Debug("agent evicted",
		"agent_type", string(e.agentType),
		"use_count", e.useCount)
}

// Evict removes a specific entry, releasing its instance. Returns false if
// the type was not cached. Intended for administrative use.
func (c *Cache) Evict(agentType Type) bool {
	c.mu.Lock()
	e, ok := c.entries[agentType]
	if ok {
		c.order.Remove(e.element)
		delete(c.entries, agentType)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	c.releaseEntry(e)
	return true
}

// SweepIdle removes and releases every entry unused for longer than the idle
// timeout, regardless of capacity pressure. Returns the number evicted.
func (c *Cache) SweepIdle(now time.Time) int {
	c.mu.Lock()
	var victims []*cacheEntry
	for agentType, e := range c.entries {
		if now.Sub(e.lastUsedAt) > c.cfg.IdleTimeout {
			c.order.Remove(e.element)
			delete(c.entries, agentType)
			victims = append(victims, e)
		}
	}
	c.mu.Unlock()

	for _, e := range victims {
		c.releaseEntry(e)
	}
	return len(victims)
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Info returns a snapshot of all entries ordered least-recently-used first.
func (c *Cache) Info() []EntryInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	infos := make([]EntryInfo, 0, len(c.entries))
	for el := c.order.Front(); el != nil; el = el.Next() {
		agentType, _ := el.Value.(Type)
		e := c.entries[agentType]
		infos = append(infos, EntryInfo{
			AgentType:  e.agentType,
			LastUsedAt: e.lastUsedAt,
			UseCount:   e.useCount,
		})
	}
	return infos
}

// sweeper runs in a background goroutine, sweeping idle entries on a fixed
// period off the request hot path.
func (c *Cache) sweeper() {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := c.SweepIdle(time.Now()); n > 0 {
				c.logger.Info("idle sweep evicted agents", "count", n)
			}
		case <-c.done:
			return
		}
	}
}

// Close stops the sweeper and releases every cached instance. Safe to call
// multiple times; Get fails with ErrCacheClosed afterwards.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	var victims []*cacheEntry
	for agentType, e := range c.entries {
		c.order.Remove(e.element)
		delete(c.entries, agentType)
		victims = append(victims, e)
	}
	c.mu.Unlock()

	for _, e := range victims {
		c.releaseEntry(e)
	}
}
