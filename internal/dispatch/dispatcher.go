// ABOUTME: Dispatcher composes the selector and agent cache to resolve one input to a live agent.
// ABOUTME: Owns the low-confidence override, construction-failure fallback, and aggregate stats.

package dispatch

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/CrossGen-ai/chatSG-sub001/internal/agent"
	"github.com/CrossGen-ai/chatSG-sub001/internal/selector"
)

// Config holds dispatcher policy knobs, all sourced from startup configuration.
type Config struct {
	// ConfidenceThreshold is the floor below which the selector's pick is
	// overridden by the default type when HybridFallback is on.
	ConfidenceThreshold float64
	HybridFallback      bool
	DefaultAgentType    agent.Type
}

// Stats is a read-only snapshot of the dispatcher's observational counters.
type Stats struct {
	Created         uint64        `json:"created"`
	Evicted         uint64        `json:"evicted"`
	Hits            uint64        `json:"hits"`
	Misses          uint64        `json:"misses"`
	Responses       uint64        `json:"responses"`
	AvgResponseTime time.Duration `json:"avg_response_time_ns"`
}

// Dispatcher turns one input into an agent invocation. It is safe for
// concurrent use; the counters live behind their own mutex and are never used
// for correctness decisions.
type Dispatcher struct {
	cfg      Config
	selector *selector.Selector
	cache    *agent.Cache
	logger   *slog.Logger

	mu        sync.Mutex
	created   uint64
	evicted   uint64
	hits      uint64
	misses    uint64
	responses uint64
	totalTime time.Duration
}

// New creates a dispatcher. Wire the returned dispatcher's cache hooks by
// constructing the cache with OnCreate/OnEvict pointing at NoteCreated and
// NoteEvicted. Pass nil logger for default.
func New(cfg Config, sel *selector.Selector, cache *agent.Cache, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:      cfg,
		selector: sel,
		cache:    cache,
		logger:   logger.With("component", "dispatcher"),
	}
}

// Dispatch selects an agent type for the input and returns a live agent for
// it. The returned Result reflects the final type after any low-confidence
// override, so callers observe what actually ran.
func (d *Dispatcher) Dispatch(input, sessionID string) (agent.Agent, selector.Result, error) {
	res := d.selector.Select(input)

	finalType := res.AgentType
	if d.cfg.HybridFallback && res.Confidence < d.cfg.ConfidenceThreshold && finalType != d.cfg.DefaultAgentType {
		d.logger.Debug("low confidence, overriding selection",
			"session_id", sessionID,
			"selected", string(res.AgentType),
			"confidence", res.Confidence,
			"override", string(d.cfg.DefaultAgentType))
		finalType = d.cfg.DefaultAgentType
		res.AgentType = finalType
	}

	a, constructed, err := d.cache.Get(finalType)
	if err != nil {
		// One retry against the configured fallback type, then fail the
		// request. The failure is local: cache and stats stay consistent.
		if d.cfg.DefaultAgentType != "" && d.cfg.DefaultAgentType != finalType {
			d.logger.Warn("agent construction failed, retrying with fallback type",
				"session_id", sessionID,
				"agent_type", string(finalType),
				"fallback", string(d.cfg.DefaultAgentType),
				"error", err)
			finalType = d.cfg.DefaultAgentType
			res.AgentType = finalType
			a, constructed, err = d.cache.Get(finalType)
		}
		if err != nil {
			return nil, res, fmt.Errorf("dispatching %q: %w", finalType, err)
		}
	}

	d.mu.Lock()
	if constructed {
		d.misses++
	} else {
		d.hits++
	}
	d.mu.Unlock()

	d.logger.Debug("dispatched",
		"session_id", sessionID,
		"agent_type", string(finalType),
		"confidence", res.Confidence,
		"constructed", constructed)

	return a, res, nil
}

// NoteCreated records one agent construction. Intended as the cache's
// OnCreate hook.
func (d *Dispatcher) NoteCreated(agent.Type) {
	d.mu.Lock()
	d.created++
	d.mu.Unlock()
}

// NoteEvicted records one agent eviction. Intended as the cache's OnEvict hook.
func (d *Dispatcher) NoteEvicted(agent.Type) {
	d.mu.Lock()
	d.evicted++
	d.mu.Unlock()
}

// RecordResponseTime folds one completed turn into the rolling average.
func (d *Dispatcher) RecordResponseTime(elapsed time.Duration) {
	d.mu.Lock()
	d.responses++
	d.totalTime += elapsed
	d.mu.Unlock()
}

// Stats returns a consistent snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Stats{
		Created:   d.created,
		Evicted:   d.evicted,
		Hits:      d.hits,
		Misses:    d.misses,
		Responses: d.responses,
	}
	if d.responses > 0 {
		s.AvgResponseTime = d.totalTime / time.Duration(d.responses)
	}
	return s
}
