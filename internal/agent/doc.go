// Package agent defines the Agent interface and the bounded cache of live
// agent instances.
//
// # Cache
//
// Agents are expensive to construct, so the Cache keeps up to a configured
// number of live instances keyed by agent type:
//
//   - Hits update recency and use counts in O(1)
//   - Misses construct through the injected Factory; concurrent misses for
//     the same type collapse into a single construction
//   - Inserting at capacity evicts the least-recently-used entry first
//   - A background sweeper releases entries idle past the timeout
//
// Evicted instances have Release invoked exactly once. A failed construction
// leaves the cache untouched and propagates the factory error to callers.
package agent
