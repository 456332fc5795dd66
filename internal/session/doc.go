// Package session implements the concurrency core of the dispatch layer:
// per-session request tracking and observer streaming.
//
// # Overview
//
// Each conversation session is an independent unit of work. A session moves
// between exactly two states:
//
//	Idle -> InFlight -> Idle
//
// At most one request is in flight per session at a time; a second submit
// while InFlight fails with ErrSessionBusy and never queues. Different
// sessions are fully independent and progress concurrently.
//
// # Registry
//
// The Registry owns one mutable record per session:
//
//   - inFlight: whether a turn is currently executing
//   - buffer: ordered fragments streamed by the current turn
//   - hasUnseenOutput: set when a turn completes with nobody attached
//   - lastAgentType / lastError: outcome of the most recent turn
//
// Observers attach with Attach and receive an event channel. The buffer
// accumulated so far is replayed into the channel before any further live
// fragment, so an observer attaching mid-stream (or after an unseen
// completion) sees the full output in order. Detach only stops forwarding;
// the in-flight turn keeps running and keeps buffering.
//
// # Coordinator
//
// The Coordinator is the sole entry point for processing:
//
//	err := coordinator.Submit(sessionID, input)
//
// Submit admits the turn (or rejects it as busy) and returns immediately.
// The turn runs on its own goroutine: dispatch, the bounded agent call,
// completion bookkeeping, and transcript persistence. A client detaching or
// disconnecting never cancels the turn; only the per-turn timeout does.
package session
