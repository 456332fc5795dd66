// ABOUTME: Core agent types: the Agent interface, agent type identifiers, and responses.
// ABOUTME: Agents are selected by type, cached by the Cache, and shared across sessions.

package agent

import (
	"context"
	"errors"
)

// ErrUnknownAgentType indicates a request for an agent type no factory knows about.
var ErrUnknownAgentType = errors.New("unknown agent type")

// Type identifies a category of agent (e.g. "analytical", "technical", "crm").
// The set of valid types is finite and configured at startup.
type Type string

// FragmentFunc receives one streamed output fragment. It may be nil when the
// caller does not care about streaming; agents must tolerate that.
type FragmentFunc func(fragment string)

// Response is the final result of one Process call.
type Response struct {
	Text      string
	AgentType Type
}

// Agent turns an input and session context into a response, possibly via
// external reasoning calls. Instances are shared by reference across sessions
// dispatched to the same type, so implementations must be safe for concurrent
// Process calls and must not keep per-call mutable state on the instance.
type Agent interface {
	// Process handles one input for one session, streaming fragments through
	// onFragment as they are produced. The returned Response carries the full
	// accumulated text.
	Process(ctx context.Context, input, sessionID string, onFragment FragmentFunc) (*Response, error)

	// Release frees any external resources held by the instance. It is called
	// exactly once per eviction and must be idempotent.
	Release()
}

// Factory constructs an agent for the given type. Construction may be
// expensive (tool wiring, client setup) and may fail.
type Factory func(agentType Type) (Agent, error)
