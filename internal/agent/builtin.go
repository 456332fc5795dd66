// ABOUTME: Builtin agent implementation backed by a pluggable Completer.
// ABOUTME: Streams word-level fragments and keeps no per-call state on the instance.

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Completer is the external reasoning seam. Implementations typically call an
// LLM provider; the dispatch core treats the call as opaque and long-running.
type Completer interface {
	Complete(ctx context.Context, agentType Type, input, sessionID string) (string, error)
}

// builtin is the standard agent implementation: it delegates to a Completer
// and streams the completion back in word-sized fragments.
type builtin struct {
	agentType Type
	completer Completer
	logger    *slog.Logger
	release   sync.Once
}

// NewFactory returns a Factory producing Completer-backed agents for the
// configured set of types. Requests for a type outside the set fail with
// ErrUnknownAgentType.
func NewFactory(types []Type, completer Completer, logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	known := make(map[Type]bool, len(types))
	for _, t := range types {
		known[t] = true
	}
	return func(agentType Type) (Agent, error) {
		if !known[agentType] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAgentType, agentType)
		}
		return &builtin{
			agentType: agentType,
			completer: completer,
			logger:    logger.With("component", "agent", "agent_type", string(agentType)),
		}, nil
	}
}

func (b *builtin) Process(ctx context.Context, input, sessionID string, onFragment FragmentFunc) (*Response, error) {
	text, err := b.completer.Complete(ctx, b.agentType, input, sessionID)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	if onFragment != nil {
		for _, word := range strings.Fields(text) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			onFragment(word + " ")
		}
	}

	return &Response{Text: text, AgentType: b.agentType}, nil
}

func (b *builtin) Release() {
	b.release.Do(func() {
		b.logger.Debug("agent released")
	})
}

// StaticCompleter returns canned text per agent type. It is the development
// and test stand-in for a real LLM-backed Completer.
type StaticCompleter struct {
	Responses map[Type]string
}

func (s *StaticCompleter) Complete(_ context.Context, agentType Type, input, _ string) (string, error) {
	if text, ok := s.Responses[agentType]; ok {
		return text, nil
	}
	return fmt.Sprintf("[%s] %s", agentType, input), nil
}
