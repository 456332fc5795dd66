// ABOUTME: RequestCoordinator binds a session to a dispatcher call and runs the turn.
// ABOUTME: One entry point per user message; many sessions progress concurrently.

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CrossGen-ai/chatSG-sub001/internal/agent"
	"github.com/CrossGen-ai/chatSG-sub001/internal/dispatch"
	"github.com/CrossGen-ai/chatSG-sub001/internal/store"
)

// TranscriptSaver is what the coordinator needs from persistence. A nil saver
// disables transcripts without touching the request path.
type TranscriptSaver interface {
	SaveTurn(ctx context.Context, turn *store.Turn) error
}

// Coordinator is the sole way external callers start processing. Submit
// returns immediately after admission; the turn itself runs on its own
// goroutine so one session's agent call never blocks another session.
type Coordinator struct {
	registry    *Registry
	dispatcher  *dispatch.Dispatcher
	transcripts TranscriptSaver
	timeout     time.Duration
	logger      *slog.Logger
	wg          sync.WaitGroup
}

// NewCoordinator creates a coordinator. timeout bounds each agent call;
// transcripts may be nil. Pass nil logger for default.
func NewCoordinator(registry *Registry, dispatcher *dispatch.Dispatcher, transcripts TranscriptSaver, timeout time.Duration, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		registry:    registry,
		dispatcher:  dispatcher,
		transcripts: transcripts,
		timeout:     timeout,
		logger:      logger.With("component", "coordinator"),
	}
}

// Submit accepts one user message for a session. It returns nil once the turn
// is admitted and running, ErrSessionBusy when the session already has a
// request in flight, or a validation error. It never waits for the agent.
func (c *Coordinator) Submit(sessionID, input string) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if input == "" {
		return fmt.Errorf("input is required")
	}

	if err := c.registry.Begin(sessionID); err != nil {
		return err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(sessionID, input)
	}()
	return nil
}

// run executes one admitted turn: dispatch, agent call with timeout,
// completion bookkeeping, transcript persistence.
func (c *Coordinator) run(sessionID, input string) {
	start := time.Now()

	// The turn deliberately does not inherit a caller context: a client
	// detaching or disconnecting must not cancel the in-flight agent call.
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	a, res, err := c.dispatcher.Dispatch(input, sessionID)
	if err != nil {
		c.logger.Error("dispatch failed", "session_id", sessionID, "error", err)
		c.registry.Finish(sessionID, res.AgentType, "dispatch failed: "+err.Error())
		c.saveTurn(sessionID, res.AgentType, input, "", err, time.Since(start))
		return
	}

	resp, err := a.Process(ctx, input, sessionID, func(fragment string) {
		c.registry.Append(sessionID, fragment)
	})

	elapsed := time.Since(start)
	c.dispatcher.RecordResponseTime(elapsed)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("agent call timed out after %s", c.timeout)
		}
		c.logger.Error("turn failed",
			"session_id", sessionID,
			"agent_type", string(res.AgentType),
			"elapsed", elapsed,
			"error", err)
		c.registry.Finish(sessionID, res.AgentType, err.Error())
		c.saveTurn(sessionID, res.AgentType, input, "", err, elapsed)
		return
	}

	c.registry.Finish(sessionID, resp.AgentType, "")
	c.saveTurn(sessionID, resp.AgentType, input, resp.Text, nil, elapsed)

	c.logger.Info("turn completed",
		"session_id", sessionID,
		"agent_type", string(resp.AgentType),
		"elapsed", elapsed)
}

// saveTurn persists a completed turn with its own timeout context so
// persistence is independent of the request lifecycle. Failures are logged
// and never fail the turn.
func (c *Coordinator) saveTurn(sessionID string, agentType agent.Type, input, response string, turnErr error, elapsed time.Duration) {
	if c.transcripts == nil {
		return
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	turn := &store.Turn{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		AgentType: string(agentType),
		Input:     input,
		Response:  response,
		Duration:  elapsed,
		CreatedAt: time.Now(),
	}
	if turnErr != nil {
		turn.Error = turnErr.Error()
	}

	if err := c.transcripts.SaveTurn(saveCtx, turn); err != nil {
		c.logger.Error("failed to save turn",
			"session_id", sessionID,
			"turn_id", turn.ID,
			"error", err)
	}
}

// Wait blocks until every admitted turn has finished. Used during shutdown.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
