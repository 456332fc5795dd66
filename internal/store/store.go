// ABOUTME: Store interface and data types for transcript persistence.
// ABOUTME: Defines the Turn record and the TurnStore interface the coordinator writes through.

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Turn is one completed request/response exchange within a session. The
// dispatch core records turns after completion; transcripts are an audit
// trail, never an input to dispatch decisions.
type Turn struct {
	ID        string
	SessionID string
	AgentType string
	Input     string
	Response  string
	Error     string
	Duration  time.Duration
	CreatedAt time.Time
}

// TurnStore persists completed turns and serves session history readback.
type TurnStore interface {
	SaveTurn(ctx context.Context, turn *Turn) error
	GetTurnsBySession(ctx context.Context, sessionID string, limit int) ([]*Turn, error)
	Close() error
}
