// ABOUTME: SessionRegistry tracks per-session in-flight state, fragment buffers, and observers.
// ABOUTME: Output always lands in the session that produced it, attached or not.

package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/CrossGen-ai/chatSG-sub001/internal/agent"
)

// ErrSessionBusy indicates the session already has an in-flight request. The
// second request is rejected, never queued, and the running one is untouched.
var ErrSessionBusy = errors.New("session busy")

// observerBufferSize is the live-event headroom for each observer channel,
// on top of whatever the attach-time replay needs.
const observerBufferSize = 64

// EventType discriminates events flowing to observers.
type EventType int

const (
	EventFragment EventType = iota
	EventDone
	EventError
)

// Event is one item delivered to an attached observer: a streamed fragment,
// or a turn-completion marker.
type Event struct {
	Type      EventType
	Text      string // fragment text, or the error message for EventError
	AgentType agent.Type
}

// record is the mutable per-session state. All access goes through the
// registry mutex; sessions are few enough that a single lock is not a
// bottleneck next to the external calls each turn makes.
type record struct {
	inFlight      bool
	buffer        []string
	hasUnseen     bool
	lastAgentType agent.Type
	lastError     string
	observers     map[string]chan Event
}

// Flags is a read-only snapshot of one session's indicator state.
type Flags struct {
	SessionID       string     `json:"session_id"`
	InFlight        bool       `json:"in_flight"`
	HasUnseenOutput bool       `json:"has_unseen_output"`
	LastAgentType   agent.Type `json:"last_agent_type,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
}

// Registry holds one record per conversation session. Records are created on
// first use and only removed by explicit deletion.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*record
	logger   *slog.Logger
}

// NewRegistry creates a registry. Pass nil logger for default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*record),
		logger:   logger.With("component", "sessions"),
	}
}

// lookupOrCreateLocked returns the record for sessionID, creating it on first
// use. Must hold mu.
func (r *Registry) lookupOrCreateLocked(sessionID string) *record {
	rec, ok := r.sessions[sessionID]
	if !ok {
		rec = &record{observers: make(map[string]chan Event)}
		r.sessions[sessionID] = rec
		r.logger.Debug("session created", "session_id", sessionID)
	}
	return rec
}

// Begin transitions a session from Idle to InFlight and clears the fragment
// buffer for the new turn. Returns ErrSessionBusy if a request is already in
// flight; the existing request and its buffer are left untouched.
func (r *Registry) Begin(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.lookupOrCreateLocked(sessionID)
	if rec.inFlight {
		return ErrSessionBusy
	}
	rec.inFlight = true
	rec.buffer = nil
	rec.hasUnseen = false
	rec.lastError = ""
	return nil
}

// Append buffers one streamed fragment and mirrors it to every currently
// attached observer. Fragments for a session are strictly ordered: appends
// and attach-replays serialize on the registry lock.
func (r *Registry) Append(sessionID, fragment string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	rec.buffer = append(rec.buffer, fragment)

	ev := Event{Type: EventFragment, Text: fragment}
	for subID, ch := range rec.observers {
		select {
		case ch <- ev:
		default:
			// Slow observer: drop the live event, the buffer still has it
			r.logger.Debug("dropped fragment for slow observer",
				"session_id", sessionID, "sub_id", subID)
		}
	}
}

// Finish transitions a session back to Idle and records the turn outcome.
// When no observer is attached at completion time the buffered output is kept
// and flagged unseen so a later attach can replay it; otherwise delivery is
// complete and the buffer is cleared.
func (r *Registry) Finish(sessionID string, agentType agent.Type, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	rec.inFlight = false
	rec.lastAgentType = agentType
	rec.lastError = errMsg

	ev := Event{Type: EventDone, AgentType: agentType}
	if errMsg != "" {
		ev = Event{Type: EventError, Text: errMsg, AgentType: agentType}
	}

	if len(rec.observers) == 0 {
		rec.hasUnseen = true
		return
	}

	for subID, ch := range rec.observers {
		select {
		case ch <- ev:
		default:
			r.logger.Debug("dropped completion event for slow observer",
				"session_id", sessionID, "sub_id", subID)
		}
	}
	rec.buffer = nil
	rec.hasUnseen = false
}

// Attach registers an observer for a session and returns its event channel
// and subscription ID. The buffer accumulated so far is replayed into the
// channel before any further live fragment, so a late attach sees the full
// output regardless of timing. The subscription is cleaned up when ctx is
// cancelled.
func (r *Registry) Attach(ctx context.Context, sessionID string) (<-chan Event, string) {
	subID := uuid.New().String()

	r.mu.Lock()
	rec := r.lookupOrCreateLocked(sessionID)

	// The channel is sized to hold the entire replay plus its completion
	// marker plus live headroom, so the replay sends below can never drop no
	// matter how much output accumulated before the attach.
	ch := make(chan Event, len(rec.buffer)+1+observerBufferSize)

	for _, fragment := range rec.buffer {
		ch <- Event{Type: EventFragment, Text: fragment}
	}
	if !rec.inFlight && rec.hasUnseen {
		// Turn completed while nobody watched: replay ends with its marker
		// and the output counts as seen.
		ev := Event{Type: EventDone, AgentType: rec.lastAgentType}
		if rec.lastError != "" {
			ev = Event{Type: EventError, Text: rec.lastError, AgentType: rec.lastAgentType}
		}
		ch <- ev
		rec.buffer = nil
		rec.hasUnseen = false
	}
	rec.observers[subID] = ch
	r.mu.Unlock()

	r.logger.Debug("observer attached", "session_id", sessionID, "sub_id", subID)

	go func() {
		<-ctx.Done()
		r.Detach(sessionID, subID)
	}()

	return ch, subID
}

// Detach removes an observer and closes its channel. Detaching never affects
// the in-flight request; fragments keep accumulating in the buffer.
func (r *Registry) Detach(sessionID, subID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	ch, ok := rec.observers[subID]
	if !ok {
		return
	}
	delete(rec.observers, subID)
	close(ch)
	r.logger.Debug("observer detached", "session_id", sessionID, "sub_id", subID)
}

// Flags returns the indicator snapshot for one session.
func (r *Registry) Flags(sessionID string) (Flags, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionID]
	if !ok {
		return Flags{}, false
	}
	return r.flagsLocked(sessionID, rec), true
}

// Snapshot returns indicator flags for every known session, ordered by ID.
func (r *Registry) Snapshot() []Flags {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Flags, 0, len(r.sessions))
	for sessionID, rec := range r.sessions {
		out = append(out, r.flagsLocked(sessionID, rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

func (r *Registry) flagsLocked(sessionID string, rec *record) Flags {
	return Flags{
		SessionID:       sessionID,
		InFlight:        rec.inFlight,
		HasUnseenOutput: rec.hasUnseen,
		LastAgentType:   rec.lastAgentType,
		LastError:       rec.lastError,
	}
}

// Delete removes a session record entirely, closing any observer channels.
// Session deletion is an explicit external action, never automatic.
func (r *Registry) Delete(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	for subID, ch := range rec.observers {
		close(ch)
		delete(rec.observers, subID)
	}
	delete(r.sessions, sessionID)
	r.logger.Debug("session deleted", "session_id", sessionID)
}

// Buffer returns a copy of the session's current fragment buffer.
func (r *Registry) Buffer(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]string, len(rec.buffer))
	copy(out, rec.buffer)
	return out
}
