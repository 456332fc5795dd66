// ABOUTME: HTTP API handlers: message submission, SSE observation, flags, stats, history.
// ABOUTME: Submission is fire-and-accept; streaming attaches an observer with buffer replay.

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/CrossGen-ai/chatSG-sub001/internal/agent"
	"github.com/CrossGen-ai/chatSG-sub001/internal/dispatch"
	"github.com/CrossGen-ai/chatSG-sub001/internal/session"
)

// SubmitRequest is the JSON request body for POST /api/sessions/{id}/messages.
type SubmitRequest struct {
	Content string `json:"content"`
}

// SubmitResponse is the JSON response for an accepted submission.
type SubmitResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
}

// StatsResponse is the JSON response for GET /api/stats.
type StatsResponse struct {
	Dispatch dispatch.Stats    `json:"dispatch"`
	Cache    []agent.EntryInfo `json:"cache"`
}

// TurnResponse is the JSON shape of one persisted turn.
type TurnResponse struct {
	ID        string `json:"id"`
	AgentType string `json:"agent_type"`
	Input     string `json:"input"`
	Response  string `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
}

// HistoryResponse is the JSON response for GET /api/sessions/{id}/history.
type HistoryResponse struct {
	SessionID string         `json:"session_id"`
	Turns     []TurnResponse `json:"turns"`
}

// handleListSessions handles GET /api/sessions: indicator flags for every
// known session, for UI "still working" / "new output" badges.
func (g *Gateway) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(g.registry.Snapshot())
}

// handleSessionRoutes dispatches /api/sessions/{id}/{action} paths.
func (g *Gateway) handleSessionRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		g.sendJSONError(w, http.StatusNotFound, "not found")
		return
	}
	sessionID, action := parts[0], parts[1]

	switch action {
	case "messages":
		g.handleSubmit(w, r, sessionID)
	case "stream":
		g.handleStream(w, r, sessionID)
	case "history":
		g.handleHistory(w, r, sessionID)
	default:
		g.sendJSONError(w, http.StatusNotFound, "not found")
	}
}

// handleSubmit handles POST /api/sessions/{id}/messages. The turn runs
// asynchronously: the response is 202 on admission, 409 when the session is
// already in flight.
func (g *Gateway) handleSubmit(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := parseSubmitRequest(r.Body)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := g.coordinator.Submit(sessionID, req.Content); err != nil {
		if errors.Is(err, session.ErrSessionBusy) {
			g.sendJSONError(w, http.StatusConflict, "session busy")
			return
		}
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(SubmitResponse{Status: "accepted", SessionID: sessionID})
}

// handleStream handles GET /api/sessions/{id}/stream. It attaches an SSE
// observer to the session: buffered fragments replay first, then live events
// follow until the client disconnects. Disconnecting is a detach, never a
// cancellation of the in-flight turn.
func (g *Gateway) handleStream(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		g.logger.Error("streaming not supported")
		g.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events, subID := g.registry.Attach(r.Context(), sessionID)
	defer g.registry.Detach(sessionID, subID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	g.writeSSEEvent(w, "attached", map[string]string{"session_id": sessionID})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			name, data := eventToSSE(ev)
			g.writeSSEEvent(w, name, data)
			flusher.Flush()
		}
	}
}

// eventToSSE maps a session event to its SSE name and payload.
func eventToSSE(ev session.Event) (string, any) {
	switch ev.Type {
	case session.EventFragment:
		return "fragment", map[string]string{"text": ev.Text}
	case session.EventDone:
		return "done", map[string]string{"agent_type": string(ev.AgentType)}
	case session.EventError:
		return "error", map[string]string{
			"error":      ev.Text,
			"agent_type": string(ev.AgentType),
		}
	default:
		return "unknown", map[string]string{"text": ev.Text}
	}
}

// handleHistory handles GET /api/sessions/{id}/history with an optional
// ?limit=N query parameter.
func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if g.turns == nil {
		g.sendJSONError(w, http.StatusNotFound, "history not enabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			g.sendJSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	turns, err := g.turns.GetTurnsBySession(r.Context(), sessionID, limit)
	if err != nil {
		g.logger.Error("failed to load history", "session_id", sessionID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := HistoryResponse{SessionID: sessionID, Turns: make([]TurnResponse, 0, len(turns))}
	for _, t := range turns {
		resp.Turns = append(resp.Turns, TurnResponse{
			ID:        t.ID,
			AgentType: t.AgentType,
			Input:     t.Input,
			Response:  t.Response,
			Error:     t.Error,
			CreatedAt: t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleStats handles GET /api/stats: dispatch counters plus cache entries.
func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	resp := StatsResponse{
		Dispatch: g.dispatcher.Stats(),
		Cache:    g.cache.Info(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeSSEEvent writes a single SSE event to the response writer.
func (g *Gateway) writeSSEEvent(w http.ResponseWriter, event string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		g.logger.Error("failed to marshal SSE data", "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// parseSubmitRequest parses and validates a SubmitRequest from the given
// reader.
func parseSubmitRequest(r io.Reader) (*SubmitRequest, error) {
	var req SubmitRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, errors.New("invalid JSON body")
	}
	if req.Content == "" {
		return nil, errors.New("content is required")
	}
	return &req, nil
}
