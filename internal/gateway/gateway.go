// ABOUTME: HTTP server wiring for the dispatch core: routes, lifecycle, graceful shutdown.
// ABOUTME: Exposes submit, SSE streaming, session flags, stats, and history endpoints.

package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/CrossGen-ai/chatSG-sub001/internal/agent"
	"github.com/CrossGen-ai/chatSG-sub001/internal/dispatch"
	"github.com/CrossGen-ai/chatSG-sub001/internal/session"
	"github.com/CrossGen-ai/chatSG-sub001/internal/store"
)

// Options holds gateway construction parameters.
type Options struct {
	HTTPAddr string
}

// Gateway serves the external HTTP surface over the dispatch core.
type Gateway struct {
	opts        Options
	coordinator *session.Coordinator
	registry    *session.Registry
	dispatcher  *dispatch.Dispatcher
	cache       *agent.Cache
	turns       store.TurnStore
	logger      *slog.Logger
	server      *http.Server
}

// New creates a gateway over the given core components. turns may be nil,
// which disables the history endpoint. Pass nil logger for default.
func New(opts Options, coordinator *session.Coordinator, registry *session.Registry, dispatcher *dispatch.Dispatcher, cache *agent.Cache, turns store.TurnStore, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		opts:        opts,
		coordinator: coordinator,
		registry:    registry,
		dispatcher:  dispatcher,
		cache:       cache,
		turns:       turns,
		logger:      logger.With("component", "gateway"),
	}
	g.server = &http.Server{
		Addr:    opts.HTTPAddr,
		Handler: g.Handler(),
	}
	return g
}

// Handler builds the route mux. Exposed so tests can drive the API without a
// listener.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions", g.handleListSessions)
	mux.HandleFunc("/api/sessions/", g.handleSessionRoutes)
	mux.HandleFunc("/api/stats", g.handleStats)
	mux.HandleFunc("/healthz", g.handleHealth)
	return mux
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("http server listening", "addr", g.opts.HTTPAddr)
		if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := g.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	g.logger.Info("http server stopped")
	return nil
}

// handleHealth handles GET /healthz.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
