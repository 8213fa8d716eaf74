// Package api exposes the HTTP and WebSocket surface: inbound MT5 tick and
// position-close ingestion, strategy install/clear, risk controls,
// backtesting, a one-shot snapshot, and the /ws/monitor event stream.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/akephisit/reflexguard/internal/closeingress"
	"github.com/akephisit/reflexguard/internal/confirmation"
	"github.com/akephisit/reflexguard/internal/dispatch"
	"github.com/akephisit/reflexguard/internal/events"
	"github.com/akephisit/reflexguard/internal/state"
)

// Server holds everything the handlers need and builds the routed mux.
type Server struct {
	state      *state.State
	dispatcher *dispatch.Dispatcher
	closer     *closeingress.Ingress
	hub        *events.Hub
	confirmCfg confirmation.Config
	apiKey     string
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// New builds a Server and its routed http.Handler.
func New(st *state.State, dispatcher *dispatch.Dispatcher, closer *closeingress.Ingress, hub *events.Hub, confirmCfg confirmation.Config, apiKey string, logger *slog.Logger) (*Server, http.Handler) {
	s := &Server{
		state:      st,
		dispatcher: dispatcher,
		closer:     closer,
		hub:        hub,
		confirmCfg: confirmCfg,
		apiKey:     apiKey,
		logger:     logger.With("component", "api"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	if apiKey == "" {
		s.logger.Warn("API_KEY unset, running without authentication (development mode)")
	}
	return s, s.routes()
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health endpoints always bypass auth.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/mt5/health", s.handleMT5Health)

	protected := http.NewServeMux()
	protected.HandleFunc("POST /api/mt5/tick", s.handleTick)
	protected.HandleFunc("POST /api/mt5/position-close", s.handlePositionClose)
	protected.HandleFunc("POST /api/brain/strategy", s.handleInstallStrategy)
	protected.HandleFunc("GET /api/brain/strategy", s.handleGetStrategy)
	protected.HandleFunc("DELETE /api/brain/strategy", s.handleClearStrategy)
	protected.HandleFunc("POST /api/risk/kill", s.handleRiskKill)
	protected.HandleFunc("POST /api/risk/rearm", s.handleRiskRearm)
	protected.HandleFunc("GET /api/risk/status", s.handleRiskStatus)
	protected.HandleFunc("POST /api/backtest", s.handleBacktest)
	protected.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	protected.HandleFunc("GET /ws/monitor", s.handleMonitorWS)

	mux.Handle("/", authMiddleware(s.apiKey, protected))

	return recoverMiddleware(s.logger, mux)
}
