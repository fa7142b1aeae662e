// Package server provides the HTTP server: REST endpoints for bindings and
// the event log, engine control and a websocket feed of frame outcomes.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// Pipeline is the part of the running application the server controls.
type Pipeline interface {
	Reset()
	Subscribe(fn func(gesture.Outcome)) func()
	ReloadBindings() error
	Engine() *gesture.Engine
	SetEnabled(enabled bool)
	IsEnabled() bool
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Pipeline  Pipeline
	// Export returns the frame log payload served at /api/frames.
	Export func() any

	// ClearFrames, if set, empties the frame log on DELETE /api/frames.
	ClearFrames func()
}

// Server represents the HTTP server.
type Server struct {
	config      Config
	mux         *http.ServeMux
	start       time.Time
	hub         *EventHub
	unsubscribe func()
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		hub:    NewEventHub(),
	}
	if config.Pipeline != nil {
		s.unsubscribe = config.Pipeline.Subscribe(s.hub.Broadcast)
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		var onChange func() error
		if s.config.Pipeline != nil {
			onChange = s.config.Pipeline.ReloadBindings
		}
		bindings := api.NewBindingHandler(s.config.Store, onChange)
		s.mux.Handle("/api/bindings", bindings)
		s.mux.Handle("/api/bindings/", bindings)

		events := api.NewEventHandler(s.config.Store)
		s.mux.Handle("/api/events", events)
		s.mux.Handle("/api/events/counts", events)
		s.mux.Handle("/api/events/chart", events)
	}

	s.mux.Handle("/api/events/ws", s.hub)

	if s.config.Pipeline != nil {
		s.mux.HandleFunc("/api/engine", s.handleEngine)
		s.mux.HandleFunc("/api/engine/reset", s.handleReset)
	}

	if s.config.Export != nil {
		s.mux.HandleFunc("/api/frames", s.handleFrames)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Hub returns the websocket event hub.
func (s *Server) Hub() *EventHub {
	return s.hub
}

// Close detaches the server from the pipeline and disconnects websocket
// clients.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.hub.Close()
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.start).String(),
		"clients": s.hub.Clients(),
	}
	if s.config.Pipeline != nil {
		health["enabled"] = s.config.Pipeline.IsEnabled()
	}
	writeJSON(w, http.StatusOK, health)
}

type engineState struct {
	Enabled   bool                   `json:"enabled"`
	Confirmed gesture.ConfirmedState `json:"confirmed"`
	Window    []gesture.Result       `json:"window"`
	Actions   map[string]string      `json:"actions"`
}

// handleEngine handles GET /api/engine (state) and PUT /api/engine
// ({"enabled": bool}).
func (s *Server) handleEngine(w http.ResponseWriter, r *http.Request) {
	p := s.config.Pipeline

	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req struct {
			Enabled *bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "enabled is required"})
			return
		}
		p.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	engine := p.Engine()
	actions := make(map[string]string)
	for label, action := range engine.Actions() {
		actions[label.String()] = action
	}

	window := engine.Window()
	if window == nil {
		window = []gesture.Result{}
	}

	writeJSON(w, http.StatusOK, engineState{
		Enabled:   p.IsEnabled(),
		Confirmed: engine.Confirmed(),
		Window:    window,
		Actions:   actions,
	})
}

// handleReset handles POST /api/engine/reset.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.config.Pipeline.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// handleFrames handles GET /api/frames, the frame log export, and
// DELETE /api/frames, which clears it.
func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet:
		w.Header().Set("Content-Disposition", `attachment; filename="mudra-frames.json"`)
		writeJSON(w, http.StatusOK, s.config.Export())
	case r.Method == http.MethodDelete && s.config.ClearFrames != nil:
		s.config.ClearFrames()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
