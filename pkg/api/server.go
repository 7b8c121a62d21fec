package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/uhyunpark/marketmaker/pkg/journal"
	"github.com/uhyunpark/marketmaker/pkg/reactor"
)

// maxActionsLimit bounds one /actions page so a single request cannot pull
// the whole journal into memory.
const maxActionsLimit = 1000

// StatusSource exposes pipeline state; the reactor implements it.
type StatusSource interface {
	Pipelines() []reactor.Status
	Pipeline(name string) (reactor.Status, bool)
}

// Server handles the REST status API and WebSocket connections. It is a
// read-only operational surface: nothing here mutates engine state.
type Server struct {
	status  StatusSource
	journal *journal.Journal // optional, nil disables /actions
	router  *mux.Router
	hub     *Hub
}

// NewServer creates a new API server.
func NewServer(status StatusSource, jnl *journal.Journal) *Server {
	s := &Server{
		status:  status,
		journal: jnl,
		router:  mux.NewRouter(),
		hub:     NewHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/pipelines", s.handleGetPipelines).Methods("GET")
	api.HandleFunc("/pipelines/{name}", s.handleGetPipeline).Methods("GET")
	api.HandleFunc("/actions", s.handleGetActions).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler exposes the route tree, used by tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start starts the API server.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	handler := c.Handler(s.router)

	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, handler)
}

// NotifyTick implements reactor.Notifier: every finished tick is broadcast
// to clients subscribed to the "ticks" channel.
func (s *Server) NotifyTick(st reactor.Status) {
	s.hub.BroadcastToChannel("ticks", WSMessage{Channel: "ticks", Data: st})
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetPipelines(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.status.Pipelines())
}

func (s *Server) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	st, ok := s.status.Pipeline(name)
	if !ok {
		respondError(w, http.StatusNotFound, "pipeline not found: "+name)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleGetActions(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		respondError(w, http.StatusNotFound, "journal disabled")
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxActionsLimit {
		limit = maxActionsLimit
	}
	entries, err := s.journal.Recent(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Pipelines: len(s.status.Pipelines()),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ServeWS(s.hub, w, r)
}

func respondJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func respondError(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, ErrorResponse{Error: msg})
}
