// ABOUTME: Management API for health, configuration, and traffic inspection
// ABOUTME: Read-only JSON endpoints served on the management port

package management

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/harper/jsonrpcd/internal/config"
	"github.com/harper/jsonrpcd/internal/db"
	"github.com/harper/jsonrpcd/internal/dispatch"
	"github.com/harper/jsonrpcd/internal/logger"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// ConnectionCounter reports open transport connections.
type ConnectionCounter interface {
	ActiveConnections() int
}

type Server struct {
	config     *config.Config
	dispatcher *dispatch.Dispatcher
	db         *db.DB
	conns      ConnectionCounter
	started    time.Time
	mux        *http.ServeMux
}

// NewServer builds the management API. database and conns may be nil.
func NewServer(cfg *config.Config, d *dispatch.Dispatcher, database *db.DB, conns ConnectionCounter) *Server {
	s := &Server{
		config:     cfg,
		dispatcher: d,
		db:         database,
		conns:      conns,
		started:    time.Now(),
		mux:        http.NewServeMux(),
	}

	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/config", s.handleConfig)
	s.mux.HandleFunc("/api/methods", s.handleMethods)
	s.mux.HandleFunc("/api/connections", s.handleConnections)
	s.mux.HandleFunc("/api/messages", s.handleMessages)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":         "healthy",
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"method_count":   s.dispatcher.Registry().Len(),
		"stats":          s.dispatcher.Stats(),
		"traffic_log":    s.db != nil,
	}
	if s.conns != nil {
		health["websocket_connections"] = s.conns.ActiveConnections()
	}

	writeJSON(w, health)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.config)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleMethods(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, map[string]interface{}{
		"methods":    s.dispatcher.Registry().Methods(),
		"extensions": s.dispatcher.Extensions(),
	})
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		http.Error(w, "traffic log disabled", http.StatusServiceUnavailable)
		return
	}

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	// Enable CORS for web interface
	w.Header().Set("Access-Control-Allow-Origin", "*")

	connections, err := s.db.GetRecentConnections(limit)
	if err != nil {
		logger.Error("failed to get connections: %v", err)
		http.Error(w, "failed to get connections", http.StatusInternalServerError)
		return
	}
	if connections == nil {
		connections = []db.Connection{}
	}

	writeJSON(w, connections)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		http.Error(w, "traffic log disabled", http.StatusServiceUnavailable)
		return
	}

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")

	var (
		messages []db.Message
		err      error
	)
	if connectionID := r.URL.Query().Get("connection"); connectionID != "" {
		messages, err = s.db.GetConnectionMessages(connectionID)
		if len(messages) > limit {
			messages = messages[len(messages)-limit:]
		}
	} else {
		messages, err = s.db.GetRecentMessages(limit)
	}
	if err != nil {
		logger.Error("failed to get messages: %v", err)
		http.Error(w, "failed to get messages", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []db.Message{}
	}

	writeJSON(w, messages)
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
		return 0, false
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode management response: %v", err)
	}
}
