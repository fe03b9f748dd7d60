package agent

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/relatorhq/relator/pkg/log"
	"github.com/relatorhq/relator/pkg/metrics"
	"github.com/relatorhq/relator/pkg/runner"
	"github.com/relatorhq/relator/pkg/types"
)

// Server exposes the session runner over HTTP. This is the surface a
// scheduled trigger (or a curl on a workstation) invokes: POST /run executes
// the configured sessions and blocks until the batch finishes.
type Server struct {
	runner          *runner.Runner
	sessions        []types.Session
	continueOnError bool
	version         string
	mux             *http.ServeMux

	mu   sync.Mutex
	busy bool
}

// NewServer creates the agent HTTP server
func NewServer(r *runner.Runner, sessions []types.Session, continueOnError bool, version string) *Server {
	mux := http.NewServeMux()
	s := &Server{
		runner:          r,
		sessions:        sessions,
		continueOnError: continueOnError,
		version:         version,
		mux:             mux,
	}

	// Register endpoints
	mux.HandleFunc("/healthz", s.healthHandler)
	mux.HandleFunc("/run", s.runHandler)
	mux.HandleFunc("/sessions", s.sessionsHandler)
	mux.Handle("/metrics", metrics.Handler())

	return s
}

// Start starts the agent HTTP server
func (s *Server) Start(addr string) error {
	server := &http.Server{
		Addr:        addr,
		Handler:     s.mux,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 60 * time.Second,
		// No write timeout: /run blocks for the full batch duration
	}

	l := log.WithComponent("agent")
	l.Info().Str("addr", addr).Msg("agent listening")
	return server.ListenAndServe()
}

// GetHandler returns the HTTP handler for embedding in other servers
func (s *Server) GetHandler() http.Handler {
	return s.mux
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
	Sessions  int       `json:"sessions"`
}

// RunRequest optionally narrows a run to a single session
type RunRequest struct {
	Session string `json:"session,omitempty"`
}

// RunResponse reports the outcome of a run request
type RunResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Sessions  []string  `json:"sessions"`
	Error     string    `json:"error,omitempty"`
}

// healthHandler implements the /healthz liveness endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   s.version,
		Sessions:  len(s.sessions),
	}
	writeJSON(w, http.StatusOK, response)
}

// sessionsHandler lists the configured sessions
func (s *Server) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.sessions)
}

// runHandler implements POST /run. Runs are serialized: a request arriving
// while a batch is in flight gets 409 instead of a second concurrent batch
// fighting over the same working directories.
func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	sessions := s.sessions
	if req.Session != "" {
		sessions = nil
		for _, sess := range s.sessions {
			if sess.ID == req.Session {
				sessions = append(sessions, sess)
			}
		}
		if len(sessions) == 0 {
			http.Error(w, "unknown session "+req.Session, http.StatusNotFound)
			return
		}
	}

	if !s.acquire() {
		writeJSON(w, http.StatusConflict, RunResponse{
			Status:    "busy",
			Timestamp: time.Now(),
			Error:     "a run is already in progress",
		})
		return
	}
	defer s.release()

	logger := log.WithComponent("agent")
	logger.Info().Int("sessions", len(sessions)).Msg("run request accepted")

	response := RunResponse{
		Timestamp: time.Now(),
		Sessions:  sessionIDs(sessions),
	}
	if err := s.runner.RunBatch(r.Context(), sessions, s.continueOnError); err != nil {
		logger.Error().Err(err).Msg("batch failed")
		response.Status = "failed"
		response.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, response)
		return
	}

	response.Status = "succeeded"
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

func (s *Server) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func sessionIDs(sessions []types.Session) []string {
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	return ids
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
