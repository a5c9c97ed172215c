package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"courtboard/internal/config"
	appLog "courtboard/internal/log"
	"courtboard/internal/model"
	"courtboard/internal/status"
	"courtboard/internal/store"
)

// Server exposes the court board over HTTP: a JSON API for the admin
// console, an ICS export, and a server-rendered board page.
type Server struct {
	cfg      *config.Config
	board    *store.Board
	loc      *time.Location
	resolver *status.Resolver
	mux      *http.ServeMux
	now      func() time.Time
}

// NewServer wires routes for board.
func NewServer(cfg *config.Config, board *store.Board) *Server {
	s := &Server{
		cfg:      cfg,
		board:    board,
		loc:      cfg.Location(),
		resolver: status.NewResolver(),
		mux:      http.NewServeMux(),
		now:      time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, wrapped in Basic Auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	return logRequests(h)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/courts", s.handleCourts)
	s.mux.HandleFunc("GET /api/blocks", s.handleListBlocks)
	s.mux.HandleFunc("POST /api/blocks", s.handleCreateBlocks)
	s.mux.HandleFunc("GET /api/blocks/{id}", s.handleGetBlock)
	s.mux.HandleFunc("PUT /api/blocks/{id}", s.handleUpdateBlock)
	s.mux.HandleFunc("DELETE /api/blocks/{id}", s.handleDeleteBlock)
	s.mux.HandleFunc("POST /api/blocks/{id}/end", s.handleEndBlock)
	s.mux.HandleFunc("POST /api/conflicts", s.handleConflicts)
	s.mux.HandleFunc("POST /api/recurrence/expand", s.handleExpand)
	s.mux.HandleFunc("GET /api/calendar", s.handleCalendar)
	s.mux.HandleFunc("PUT /api/sessions/{court}", s.handlePutSession)
	s.mux.HandleFunc("DELETE /api/sessions/{court}", s.handleDeleteSession)
	s.mux.HandleFunc("PUT /api/wet/{court}", s.handleWet(true))
	s.mux.HandleFunc("DELETE /api/wet/{court}", s.handleWet(false))

	s.mux.HandleFunc("GET /calendar.ics", s.handleICS)
	s.mux.HandleFunc("GET /board", s.handleBoard)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards everything except /health and the board page
// that the lobby display and the capture job load.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/board" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="courtboard", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "took", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// parseDay reads a date query/body value in the club's zone. Empty means
// the zero time.
func (s *Server) parseDay(v string) (time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return time.Time{}, nil
	}
	return model.ParseTimeIn(v, s.loc)
}

func parseCourt(r *http.Request) (int, error) {
	n, err := strconv.Atoi(r.PathValue("court"))
	if err != nil || n <= 0 {
		return 0, errors.New("court must be a positive integer")
	}
	return n, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

// writeStoreError maps store and model errors onto status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrCourtInRange), errors.Is(err, model.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		appLog.Error("store operation failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
