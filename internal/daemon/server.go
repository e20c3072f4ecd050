// Package daemon is the HTTP sync server: accounts, progress and
// navigation blobs, and the activity log.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/felixgeelhaar/palabras/internal/auth"
	"github.com/felixgeelhaar/palabras/internal/remote"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 4 << 20

// Server represents the palabras sync HTTP server
type Server struct {
	server  *http.Server
	router  *http.ServeMux
	handler http.Handler
	limiter ratelimit.RateLimiter

	auth     *auth.Service
	blobs    remote.BlobStore
	activity remote.ActivityLog
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Addr     string
	Auth     *auth.Service
	Blobs    remote.BlobStore
	Activity remote.ActivityLog // optional

	// RequestsPerSecond per client IP (default: 20)
	RequestsPerSecond int
}

// NewServer creates a new sync server
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Auth == nil || cfg.Blobs == nil {
		return nil, errors.New("auth service and blob store are required")
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 20
	}

	s := &Server{
		router:   http.NewServeMux(),
		auth:     cfg.Auth,
		blobs:    cfg.Blobs,
		activity: cfg.Activity,
		limiter: ratelimit.New(&ratelimit.Config{
			Rate:     cfg.RequestsPerSecond,
			Burst:    cfg.RequestsPerSecond * 2,
			Interval: time.Second,
		}),
	}

	s.setupRoutes()

	s.handler = recoveryMiddleware(
		correlationIDMiddleware(
			loggingMiddleware(
				corsMiddleware(
					rateLimitMiddleware(s.limiter)(s.router)))))

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)

	s.router.HandleFunc("POST /auth/register", s.handleRegister)
	s.router.HandleFunc("POST /auth/login", s.handleLogin)
	s.router.HandleFunc("POST /auth/logout", requireAuth(s.auth, s.handleLogout))
	s.router.HandleFunc("GET /me", requireAuth(s.auth, s.handleMe))

	s.router.HandleFunc("GET /progress", requireAuth(s.auth, s.handleGetBlob(remote.KindProgress)))
	s.router.HandleFunc("POST /progress", requireAuth(s.auth, s.handleSaveBlob(remote.KindProgress)))
	s.router.HandleFunc("GET /navigation-state", requireAuth(s.auth, s.handleGetBlob(remote.KindNavigation)))
	s.router.HandleFunc("POST /navigation-state", requireAuth(s.auth, s.handleSaveBlob(remote.KindNavigation)))

	s.router.HandleFunc("GET /activity", requireAuth(s.auth, s.handleActivity))
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	slog.Info("starting palabras sync server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down sync server...")
	err := s.server.Shutdown(ctx)
	if cerr := s.limiter.Close(); cerr != nil {
		slog.Warn("failed to close rate limiter", "error", cerr)
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{"ok": true})
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.Credentials
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	user, err := s.auth.Register(r.Context(), req)
	switch {
	case errors.Is(err, auth.ErrEmailExists):
		jsonError(w, http.StatusConflict, "email already registered", nil)
		return
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		jsonError(w, http.StatusUnprocessableEntity, "invalid registration", err)
		return
	case err != nil:
		jsonError(w, http.StatusInternalServerError, "registration failed", err)
		return
	}

	jsonResponse(w, http.StatusOK, userResponse{ID: user.ID.String(), Email: user.Email})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.Credentials
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	resp, err := s.auth.Login(r.Context(), req)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		jsonError(w, http.StatusUnauthorized, "invalid email or password", nil)
		return
	}
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "login failed", err)
		return
	}

	jsonResponse(w, http.StatusOK, tokenResponse{
		AccessToken: resp.Token,
		TokenType:   "bearer",
		UserID:      resp.User.ID.String(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		jsonError(w, http.StatusInternalServerError, "logout failed", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := GetUser(r.Context())
	jsonResponse(w, http.StatusOK, userResponse{ID: user.ID.String(), Email: user.Email})
}

// handleGetBlob returns the stored object verbatim, or {} when nothing
// is stored yet
func (s *Server) handleGetBlob(kind remote.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := GetUser(r.Context())

		data, err := s.blobs.LoadBlob(r.Context(), user.ID, kind)
		if errors.Is(err, remote.ErrNotFound) {
			jsonResponse(w, http.StatusOK, map[string]any{})
			return
		}
		if err != nil {
			jsonError(w, http.StatusInternalServerError, fmt.Sprintf("load %s", kind), err)
			return
		}
		jsonResponse(w, http.StatusOK, data)
	}
}

// handleSaveBlob stores any JSON object, replacing the previous one
func (s *Server) handleSaveBlob(kind remote.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := GetUser(r.Context())

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			jsonError(w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return
		}
		if err := remote.ValidateObject(body); err != nil {
			jsonError(w, http.StatusUnprocessableEntity, "invalid payload", err)
			return
		}

		if err := s.blobs.SaveBlob(r.Context(), user.ID, kind, body); err != nil {
			jsonError(w, http.StatusInternalServerError, fmt.Sprintf("save %s", kind), err)
			return
		}

		slog.Debug("blob saved",
			"correlation_id", GetCorrelationID(r.Context()),
			"user_id", user.ID,
			"kind", kind,
			"bytes", len(body),
		)
		jsonResponse(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if s.activity == nil {
		jsonError(w, http.StatusNotFound, "activity log disabled", nil)
		return
	}
	user, _ := GetUser(r.Context())

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid limit", err)
			return
		}
		limit = n
	}

	items, err := s.activity.RecentActivity(r.Context(), user.LearnerID(), remote.ClampLimit(limit))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "load activity", err)
		return
	}
	if items == nil {
		items = []remote.Activity{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{"activity": items})
}

// Helper functions

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	jsonResponse(w, status, response)
}
