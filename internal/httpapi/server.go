// ABOUTME: HTTP server setup: route registration, middleware chain, lifecycle
// ABOUTME: Public endpoints stay outside the gate; everything else goes through it

package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/intellivuln/vulnscan/internal/auth"
	"github.com/intellivuln/vulnscan/internal/config"
	"github.com/intellivuln/vulnscan/internal/store"
)

// Server wires the store and authenticators into the REST surface.
type Server struct {
	cfg        *config.Config
	store      store.Store
	tokens     *auth.JWTVerifier
	passwords  *auth.PasswordAuthenticator
	keys       *auth.APIKeyAuthenticator
	gate       *auth.Gate
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer constructs the server and its dependency graph. The JWT secret
// is validated here, so a misconfigured deployment fails before binding.
func NewServer(cfg *config.Config, st store.Store) (*Server, error) {
	tokens, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("creating token verifier: %w", err)
	}

	keys := auth.NewAPIKeyAuthenticator(st, st, cfg.Auth.APIKeyDefaultDays)

	s := &Server{
		cfg:       cfg,
		store:     st,
		tokens:    tokens,
		passwords: auth.NewPasswordAuthenticator(st, st),
		keys:      keys,
		gate:      auth.NewGate(tokens, keys),
		logger:    slog.Default().With("component", "httpapi"),
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           s.requestID(s.logRequests(s.routes())),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// routes builds the route table. The gate wraps each protected handler
// explicitly; there is no implicit inheritance between route groups.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	gated := s.gate.Middleware()
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return gated(auth.RequireRole(store.RoleAdmin)(h))
	}
	protect := func(h http.HandlerFunc) http.Handler {
		return gated(h)
	}

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.Handle("GET /auth/me", protect(s.handleMe))
	mux.Handle("POST /auth/change-password", protect(s.handleChangePassword))

	mux.Handle("GET /api-keys", protect(s.handleListAPIKeys))
	mux.Handle("POST /api-keys", protect(s.handleCreateAPIKey))
	mux.Handle("DELETE /api-keys/{id}", protect(s.handleDeleteAPIKey))

	mux.Handle("GET /settings", protect(s.handleGetSettings))
	mux.Handle("PUT /settings", protect(s.handleUpdateSettings))

	mux.Handle("GET /assets", protect(s.handleListAssets))
	mux.Handle("POST /assets", protect(s.handleCreateAsset))
	mux.Handle("GET /assets/{id}", protect(s.handleGetAsset))
	mux.Handle("PUT /assets/{id}", protect(s.handleUpdateAsset))
	mux.Handle("DELETE /assets/{id}", adminOnly(s.handleDeleteAsset))

	mux.Handle("GET /vulnerabilities", protect(s.handleListVulnerabilities))
	mux.Handle("POST /vulnerabilities", protect(s.handleCreateVulnerability))
	mux.Handle("GET /vulnerabilities/{id}", protect(s.handleGetVulnerability))
	mux.Handle("PUT /vulnerabilities/{id}", protect(s.handleUpdateVulnerability))
	mux.Handle("PUT /vulnerabilities/{id}/status", protect(s.handleUpdateVulnerabilityStatus))
	mux.Handle("DELETE /vulnerabilities/{id}", adminOnly(s.handleDeleteVulnerability))

	mux.Handle("GET /users", adminOnly(s.handleListUsers))

	return mux
}

// Handler returns the fully wrapped HTTP handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails. Shutdown is graceful with a fresh 5-second deadline.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown uses a fresh context since the run context is already
// canceled by the time shutdown starts.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return nil
}

// requestID tags each request with a unique id for log correlation.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// logRequests logs method, path, and duration for every request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
			"request_id", w.Header().Get("X-Request-Id"))
	})
}

// handleHealth reports liveness. No credentials required.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
