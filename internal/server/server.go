// Package server exposes the websocket endpoint and health check over HTTP
package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ppiankov/livecheck/internal/model"
	"github.com/ppiankov/livecheck/internal/session"
	"github.com/ppiankov/livecheck/internal/worker"
)

// Server routes websocket upgrades to the session manager
type Server struct {
	cfg      model.ServerConfig
	manager  *session.Manager
	router   *chi.Mux
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// New builds the router
func New(cfg model.ServerConfig, manager *session.Manager, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		manager: manager,
		logger:  logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logging(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Group(func(r chi.Router) {
		if cfg.UpgradeRPS > 0 {
			r.Use(RateLimit(worker.NewLimiter(cfg.UpgradeRPS, cfg.UpgradeBurst)))
		}
		r.Get("/ws", s.handleWebsocket)
		r.Get("/ws/{clientID}", s.handleWebsocket)
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then closes every session
// and shuts the listener down
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	s.manager.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	s.logger.Info("server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.manager.Len(),
	})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		s.logger.Warn("websocket upgrade failed",
			zap.String("client_id", clientID),
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err))
		return
	}

	s.manager.Serve(clientID, conn)
}

// checkOrigin accepts requests without an Origin header and origins listed
// in the config; "*" allows every origin
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return OriginAllowed(origin, s.cfg.AllowedOrigins)
}

// OriginAllowed matches an Origin header against allowed entries, which may
// be full origins (https://app.example.com) or bare hosts (app.example.com)
func OriginAllowed(origin string, allowed []string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, a := range allowed {
		a = strings.TrimSuffix(strings.TrimSpace(a), "/")
		switch {
		case a == "*":
			return true
		case strings.EqualFold(a, origin):
			return true
		case strings.EqualFold(a, u.Host):
			return true
		}
	}
	return false
}
