package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dodeck/internal/shared"
)

// Version is reported by /healthz.
const Version = "1.0.0"

const shutdownTimeout = 5 * time.Second

// Service is the read-only deck API.
type Service struct {
	addr    string
	handler http.Handler
	logger  *log.Logger
}

// NewService wires the deck routes, health check and middleware stack from cfg.
//
// keys may be nil, in which case signing keys are loaded as configured in cfg.
func NewService(cfg shared.ServiceConfig, store DeckStore, keys *KeySource, logger *log.Logger) *Service {
	if keys == nil {
		keys = NewKeySource(cfg.Issuer, cfg.JWKSPath, cfg.JWKSURL, nil)
	}
	auth := NewAuthenticator(cfg.Issuer, cfg.Audience, keys, logger)

	router := NewBasicRouter()
	router.Use(
		Recoverer(logger),
		RequestLogger(logger),
		CORS(cfg.CORSAllowedOrigins),
		RateLimit(cfg.RateLimit, cfg.RateBurst),
	)
	router.Handler(&HealthHandler{Version: Version, Environment: cfg.Environment})
	router.Handler(NewDeckHandler(store, auth.Middleware, cfg.RequireEmailVerified, logger))

	return &Service{addr: cfg.Addr, handler: router, logger: logger}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Service) Handler() http.Handler { return s.handler }

// ListenAndServe listens on the configured address and serves until ctx is cancelled.
func (s *Service) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down gracefully.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("deck service listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down deck service")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		<-errCh
		return nil
	}
}
