package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/alphalat/alphalat/internal/store"
)

// Options configures a Server. Zero values pick sensible defaults.
type Options struct {
	Port      int
	Token     string // generated when empty
	TokenFile string
	Gatherer  prometheus.Gatherer
	Logger    *zap.Logger
}

type Server struct {
	store     store.Store
	port      int
	token     string
	tokenFile string
	gatherer  prometheus.Gatherer
	logger    *zap.Logger
	router    chi.Router
	pages     *pages
	startTime time.Time
}

func New(s store.Store, opts Options) (*Server, error) {
	pg, err := loadPages()
	if err != nil {
		return nil, err
	}
	srv := &Server{
		store:     s,
		port:      opts.Port,
		token:     opts.Token,
		tokenFile: opts.TokenFile,
		gatherer:  opts.Gatherer,
		logger:    opts.Logger,
		pages:     pg,
		startTime: time.Now(),
	}
	if srv.token == "" {
		srv.token = generateToken()
	}
	if srv.gatherer == nil {
		srv.gatherer = prometheus.DefaultGatherer
	}
	if srv.logger == nil {
		srv.logger = zap.NewNop()
	}

	srv.setupRoutes()
	return srv, nil
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	// Write token to file for the dashboard URL helper
	if s.tokenFile != "" {
		if err := os.WriteFile(s.tokenFile, []byte(s.token), 0600); err != nil {
			s.logger.Warn("failed to write token file", zap.String("path", s.tokenFile), zap.Error(err))
		}
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	s.logger.Info("server listening", zap.Int("port", s.port))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}

func (s *Server) Token() string {
	return s.token
}

func (s *Server) Port() int {
	return s.port
}

func (s *Server) StartTime() time.Time {
	return s.startTime
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// DashboardURL is the local address that logs the browser in.
func (s *Server) DashboardURL() string {
	return fmt.Sprintf("http://localhost:%d/dashboard?token=%s", s.port, s.token)
}

func generateToken() string {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a simple token if crypto/rand fails
		return "a1b2c3d4"
	}
	return hex.EncodeToString(bytes)
}
