// Package server hosts the shared HTTP plumbing of the execution and
// validation nodes: routing, request scoped logging, health and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jinmel/avs-examples/pkg/metrics"
	"go.uber.org/zap"
)

const RequestIdHeader = "X-Request-Id"

type Config struct {
	Port int
	// Timeout bounds reads and writes; zero leaves them unbounded
	Timeout time.Duration
}

type Server struct {
	config  *Config
	router  chi.Router
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewServer(cfg *Config, m *metrics.Metrics, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	s := &Server{
		config:  cfg,
		router:  chi.NewRouter(),
		metrics: m,
		logger:  logger,
	}
	s.router.Use(s.loggerMiddleware)
	s.router.Get("/health", s.handleHealth)
	if m != nil {
		s.router.Method(http.MethodGet, "/metrics", m.Handler())
	}
	return s, nil
}

// Router is where node specific handlers are mounted.
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) Handler() http.Handler {
	return s.router
}

type loggerKey struct{}

// LoggerFromContext returns the request scoped logger, or fallback when the
// context carries none.
func LoggerFromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return fallback
}

func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := r.Header.Get(RequestIdHeader)
		if requestId == "" {
			requestId = uuid.New().String()
		}
		w.Header().Set(RequestIdHeader, requestId)

		l := s.logger.With(zap.String("requestId", requestId))
		l.Sugar().Infow("Received HTTP request",
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
		)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), loggerKey{}, l)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := struct {
		Status string `json:"status"`
	}{
		Status: "running",
	}
	WriteJsonResponse(w, http.StatusOK, health, LoggerFromContext(r.Context(), s.logger))
}

func WriteJsonResponse(w http.ResponseWriter, status int, data interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Sugar().Errorw("Failed to write JSON response",
			zap.Error(err),
		)
	}
}

func WriteJsonError(w http.ResponseWriter, err error, status int, logger *zap.Logger) {
	WriteJsonResponse(w, status, map[string]string{"error": err.Error()}, logger)
}

// DecodeJsonBody decodes the request body into v. An empty body leaves v
// untouched.
func DecodeJsonBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("failed to read request body - %v", err)
	}
	defer r.Body.Close()

	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse json from body - %v", err)
	}
	return nil
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.Timeout,
		WriteTimeout: s.config.Timeout,
		IdleTimeout:  s.config.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Sugar().Infow("Starting HTTP server", zap.Int("port", s.config.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Sugar().Errorw("Failed to start HTTP server",
				zap.Int("port", s.config.Port),
				zap.Error(err),
			)
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.logger.Sugar().Infow("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
