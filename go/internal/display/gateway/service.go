package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/animalitos/go/internal/display"
)

// Service serves the display to screens and operators
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	health            *HealthChecker
	operatorToken     string
}

// Config holds configuration for the screen gateway
type Config struct {
	ConnectionConfig ConnectionConfig
	OperatorToken    string
	// MaxPollFailures is how many next-draw failures in a row make /health unhealthy
	MaxPollFailures int
}

// DefaultConfig returns default configuration for the screen gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		MaxPollFailures:  3,
	}
}

// NewService creates the gateway. cm must be the same manager the display notifies.
func NewService(config Config, cm *ConnectionManager, d DisplayProvider, metrics *display.CounterMetrics, publisher ConnectionStatus) *Service {
	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm, d),
		stateHandler:      NewStateHandler(d),
		health:            NewHealthChecker(metrics, d, cm, publisher, config.MaxPollFailures),
		operatorToken:     config.OperatorToken,
	}
}

// Start runs the broadcaster until ctx is cancelled
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting screen gateway")
	s.connectionManager.Start(ctx)
	log.Info().Msg("screen gateway stopped")
}

// Routes builds the HTTP router
func (s *Service) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health.ServeHTTP)
	r.Get("/metrics", s.health.handleMetrics)

	r.Get("/ws/display", s.wsHandler.HandleDisplayConnection)
	r.Get("/ws/stats", s.wsHandler.HandleConnectionStats)

	r.Route("/api/display", func(r chi.Router) {
		r.Get("/state", s.stateHandler.HandleGetState)

		r.Group(func(r chi.Router) {
			r.Use(OperatorAuth(s.operatorToken))
			r.Put("/schedule-date", s.stateHandler.HandleSetScheduleDate)
			r.Post("/trial-spin", s.stateHandler.HandleTrialSpin)
		})
	})

	log.Info().Msg("screen gateway routes registered")
	return r
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
