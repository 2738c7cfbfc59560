package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"billing-reminder-bot/internal/domain/ports/adapter"
	"billing-reminder-bot/internal/usecase"
)

const (
	requestTimeout = 15 * time.Second
	scanTimeout    = 5 * time.Minute
)

// Server is the admin HTTP API.
type Server struct {
	settings  usecase.SettingsUseCase
	scan      usecase.ScanUseCase
	reminders usecase.ReminderUseCase
	notifier  adapter.Notifier
	auth      *AuthManager
	log       *zerolog.Logger
	now       func() time.Time

	srv *http.Server
}

func NewServer(
	settings usecase.SettingsUseCase,
	scan usecase.ScanUseCase,
	reminders usecase.ReminderUseCase,
	notifier adapter.Notifier,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "AdminAPI").Logger()
	return &Server{
		settings:  settings,
		scan:      scan,
		reminders: reminders,
		notifier:  notifier,
		auth:      auth,
		log:       &l,
		now:       time.Now,
	}
}

// Router builds the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.RequireAdmin)
		r.Group(func(r chi.Router) {
			r.Use(Timeout(requestTimeout))
			r.Get("/users/{id}/coverage", s.handleCoverage)
			r.Get("/billing-config", s.handleGetConfig)
			r.Put("/billing-config", s.handleUpdateConfig)
		})
		r.With(Timeout(scanTimeout)).Post("/scan", s.handleScan)
	})
	return r
}

// Start serves on port until Shutdown is called.
func (s *Server) Start(port int) error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", port).Msg("admin api listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
