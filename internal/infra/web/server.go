package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-resume-board/internal/domain/ports/repository"
	ucport "telegram-resume-board/internal/domain/ports/usecase"
	"telegram-resume-board/internal/usecase"
)

type Server struct {
	statsUC usecase.StatsUseCase
	sweeper ucport.ExpirySweeper
	queue   repository.TaskQueue // nil in inline mode
	auth    *AuthManager
	now     func() time.Time
	log     *zerolog.Logger
}

// NewServer builds the admin surface. With a non-nil queue a sweep request
// enqueues a task for the worker process; otherwise the sweep runs in the request.
func NewServer(
	statsUC usecase.StatsUseCase,
	sweeper ucport.ExpirySweeper,
	queue repository.TaskQueue,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "AdminServer").Logger()
	return &Server{
		statsUC: statsUC,
		sweeper: sweeper,
		queue:   queue,
		auth:    auth,
		now:     time.Now,
		log:     &l,
	}
}

// Router sets up the routing for the admin API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/stats", statsHandler(s.statsUC))
		r.Post("/tasks/check-expired", s.checkExpiredHandler)
	})
	return r
}

// authMiddleware requires a valid admin JWT in the Authorization header.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil || len(s.auth.secret) == 0 {
			s.log.Error().Msg("admin jwt secret is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			if errors.Is(err, errMissingToken) {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			s.log.Warn().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("admin auth rejected")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		s.log.Debug().Str("subject", claims.Subject).Str("path", r.URL.Path).Msg("admin request")
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe runs the admin server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("admin http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("admin http shutdown: %w", err)
	}
	return nil
}
