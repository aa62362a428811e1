package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-p2p-trading/internal/domain/model"
	"telegram-p2p-trading/internal/wizard"
)

// SessionAdmin is the engine surface operators may touch.
type SessionAdmin interface {
	Session(ctx context.Context, userID int64) (*wizard.Session, error)
	Abort(ctx context.Context, userID int64) error
}

// OrderReader looks orders up by id.
type OrderReader interface {
	FindOrder(ctx context.Context, id string) (*model.Order, error)
}

// Server is the operator HTTP API: health, metrics and wizard sessions.
type Server struct {
	sessions      SessionAdmin
	orders        OrderReader
	auth          *AuthManager
	ratePerMinute int
	log           *zerolog.Logger
	srv           *http.Server
}

func NewServer(sessions SessionAdmin, orders OrderReader, auth *AuthManager, ratePerMinute int, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "AdminServer").Logger()
	return &Server{
		sessions:      sessions,
		orders:        orders,
		auth:          auth,
		ratePerMinute: ratePerMinute,
		log:           &l,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.ratePerMinute > 0 {
			r.Use(httprate.LimitByIP(s.ratePerMinute, time.Minute))
		}
		r.Use(RequireAdmin(s.auth, s.log))
		r.Get("/sessions/{tgID}", sessionGetHandler(s.sessions))
		r.Delete("/sessions/{tgID}", sessionDeleteHandler(s.sessions))
		r.Get("/orders/{id}", orderGetHandler(s.orders))
	})
	return r
}

// Run serves on port until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Int("port", port).Msg("Admin HTTP server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}
