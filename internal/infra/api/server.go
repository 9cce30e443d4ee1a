package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"learnhub-checkout/internal/config"
	"learnhub-checkout/internal/infra/api/apiv1"
)

// NewRouter builds the root handler: guards, probes and the v1 API.
func NewRouter(v1 *apiv1.Server, requestTimeout time.Duration, logger *zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(logger), Recover(logger), Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	apiv1.RegisterAPIV1(r, v1)
	return r
}

// Server owns the listening http.Server.
type Server struct {
	srv *http.Server
	log *zerolog.Logger
}

func NewServer(cfg config.ServerConfig, handler http.Handler, logger *zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logger,
	}
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
