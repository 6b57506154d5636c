// Package api exposes the ledger operations over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/uct-network/uct-ledger/internal/config"
	"github.com/uct-network/uct-ledger/internal/services"
)

const shutdownTimeout = 10 * time.Second

// Server is the ledger HTTP API. User identity is resolved by the upstream
// gateway and arrives as the {userId} path parameter.
type Server struct {
	cfg        *config.ServerConfig
	cronSecret string
	service    *services.Service
}

func New(cfg *config.Config, service *services.Service) *Server {
	return &Server{
		cfg:        &cfg.Server,
		cronSecret: cfg.BatchMint.CronSecret,
		service:    service,
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(traceMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/activity", s.handle(s.recordActivity))
		r.Get("/stats", s.handle(s.getStats))

		r.Route("/users/{userId}", func(r chi.Router) {
			r.Get("/balance", s.handle(s.getBalance))
			r.Get("/ledger", s.handle(s.getLedger))
			r.Get("/autonomy", s.handle(s.getAutonomy))

			r.Get("/burns", s.handle(s.getBurns))
			r.Post("/burns", s.handle(s.burn))
			r.Post("/burns/estimate", s.handle(s.estimateBurn))

			r.Get("/stakes", s.handle(s.getStakes))
			r.Post("/stakes", s.handle(s.stake))
			r.Post("/stakes/{stakeId}/unstake", s.handle(s.requestUnstake))
			r.Post("/stakes/{stakeId}/complete", s.handle(s.completeUnstake))

			r.Post("/claims", s.handle(s.claimPending))

			r.Get("/settlements", s.handle(s.getSettlements))
			r.Post("/settlements", s.handle(s.requestSettlement))
		})

		r.With(s.cronSecretMiddleware).Post("/internal/batch-mint", s.handle(s.runBatchMint))
	})

	return r
}

// Start serves until ctx is done, then shuts the server down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting ledger API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("ledger API server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	log.Info().Msg("Shutting down ledger API server")
	return srv.Shutdown(shutdownCtx)
}
