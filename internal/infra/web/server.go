// File: internal/infra/web/server.go
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"marketplace-payments/internal/infra/logging"
	"marketplace-payments/internal/infra/redis"
	"marketplace-payments/internal/usecase"
)

// Server exposes the payment API.
type Server struct {
	initiator  usecase.PaymentInitiator
	reconciler usecase.CallbackReconciler
	poller     usecase.StatusPoller
	auth       *AuthManager
	limiter    *redis.RateLimiter
	dev        bool
	log        *zerolog.Logger

	http *http.Server
}

func NewServer(
	addr string,
	initiator usecase.PaymentInitiator,
	reconciler usecase.CallbackReconciler,
	poller usecase.StatusPoller,
	auth *AuthManager,
	limiter *redis.RateLimiter,
	dev bool,
	logger *zerolog.Logger,
) *Server {
	s := &Server{
		initiator:  initiator,
		reconciler: reconciler,
		poller:     poller,
		auth:       auth,
		limiter:    limiter,
		dev:        dev,
		log:        logger,
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware)

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Post("/initiate", initiateHandler(s.initiator, s.auth, s.limiter, s.dev, s.log))
		r.Post("/callback", callbackHandler(s.reconciler, s.log))
		r.Post("/status", statusHandler(s.poller, s.log))
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// traceMiddleware copies chi's request id into the logging context so every
// log line from a request carries it.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			ctx := logging.WithTraceID(r.Context(), reqID)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }
