// ABOUTME: HTTP JSON API server over the CRM service
// ABOUTME: Routes on chi with request IDs, logging, recovery, rate limiting and /metrics
package web

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/harperreed/dealdesk/crm"
	"github.com/harperreed/dealdesk/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Server struct {
	svc      *crm.Service
	log      *zap.Logger
	metrics  metrics.Recorder
	gatherer prometheus.Gatherer
	limiter  atomic.Pointer[rate.Limiter]
	router   http.Handler
}

// Options carries the server's collaborators. Zero values are safe.
type Options struct {
	Logger   *zap.Logger
	Metrics  metrics.Recorder
	Gatherer prometheus.Gatherer
	// RateLimit is requests per second across all clients; 0 disables limiting.
	RateLimit float64
	RateBurst int
}

func NewServer(svc *crm.Service, opts Options) *Server {
	s := &Server{
		svc:      svc,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		gatherer: opts.Gatherer,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	s.SetRateLimit(opts.RateLimit, opts.RateBurst)
	s.router = s.routes()
	return s
}

// SetRateLimit replaces the global token bucket while the server runs.
// A fresh bucket starts full.
func (s *Server) SetRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		s.limiter.Store(rate.NewLimiter(rate.Inf, 0))
		return
	}
	if burst < 1 {
		burst = 1
	}
	s.limiter.Store(rate.NewLimiter(rate.Limit(perSecond), burst))
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", metrics.Handler(s.gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)

		r.Route("/companies", func(r chi.Router) {
			r.Get("/", s.listCompanies)
			r.Post("/", s.createCompany)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getCompany)
				r.Patch("/", s.updateCompany)
				r.Delete("/", s.deleteCompany)
			})
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", s.listContacts)
			r.Post("/", s.createContact)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getContact)
				r.Patch("/", s.updateContact)
				r.Delete("/", s.deleteContact)
			})
		})

		r.Route("/deals", func(r chi.Router) {
			r.Get("/", s.listDeals)
			r.Post("/", s.createDeal)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getDeal)
				r.Patch("/", s.updateDeal)
				r.Delete("/", s.deleteDeal)
				r.Post("/stage", s.moveDeal)
			})
		})

		r.Get("/pipeline", s.getPipeline)
		r.Get("/dashboard", s.getDashboard)
		r.Get("/search", s.search)
	})

	return r
}

// ListenAndServe serves on addr until ctx is canceled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
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
		s.log.Info("http server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}
