package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes /metrics and /healthz while a run is in progress.
type Server struct {
	router   chi.Router
	srv      *http.Server
	logger   *zap.Logger
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	listener net.Listener
	done     chan error
}

// NewServer registers HTTP collectors on reg and builds the router.
func NewServer(addr string, reg *prometheus.Registry, logger *zap.Logger) (*Server, error) {
	if reg == nil {
		return nil, errors.New("registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		logger: logger,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pris_http_requests_total",
			Help: "Requests served by the metrics endpoint, labeled by method and code.",
		}, []string{"method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pris_http_request_duration_seconds",
			Help:    "Latency of the metrics endpoint, labeled by method and route.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method", "route"}),
	}
	for _, c := range []prometheus.Collector{s.requests, s.latency} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register http collector: %w", err)
		}
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.observe)
	r.Get("/healthz", healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	s.router = r

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler returns the router for use in tests or custom servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.srv.Addr, err)
	}
	s.listener = ln
	s.done = make(chan error, 1)
	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()
	s.logger.Info("metrics server started", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.srv.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server, waiting for in-flight scrapes up to ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.done == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	if err := <-s.done; err != nil {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unknown"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.requests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		s.latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
