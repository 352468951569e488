package prometheus

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// defaultReadHeaderTimeout is the timeout for reading request headers.
	defaultReadHeaderTimeout = 10 * time.Second

	healthCheckTimeout = 2 * time.Second
)

// HealthCheck reports whether a dependency of the run service is usable,
// e.g. the run store.
type HealthCheck func(ctx context.Context) error

// ExporterOption configures an [Exporter].
type ExporterOption func(*Exporter)

// WithRegistry serves a caller-owned registry instead of the default one
// holding the stepflow, Go runtime and process collectors.
func WithRegistry(reg *prometheus.Registry) ExporterOption {
	return func(e *Exporter) { e.registry = reg }
}

// WithRoute mounts an extra handler next to /metrics, such as the bridge's
// workflow listing.
func WithRoute(pattern string, h http.Handler) ExporterOption {
	return func(e *Exporter) { e.routes = append(e.routes, route{pattern: pattern, handler: h}) }
}

// WithHealthCheck makes /healthz answer 503 while check fails.
func WithHealthCheck(check HealthCheck) ExporterOption {
	return func(e *Exporter) { e.health = check }
}

type route struct {
	pattern string
	handler http.Handler
}

// Exporter serves Prometheus metrics and run service health over HTTP.
type Exporter struct {
	addr     string
	registry *prometheus.Registry
	routes   []route
	health   HealthCheck

	mu      sync.Mutex
	server  *http.Server
	started bool
}

// NewExporter creates an exporter listening on addr.
func NewExporter(addr string, opts ...ExporterOption) *Exporter {
	e := &Exporter{addr: addr}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = prometheus.NewRegistry()
		e.registry.MustRegister(allMetrics...)
		e.registry.MustRegister(collectors.NewGoCollector())
		e.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return e
}

// Handler returns the exporter's routes: /metrics, /healthz and any extra
// routes.
func (e *Exporter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("GET /healthz", e.handleHealth)
	for _, r := range e.routes {
		mux.Handle(r.pattern, r.handler)
	}
	return mux
}

func (e *Exporter) handleHealth(w http.ResponseWriter, r *http.Request) {
	if e.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := e.health(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Start serves Handler. It blocks until the server stops and returns
// http.ErrServerClosed after Shutdown.
func (e *Exporter) Start() error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.server = &http.Server{
		Addr:              e.addr,
		Handler:           e.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}
	e.started = true
	srv := e.server
	e.mu.Unlock()

	return srv.ListenAndServe()
}

// Shutdown gracefully stops the exporter.
func (e *Exporter) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.server != nil && e.started {
		e.started = false
		return e.server.Shutdown(ctx)
	}
	return nil
}
