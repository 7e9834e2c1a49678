// Package metrics provides Prometheus metrics collection for HTTP and gRPC requests.
package metrics

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/lewisedginton/mood_mate/pkg/logger"
)

const (
	namespace = "moodmate"
)

var durationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.3, 0.5, 1.0, 3.0, 10.0}

// Metrics provides Prometheus metrics collection for HTTP and gRPC requests.
// Every Metrics value owns its registry so tests never collide on the default one.
type Metrics struct {
	reg *prometheus.Registry

	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPDurationHistogram prometheus.Histogram
	GrpcRequestsTotal     *prometheus.CounterVec
	GrpcDurationHistogram prometheus.Histogram

	log logger.Logger
}

// NewMetrics creates a new Metrics instance with the specified collectors enabled.
func NewMetrics(httpCounters, grpcCounters bool, l logger.Logger) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		log: l,
	}

	if httpCounters {
		m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by status code",
		}, []string{"code"})
		m.HTTPDurationHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   durationBuckets,
		})
		m.reg.MustRegister(m.HTTPRequestsTotal, m.HTTPDurationHistogram)
	}

	if grpcCounters {
		m.GrpcRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Total gRPC requests by status code",
		}, []string{"code"})
		m.GrpcDurationHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_request_duration_seconds",
			Help:      "gRPC request duration in seconds",
			Buckets:   durationBuckets,
		})
		m.reg.MustRegister(m.GrpcRequestsTotal, m.GrpcDurationHistogram)
	}

	return m
}

// Namespace returns the metric namespace used for every collector of this service.
func Namespace() string {
	return namespace
}

// AddCustomMetric registers a custom Prometheus collector.
func (m *Metrics) AddCustomMetric(c prometheus.Collector) {
	m.reg.MustRegister(c)
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Listen serves /metrics on port until ctx is cancelled. Listener errors are sent on the
// returned channel, which is closed once the server stops.
func (m *Metrics) Listen(ctx context.Context, port int) chan error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		m.log.Info("Starting metrics listener", logger.IntField("port", port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	go func() {
		<-ctx.Done()
		m.log.Info("Stopping metrics listener")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:contextcheck // parent is already cancelled
		defer cancel()
		_ = server.Shutdown(shutdownCtx) //nolint:contextcheck // see above
	}()

	return errChan
}

// GrpcRequestsInterceptor implements gRPC unary interceptor interface
// Note: interface{} usage required by gRPC library signature
func (m *Metrics) GrpcRequestsInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	if m.GrpcRequestsTotal != nil {
		m.GrpcDurationHistogram.Observe(time.Since(start).Seconds())
		m.GrpcRequestsTotal.WithLabelValues(status.Code(err).String()).Inc()
	}
	return resp, err
}

// HTTPMiddleware returns a chi-compatible middleware that tracks HTTP metrics.
// It is a pass-through when HTTP metrics are disabled.
func (m *Metrics) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m.HTTPRequestsTotal == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			m.HTTPDurationHistogram.Observe(time.Since(start).Seconds())
			m.HTTPRequestsTotal.WithLabelValues(strconv.Itoa(rw.statusCode)).Inc()
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack passes connection takeover through to the wrapped writer so websocket upgrades work.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
