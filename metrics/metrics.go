// Package metrics exposes Prometheus metrics for the pipeline services on a
// dedicated listener.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// StatusRequests counts requests to the toolstate status API by endpoint.
	StatusRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolstate_status_requests_total",
		Help: "Requests served by the toolstate status API.",
	}, []string{"endpoint"})

	// StoreOperationErrors counts failed artifact store operations.
	StoreOperationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolstate_store_errors_total",
		Help: "Failed artifact store operations by operation.",
	}, []string{"op"})
)

// MetricsServer serves the Prometheus registry over HTTP.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the given listen address. The name is
// kept for parity with service identification in logs.
func New(name, listenAddr string) (*MetricsServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:         listenAddr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}, nil
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
