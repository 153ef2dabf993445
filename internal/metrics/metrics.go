// Package metrics exposes Prometheus instrumentation for the server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RoomsCreated counts rooms created over the process lifetime.
	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "werewolf_rooms_created_total",
		Help: "Total number of rooms created.",
	})

	// GamesStarted counts games started over the process lifetime.
	GamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "werewolf_games_started_total",
		Help: "Total number of games started.",
	})

	// WSConnections tracks currently open websocket connections.
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "werewolf_ws_connections",
		Help: "Number of open websocket connections.",
	})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "werewolf_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request latency labeled by chi route pattern, so
// /api/rooms/12345 and /api/rooms/67890 share a series.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if ctx := chi.RouteContext(r.Context()); ctx != nil && ctx.RoutePattern() != "" {
			path = ctx.RoutePattern()
		}
		httpDuration.WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}
