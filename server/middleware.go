package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/buildsys/brick-api/logger"
)

var (
	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brick_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "code"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "brick_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	queryRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brick_http_query_rate_limited_total",
		Help: "Raw queries rejected by the rate limiter",
	})
)

// requestLog writes one line per request with the chi request id.
func (a *App) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []any{
			logger.FieldRequestID, middleware.GetReqID(r.Context()),
			logger.FieldMethod, r.Method,
			logger.FieldPath, r.URL.Path,
			logger.FieldStatus, status,
			logger.FieldDurationMS, time.Since(start).Milliseconds(),
		}
		if status >= http.StatusInternalServerError {
			a.log.Warnw("request", fields...)
			return
		}
		a.log.Debugw("request", fields...)
	})
}

// instrument records request metrics labelled with the matched route
// pattern, so path parameters do not explode label cardinality.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		requestTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
