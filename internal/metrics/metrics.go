// Package metrics exposes Prometheus collectors for the prediction engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RoundsCreated counts rounds opened, labeled by mode.
	RoundsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xelma_rounds_created_total",
		Help: "Total number of prediction rounds created.",
	}, []string{"mode"})

	// RoundsResolved counts rounds settled, labeled by mode and outcome
	// (paid, refunded, void).
	RoundsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xelma_rounds_resolved_total",
		Help: "Total number of prediction rounds resolved.",
	}, []string{"mode", "outcome"})

	// BetsPlaced counts accepted bets, labeled by side ("up", "down",
	// "precision").
	BetsPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xelma_bets_placed_total",
		Help: "Total number of accepted bets and predictions.",
	}, []string{"side"})

	// StakedStroops accumulates the total stake accepted, in stroops.
	StakedStroops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xelma_staked_stroops_total",
		Help: "Total stake accepted across all rounds, in stroops.",
	})

	// PaidStroops accumulates the total winnings awarded, in stroops.
	PaidStroops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xelma_paid_stroops_total",
		Help: "Total winnings awarded across all settlements, in stroops.",
	})

	// DustStroops accumulates the truncation remainder left unallocated
	// by integer settlement arithmetic.
	DustStroops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xelma_dust_stroops_total",
		Help: "Total truncation dust left unallocated by settlements, in stroops.",
	})

	// ClaimsTotal counts claim operations that moved a nonzero amount.
	ClaimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xelma_claims_total",
		Help: "Total number of nonzero winnings claims.",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xelma_http_requests_total",
		Help: "Total HTTP requests by method, path and status.",
	}, []string{"method", "path", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "xelma_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency for every route.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		httpRequests.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(sw.status)).Inc()
		httpDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
