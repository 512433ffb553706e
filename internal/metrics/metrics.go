// Package metrics exposes Prometheus collectors for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder groups the collectors registered on one registry.
type Recorder struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	kanbanMoves   *prometheus.CounterVec
	badgesAwarded *prometheus.CounterVec
	searchQueries *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, so that several
// recorders (one per test) can coexist.
func New() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Recorder{
		registry: registry,
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ontrack_http_requests_total",
				Help: "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ontrack_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		kanbanMoves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ontrack_kanban_moves_total",
				Help: "Kanban moves by target stage and outcome",
			},
			[]string{"to_stage", "outcome"},
		),
		badgesAwarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ontrack_badges_awarded_total",
				Help: "Badges newly earned by users",
			},
			[]string{"badge"},
		),
		searchQueries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ontrack_search_queries_total",
				Help: "Search queries by backend",
			},
			[]string{"backend"},
		),
	}
}

func (r *Recorder) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// builtinStages are the stage keys every board starts with. User-defined
// stages share the "custom" label.
var builtinStages = map[string]bool{
	"todo":      true,
	"applied":   true,
	"interview": true,
	"done":      true,
}

// StageLabel bounds the to_stage label to the built-in keys plus "custom".
func StageLabel(stageKey string) string {
	if builtinStages[stageKey] {
		return stageKey
	}
	return "custom"
}

func (r *Recorder) KanbanMove(toStage string, ok bool) {
	if r == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	r.kanbanMoves.WithLabelValues(StageLabel(toStage), outcome).Inc()
}

func (r *Recorder) BadgesAwarded(ids []string) {
	if r == nil {
		return
	}
	for _, id := range ids {
		r.badgesAwarded.WithLabelValues(id).Inc()
	}
}

func (r *Recorder) SearchQuery(backend string) {
	if r == nil {
		return
	}
	r.searchQueries.WithLabelValues(backend).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
