// Package metrics records friendship workflow and HTTP metrics in Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by services and middleware.
type Recorder interface {
	IncTransition(transition string)
	IncStatusResolution(result string)
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	gatherer prometheus.Gatherer

	transitionsTotal  *prometheus.CounterVec
	resolutionsTotal  *prometheus.CounterVec
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the collectors on reg. A nil reg uses a
// fresh registry, which keeps tests independent of the global one.
func NewPrometheusRecorder(reg *prometheus.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		gatherer: reg,
		transitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "friend_request_transitions_total",
				Help: "Friend request state transitions by kind",
			},
			[]string{"transition"},
		),
		resolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "status_resolutions_total",
				Help: "Friendship status resolutions by result",
			},
			[]string{"result"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

func (p *PrometheusRecorder) IncTransition(transition string) {
	p.transitionsTotal.WithLabelValues(transition).Inc()
}

func (p *PrometheusRecorder) IncStatusResolution(result string) {
	p.resolutionsTotal.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

// NopRecorder discards all observations.
type NopRecorder struct{}

func (NopRecorder) IncTransition(string)                                  {}
func (NopRecorder) IncStatusResolution(string)                            {}
func (NopRecorder) ObserveHTTPRequest(string, string, int, time.Duration) {}
