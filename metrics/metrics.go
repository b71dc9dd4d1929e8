// ABOUTME: Prometheus metrics for CRM operations, stage moves and HTTP traffic
// ABOUTME: Recorder interface with a Prometheus collector and a no-op implementation
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the service and HTTP layers report to.
type Recorder interface {
	RecordOperation(entity, op string, err error)
	RecordStageTransition(from, to string)
	RecordHTTPRequest(method string, status int, duration time.Duration)
}

// Collector records metrics into a Prometheus registry.
type Collector struct {
	operations  *prometheus.CounterVec
	transitions *prometheus.CounterVec
	httpTotal   *prometheus.CounterVec
	httpLatency prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealdesk_operations_total",
			Help: "CRM operations by entity, operation and result",
		}, []string{"entity", "op", "result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealdesk_stage_transitions_total",
			Help: "Deal stage transitions by source and target stage",
		}, []string{"from", "to"}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealdesk_http_requests_total",
			Help: "HTTP requests by method and status code",
		}, []string{"method", "status"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dealdesk_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(c.operations, c.transitions, c.httpTotal, c.httpLatency)
	return c
}

func (c *Collector) RecordOperation(entity, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.operations.WithLabelValues(entity, op, result).Inc()
}

func (c *Collector) RecordStageTransition(from, to string) {
	c.transitions.WithLabelValues(from, to).Inc()
}

func (c *Collector) RecordHTTPRequest(method string, status int, duration time.Duration) {
	c.httpTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.httpLatency.Observe(duration.Seconds())
}

// Handler serves the registry for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. Used by the CLI and tests.
type Nop struct{}

func (Nop) RecordOperation(string, string, error)        {}
func (Nop) RecordStageTransition(string, string)         {}
func (Nop) RecordHTTPRequest(string, int, time.Duration) {}
