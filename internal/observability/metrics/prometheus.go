package metrics

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink with Prometheus collectors.
// Registration errors are logged and never propagated; unknown metric names are dropped.
type PrometheusSink struct {
	taskTransitions *prometheus.CounterVec
	taskDuration    *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	logger          *slog.Logger
}

var (
	taskTransitionLabels = []string{"task", "transition", "result", "error_class"}
	taskDurationLabels   = []string{"task", "transition", "result"}
	httpLabels           = []string{"method", "route", "status"}
)

var _ Sink = (*PrometheusSink)(nil)

// NewPrometheusSink creates collectors and registers them with reg.
func NewPrometheusSink(reg prometheus.Registerer, logger *slog.Logger) *PrometheusSink {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PrometheusSink{logger: logger.With("component", "metrics")}

	s.taskTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clinic_task_transitions_total",
		Help: "Task lifecycle transitions by task, transition and result.",
	}, taskTransitionLabels)
	s.taskDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clinic_task_duration_seconds",
		Help:    "Wall time from reservation to completion of a task.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 20, 30, 60, 120},
	}, taskDurationLabels)
	s.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clinic_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, httpLabels)
	s.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clinic_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, httpLabels)

	s.register(reg, s.taskTransitions, "clinic_task_transitions_total")
	s.register(reg, s.taskDuration, "clinic_task_duration_seconds")
	s.register(reg, s.httpRequests, "clinic_http_requests_total")
	s.register(reg, s.httpDuration, "clinic_http_request_duration_seconds")
	return s
}

func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if reg == nil {
		return
	}
	if err := reg.Register(c); err != nil {
		s.logger.Warn("failed to register metric", "metric", name, "error", err)
	}
}

// Count implements Sink.
func (s *PrometheusSink) Count(name string, value int64, tags map[string]string) {
	switch name {
	case MetricTaskTransition:
		s.taskTransitions.WithLabelValues(labelValues(taskTransitionLabels, tags)...).Add(float64(value))
	case MetricHTTPRequest:
		s.httpRequests.WithLabelValues(labelValues(httpLabels, tags)...).Add(float64(value))
	}
}

// Timing implements Sink.
func (s *PrometheusSink) Timing(name string, value time.Duration, tags map[string]string) {
	switch name {
	case MetricTaskDuration:
		s.taskDuration.WithLabelValues(labelValues(taskDurationLabels, tags)...).Observe(value.Seconds())
	case MetricHTTPDuration:
		s.httpDuration.WithLabelValues(labelValues(httpLabels, tags)...).Observe(value.Seconds())
	}
}

func labelValues(names []string, tags map[string]string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = tags[n]
	}
	return out
}

// EmitHTTPRequest records one served request.
func EmitHTTPRequest(sink Sink, in HTTPMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"method": in.Method,
		"route":  in.Route,
		"status": strconv.Itoa(in.Status),
	}
	sink.Count(MetricHTTPRequest, 1, tags)
	sink.Timing(MetricHTTPDuration, in.Duration, CloneTags(tags))
}
