package metrics

import (
	"time"

	obserrors "github.com/d0ggzi/celery-clinic/internal/observability/errors"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultIgnored = "ignored"
)

// Metric names understood by PrometheusSink.
const (
	MetricTaskTransition = "task.transition"
	MetricTaskDuration   = "task.duration"
	MetricHTTPRequest    = "http.request"
	MetricHTTPDuration   = "http.duration"
)

// TaskMetric captures details about a task lifecycle event for metric emission.
type TaskMetric struct {
	Task       string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitTaskLifecycle emits standardised task lifecycle metrics.
func EmitTaskLifecycle(sink Sink, in TaskMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"task":       in.Task,
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count(MetricTaskTransition, 1, tags)
	if in.Duration > 0 {
		durTags := CloneTags(tags)
		delete(durTags, "error_class")
		sink.Timing(MetricTaskDuration, in.Duration, durTags)
	}
}

// HTTPMetric describes one served request.
type HTTPMetric struct {
	Method   string
	Route    string
	Status   int
	Duration time.Duration
}
