// Package metrics emits task and HTTP metrics through a small tag-based Sink.
package metrics

import "time"

// Sink describes the minimal interface required to emit metrics.
// Implementations must not block and never propagate errors.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

// NoopSink discards everything.
type NoopSink struct{}

// Count implements Sink.
func (NoopSink) Count(string, int64, map[string]string) {}

// Timing implements Sink.
func (NoopSink) Timing(string, time.Duration, map[string]string) {}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
