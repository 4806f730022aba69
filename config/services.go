package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeWorker runs the appointment task worker pool.
	ServiceModeWorker ServiceMode = "worker"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeWorker,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeWorker:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, worker)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// QueueConfig contains task queue configuration.
type QueueConfig struct {
	// Name is the Redis list that holds pending task messages.
	Name string `env:"QUEUE_NAME" envDefault:"appointments"`

	// ResultTTL is how long task state documents are kept after their last update. 0 keeps them forever.
	ResultTTL time.Duration `env:"TASK_RESULT_TTL" envDefault:"0"`

	// ReserveTimeout is how long a worker blocks waiting for the next task.
	ReserveTimeout time.Duration `env:"QUEUE_RESERVE_TIMEOUT" envDefault:"1s"`
}

// Sanitize applies guardrails to queue configuration values.
func (q *QueueConfig) Sanitize() {
	q.Name = strings.TrimSpace(q.Name)
	if q.Name == "" {
		q.Name = "appointments"
	}
	switch {
	case q.ResultTTL < 0:
		q.ResultTTL = 0
	case q.ResultTTL > 0 && q.ResultTTL < time.Minute:
		q.ResultTTL = time.Minute
	}
	if q.ReserveTimeout < 100*time.Millisecond {
		q.ReserveTimeout = 100 * time.Millisecond
	}
}

// WorkerConfig contains worker pool configuration.
type WorkerConfig struct {
	// Concurrency is the number of worker goroutines.
	Concurrency int `env:"WORKER_CONCURRENCY" envDefault:"4"`

	// PhaseDelay is how long each processing phase is held.
	PhaseDelay time.Duration `env:"WORKER_PHASE_DELAY" envDefault:"10s"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	if w.Concurrency < 1 {
		w.Concurrency = 1
	}
	if w.PhaseDelay < 0 {
		w.PhaseDelay = 0
	}
}
