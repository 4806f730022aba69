package config

import "strings"

// ObservabilityConfig groups configuration that controls metrics and event fan-out.
type ObservabilityConfig struct {
	Metrics ObservabilityMetricsConfig
	Events  EventsConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Events.Sanitize()
}

// ObservabilityMetricsConfig controls the Prometheus metrics endpoint.
type ObservabilityMetricsConfig struct {
	Enabled bool   `env:"OBSERVABILITY_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"OBSERVABILITY_METRICS_PATH"    envDefault:"/metrics"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.Path = strings.TrimSpace(c.Path)
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if !strings.HasPrefix(c.Path, "/") {
		c.Path = "/" + c.Path
	}
}

// EventsConfig controls publishing of appointment events to NATS.
type EventsConfig struct {
	NATSURL string `env:"EVENTS_NATS_URL" envDefault:""`
	Subject string `env:"EVENTS_SUBJECT"  envDefault:"appointments.recorded"`
}

// Sanitize normalises event publishing configuration values.
func (c *EventsConfig) Sanitize() {
	c.NATSURL = strings.TrimSpace(c.NATSURL)
	c.Subject = strings.TrimSpace(c.Subject)
	if c.Subject == "" {
		c.Subject = "appointments.recorded"
	}
}

// IsEnabled reports whether event publishing is configured.
func (c *EventsConfig) IsEnabled() bool {
	return c.NATSURL != ""
}
