// Package natsbus publishes appointment events to NATS.
package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/d0ggzi/celery-clinic/internal/domain/model"
)

// DefaultSubject is where appointment.recorded events go when no subject is configured.
const DefaultSubject = "appointments.recorded"

// RecordedEvent is the JSON body of an appointment.recorded message.
type RecordedEvent struct {
	Type       string    `json:"type"`
	RecordID   string    `json:"record_id"`
	Doctor     string    `json:"doctor"`
	Date       string    `json:"date"`
	RecordedAt time.Time `json:"recorded_at"`
}

const eventTypeRecorded = "appointment.recorded"

type conn interface {
	Publish(subject string, data []byte) error
}

// Publisher implements core.EventPublisher on a NATS connection.
type Publisher struct {
	conn    conn
	nc      *nats.Conn
	subject string
	now     func() time.Time
	logger  *slog.Logger
}

// Connect dials url with unlimited reconnects and returns a publisher for subject.
func Connect(url, subject string, logger *slog.Logger) (*Publisher, error) {
	if url == "" {
		return nil, errors.New("nats url is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("celery-clinic"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	p := newPublisher(nc, subject, logger)
	p.nc = nc
	return p, nil
}

func newPublisher(c conn, subject string, logger *slog.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:    c,
		subject: subject,
		now:     time.Now,
		logger:  logger.With("component", "natsbus"),
	}
}

// PublishRecorded sends an appointment.recorded event for rec.
func (p *Publisher) PublishRecorded(ctx context.Context, rec model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(RecordedEvent{
		Type:       eventTypeRecorded,
		RecordID:   rec.ID,
		Doctor:     rec.Doctor,
		Date:       rec.Date,
		RecordedAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, body); err != nil {
		return fmt.Errorf("nats publish %s: %w", p.subject, err)
	}
	p.logger.DebugContext(ctx, "event published", "subject", p.subject, "record_id", rec.ID)
	return nil
}

// Close drains the connection when the publisher owns one.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
