package nats

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"sudooom.memmatch/internal/game/event"
)

// Conn publishing side of *nats.Conn
type Conn interface {
	Publish(subject string, data []byte) error
}

// EventPublisher forwards session notifications to NATS for audio and presentation services
type EventPublisher struct {
	nc     Conn
	prefix string
	failed atomic.Int64
	logger *slog.Logger
}

// NewEventPublisher creates the publisher
func NewEventPublisher(nc Conn, prefix string) *EventPublisher {
	return &EventPublisher{
		nc:     nc,
		prefix: prefix,
		logger: slog.Default().With("component", "EventPublisher"),
	}
}

// Publish sends e on its session subject. Matches event.Handler so it can observe sessions directly.
func (p *EventPublisher) Publish(e event.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		p.failed.Add(1)
		p.logger.Error("Failed to marshal event", "kind", e.Kind, "error", err)
		return
	}

	subject := EventSubject(p.prefix, e.SessionID)
	if err := p.nc.Publish(subject, data); err != nil {
		p.failed.Add(1)
		p.logger.Error("Failed to publish event", "subject", subject, "kind", e.Kind, "error", err)
		return
	}

	p.logger.Debug("Published event", "subject", subject, "kind", e.Kind, "round", e.Round)
}

// Failed number of events that could not be published
func (p *EventPublisher) Failed() int64 {
	return p.failed.Load()
}
