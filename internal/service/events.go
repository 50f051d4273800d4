package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peerflow-api/internal/middleware"
)

// Review lifecycle event names, appended to the configured subject base.
const (
	EventReviewCreated   = "created"
	EventResultSubmitted = "submitted"
	EventAggregated      = "aggregated"
)

// EventPublisher broadcasts review lifecycle events to interested consumers
// (the orchestrator, notification fan-out). Publishing is best effort: a
// failed publish is logged, never surfaced to the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload interface{})
}

type reviewEvent struct {
	Event         string      `json:"event"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Payload       interface{} `json:"payload"`
	SentAt        time.Time   `json:"sent_at"`
}

type natsPublisher struct {
	conn        *nats.Conn
	subjectBase string
	logger      zerolog.Logger
}

// NewNATSPublisher wires an event publisher on top of a NATS connection. A
// nil connection yields a publisher that drops every event, so callers never
// need a NATS broker in development or tests.
func NewNATSPublisher(conn *nats.Conn, subjectBase string, logger zerolog.Logger) EventPublisher {
	return &natsPublisher{
		conn:        conn,
		subjectBase: subjectBase,
		logger:      logger.With().Str("component", "review_events").Logger(),
	}
}

func (p *natsPublisher) Publish(ctx context.Context, event string, payload interface{}) {
	if p.conn == nil || p.subjectBase == "" {
		return
	}

	envelope := reviewEvent{
		Event:         event,
		CorrelationID: middleware.CorrelationIDFromContext(ctx),
		Payload:       payload,
		SentAt:        time.Now().UTC(),
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		p.logger.Warn().Err(err).Str("event", event).Msg("failed to encode review event")
		return
	}

	subject := p.subjectBase + "." + event
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish review event")
	}
}
