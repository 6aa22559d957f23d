package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/qna-go-api/internal/middleware"
	"github.com/noah-isme/qna-go-api/internal/observability"
)

// Event subjects, relative to the configured prefix.
const (
	SubjectAnswerCreated  = "answer.created"
	SubjectCommentCreated = "comment.created"
)

// EventPublisher emits domain events. Publishing is best effort and never fails the request.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload interface{})
}

// AnswerCreatedEvent notifies the asker that their question received an answer.
type AnswerCreatedEvent struct {
	AnswerID   string    `json:"answerId"`
	QuestionID string    `json:"questionId"`
	AskerID    string    `json:"askerId"`
	AnswererID string    `json:"answererId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CommentCreatedEvent notifies about a new comment on an answer or question.
type CommentCreatedEvent struct {
	CommentID   string    `json:"commentId"`
	AnswerID    *string   `json:"answerId,omitempty"`
	QuestionID  *string   `json:"questionId,omitempty"`
	CommenterID string    `json:"commenterId"`
	CreatedAt   time.Time `json:"createdAt"`
}

type eventEnvelope struct {
	Subject       string      `json:"subject"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Payload       interface{} `json:"payload"`
	SentAt        time.Time   `json:"sent_at"`
}

type natsPublisher struct {
	conn   *nats.Conn
	prefix string
	logger zerolog.Logger
}

// NewEventPublisher publishes to NATS under prefix. A nil connection yields a publisher that drops
// every event.
func NewEventPublisher(conn *nats.Conn, prefix string, logger zerolog.Logger) EventPublisher {
	if conn == nil {
		return noopPublisher{}
	}
	prefix = strings.Trim(strings.ReplaceAll(prefix, ":", "."), ".")
	return &natsPublisher{
		conn:   conn,
		prefix: prefix,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsPublisher) Publish(ctx context.Context, subject string, payload interface{}) {
	full := subject
	if p.prefix != "" {
		full = p.prefix + "." + subject
	}

	data, err := json.Marshal(eventEnvelope{
		Subject:       subject,
		CorrelationID: middleware.CorrelationIDFromContext(ctx),
		Payload:       payload,
		SentAt:        time.Now().UTC(),
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("subject", full).Msg("failed to encode event")
		observability.EventsPublished().WithLabelValues(subject, "error").Inc()
		return
	}

	if err := p.conn.Publish(full, data); err != nil {
		p.logger.Warn().Err(err).Str("subject", full).Msg("failed to publish event")
		observability.EventsPublished().WithLabelValues(subject, "error").Inc()
		return
	}
	observability.EventsPublished().WithLabelValues(subject, "ok").Inc()
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, interface{}) {}
