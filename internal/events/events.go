// Package events publishes booking and payment domain events. Publishing is
// best effort: a failed publish is logged and never fails the request.
package events

import (
	"carrental/pkg/kafka"
	"carrental/pkg/logger"
	"context"
	"time"
)

const (
	BookingCreated       = "booking.created"
	BookingStatusChanged = "booking.status_changed"
	BookingCancelled     = "booking.cancelled"
	PaymentCreated       = "payment.created"
	PaymentStatusChanged = "payment.status_changed"
	PaymentRefunded      = "payment.refunded"

	source        = "carrental-api"
	schemaVersion = "1"
)

type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"-"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

func New(eventType, key string, data any) Event {
	return Event{
		Type:       eventType,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	producer messagePublisher
	log      *logger.Logger
	timeout  time.Duration
}

func NewKafkaPublisher(producer messagePublisher, log *logger.Logger, timeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		log:      log,
		timeout:  timeout,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) {
	msg, err := kafka.NewMessage().
		WithKey(event.Key).
		WithEventType(event.Type).
		WithSource(source).
		WithSchemaVersion(schemaVersion).
		WithCorrelationID(correlationID(ctx)).
		WithValue(event).
		Build()
	if err != nil {
		p.log.Error("failed to build event message",
			"event_type", event.Type,
			"key", event.Key,
			"error", err,
		)
		return
	}

	// The request may already be done; the event outlives it.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.producer.Publish(pubCtx, msg); err != nil {
		p.log.Warn("failed to publish event",
			"event_type", event.Type,
			"key", event.Key,
			"event_id", msg.GetEventID(),
			"error", err,
		)
	}
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) {}

type correlationKey struct{}

// WithCorrelationID tags events published under ctx with id, usually the
// HTTP request id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func correlationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
