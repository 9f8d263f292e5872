package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type orderPayload interface {
	OrderRef() uuid.UUID
}

type route struct {
	aggregate enums.OutboxAggregateType
	topic     string
	check     func(data json.RawMessage, aggregateID uuid.UUID) error
}

// Routes maps each domain event type to its topic and payload schema.
type Routes struct {
	byType map[enums.OutboxEventType]route
}

func NewRoutes(cfg config.PubSubConfig) (*Routes, error) {
	topic := strings.TrimSpace(cfg.DomainTopic)
	if topic == "" {
		return nil, errors.New("domain topic is required")
	}
	r := &Routes{byType: map[enums.OutboxEventType]route{}}
	addOrderRoute[payloads.OrderCreatedEvent](r, enums.EventOrderCreated, topic)
	addOrderRoute[payloads.OrderStatusChangedEvent](r, enums.EventOrderStatusChanged, topic)
	addOrderRoute[payloads.OrderPaymentStatusChangedEvent](r, enums.EventOrderPaymentStatusChanged, topic)
	addOrderRoute[payloads.OrderShippingAddressChangedEvent](r, enums.EventOrderShippingChanged, topic)
	addOrderRoute[payloads.OrderRefundedEvent](r, enums.EventOrderRefunded, topic)
	addOrderRoute[payloads.OrderDeletedEvent](r, enums.EventOrderDeleted, topic)
	return r, nil
}

func addOrderRoute[T orderPayload](r *Routes, eventType enums.OutboxEventType, topic string) {
	r.byType[eventType] = route{
		aggregate: enums.AggregateOrder,
		topic:     topic,
		check:     checkOrderPayload[T],
	}
}

func checkOrderPayload[T orderPayload](data json.RawMessage, aggregateID uuid.UUID) error {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if payload.OrderRef() != aggregateID {
		return fmt.Errorf("payload order %s does not match aggregate %s", payload.OrderRef(), aggregateID)
	}
	return nil
}

// delivery is an outbox row that passed validation and is ready to publish.
type delivery struct {
	row      models.OutboxEvent
	topic    string
	envelope outbox.PayloadEnvelope
}

// resolve validates a row. Every error it returns is permanent.
func (r *Routes) resolve(row models.OutboxEvent) (delivery, error) {
	rt, ok := r.byType[row.EventType]
	if !ok {
		return delivery{}, permanent(fmt.Errorf("unsupported event type %q", row.EventType))
	}
	if rt.aggregate != row.AggregateType {
		return delivery{}, permanent(fmt.Errorf("event %s belongs to %s, row says %s", row.EventType, rt.aggregate, row.AggregateType))
	}
	if row.AggregateID == uuid.Nil {
		return delivery{}, permanent(errors.New("missing aggregate id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		return delivery{}, permanent(fmt.Errorf("decode envelope: %w", err))
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return delivery{}, permanent(fmt.Errorf("empty %s payload", row.EventType))
	}
	if err := rt.check(data, row.AggregateID); err != nil {
		return delivery{}, permanent(fmt.Errorf("%s: %w", row.EventType, err))
	}
	return delivery{row: row, topic: rt.topic, envelope: envelope}, nil
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// permanent marks err as one that retrying cannot fix.
func permanent(err error) error {
	return permanentError{err: err}
}

func isPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
