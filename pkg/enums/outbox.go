package enums

// OutboxAggregateType is the aggregate_type column of outbox_events.
type OutboxAggregateType string

const AggregateOrder OutboxAggregateType = "order"

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateOrder
}

// OutboxEventType is the event_type column of outbox_events and the
// event_type attribute of published messages.
type OutboxEventType string

const (
	EventOrderCreated              OutboxEventType = "order_created"
	EventOrderStatusChanged        OutboxEventType = "order_status_changed"
	EventOrderPaymentStatusChanged OutboxEventType = "order_payment_status_changed"
	EventOrderShippingChanged      OutboxEventType = "order_shipping_address_changed"
	EventOrderRefunded             OutboxEventType = "order_refunded"
	EventOrderDeleted              OutboxEventType = "order_deleted"
)

// OrderEventTypes lists every event an order emits.
var OrderEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderPaymentStatusChanged,
	EventOrderShippingChanged,
	EventOrderRefunded,
	EventOrderDeleted,
}

func (e OutboxEventType) IsValid() bool {
	for _, known := range OrderEventTypes {
		if e == known {
			return true
		}
	}
	return false
}

// OutboxDLQErrorReason records why a row was moved to outbox_dlq.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts means the retry budget ran out.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable means the row can never be published as is.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
