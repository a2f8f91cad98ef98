package models

import (
	"encoding/json"
	"time"
)

// OutboxStatus represents the status of an outbox message
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusCompleted  OutboxStatus = "completed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// Settlement event types published through the outbox
const (
	EventOrderCreated     = "order_created"
	EventPaymentConfirmed = "payment_confirmed"
	EventFundsReleased    = "funds_released"
	EventFundsRefunded    = "funds_refunded"
)

// OutboxMessage represents a message to be published from the outbox table
type OutboxMessage struct {
	ID                 int64        `db:"id" json:"id"`
	AggregateType      string       `db:"aggregate_type" json:"aggregate_type"`
	AggregateID        string       `db:"aggregate_id" json:"aggregate_id"`
	EventType          string       `db:"event_type" json:"event_type"`
	Payload            []byte       `db:"payload" json:"payload"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	ProcessedAt        *time.Time   `db:"processed_at" json:"processed_at,omitempty"`
	ProcessingAttempts int          `db:"processing_attempts" json:"processing_attempts"`
	LastError          *string      `db:"last_error" json:"last_error,omitempty"`
	Status             OutboxStatus `db:"status" json:"status"`
}

// OutboxMessageEvent represents the event data in the outbox message
type OutboxMessageEvent struct {
	EventType   string      `json:"event_type"`
	EventID     string      `json:"event_id"`
	AggregateID string      `json:"aggregate_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Data        interface{} `json:"data"`
}

// newOrderEvent wraps order data in an outbox message of the given type
func newOrderEvent(eventType string, order *Order, data interface{}) (*OutboxMessage, error) {
	event := OutboxMessageEvent{
		EventType:   eventType,
		EventID:     GenerateID("evt"),
		AggregateID: order.ID,
		OccurredAt:  time.Now().UTC(),
		Data:        data,
	}

	payload, err := json.Marshal(event)

	if err != nil {
		return nil, err
	}

	return &OutboxMessage{
		EventType:          eventType,
		Payload:            payload,
		AggregateType:      "order",
		AggregateID:        order.ID,
		CreatedAt:          time.Now().UTC(),
		ProcessingAttempts: 0,
		Status:             OutboxStatusPending,
	}, nil
}

// NewOrderCreatedEvent creates the event published when an order is placed
func NewOrderCreatedEvent(order *Order) (*OutboxMessage, error) {
	return newOrderEvent(EventOrderCreated, order, order)
}

// NewPaymentConfirmedEvent creates the event published when the tailor
// acknowledges the initial payment
func NewPaymentConfirmedEvent(order *Order) (*OutboxMessage, error) {
	return newOrderEvent(EventPaymentConfirmed, order, map[string]interface{}{
		"order_id":       order.ID,
		"customer_id":    order.CustomerID,
		"tailor_id":      order.TailorID,
		"payment_status": order.PaymentStatus,
	})
}

// NewSettlementEvent creates the event published when escrowed funds are
// released or refunded. The event type depends on which terminal action won.
func NewSettlementEvent(order *Order, refunded bool, transactionID string) (*OutboxMessage, error) {
	eventType := EventFundsReleased

	if refunded {
		eventType = EventFundsRefunded
	}

	return newOrderEvent(eventType, order, map[string]interface{}{
		"order_id":       order.ID,
		"customer_id":    order.CustomerID,
		"tailor_id":      order.TailorID,
		"amount":         order.Amount,
		"escrow_address": order.EscrowAddress,
		"transaction_id": transactionID,
	})
}
