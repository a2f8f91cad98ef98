package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"

	"github.com/tailorline/settlement-api/internal/models"
	"github.com/tailorline/settlement-api/pkg/logger"
)

// SettlementEventsHandler consumes settlement events from Kafka. It is the
// read side of the escrow workflow, where notification and bookkeeping
// integrations hang off.
type SettlementEventsHandler struct {
	logger logger.Logger
}

// NewSettlementEventsHandler creates a new SettlementEventsHandler
func NewSettlementEventsHandler(logger logger.Logger) *SettlementEventsHandler {
	return &SettlementEventsHandler{
		logger: logger,
	}
}

// HandleMessage handles incoming settlement events from Kafka messages
func (h *SettlementEventsHandler) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event models.OutboxMessageEvent

	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("failed to unmarshal message", "error", err)
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	h.logger.Info("Handling settlement event",
		"eventType", event.EventType,
		"eventId", event.EventID,
		"aggregateId", event.AggregateID,
		"occurredAt", event.OccurredAt,
	)

	switch event.EventType {
	case models.EventOrderCreated:
		return h.handleOrderCreated(event)
	case models.EventPaymentConfirmed:
		return h.handlePaymentConfirmed(event)
	case models.EventFundsReleased, models.EventFundsRefunded:
		return h.handleSettled(event)
	default:
		h.logger.Warn("unknown event type", "eventType", event.EventType)
		return nil
	}
}

// handleOrderCreated handles the order_created event
func (h *SettlementEventsHandler) handleOrderCreated(event models.OutboxMessageEvent) error {
	h.logger.Info("Processing order created event",
		"orderID", event.AggregateID,
		"eventID", event.EventID,
	)

	// Downstream consumers pick the order up from here: the tailor's
	// dashboard feed and the escrow funding watcher.

	return nil
}

// handlePaymentConfirmed handles the payment_confirmed event
func (h *SettlementEventsHandler) handlePaymentConfirmed(event models.OutboxMessageEvent) error {
	h.logger.Info("Processing payment confirmed event",
		"orderID", event.AggregateID,
		"eventID", event.EventID)

	return nil
}

// handleSettled handles the funds_released and funds_refunded events
func (h *SettlementEventsHandler) handleSettled(event models.OutboxMessageEvent) error {
	data, ok := event.Data.(map[string]interface{})

	if !ok {
		h.logger.Error("Invalid event data format", "eventID", event.EventID)
		return fmt.Errorf("invalid event data format")
	}

	transactionID, _ := data["transaction_id"].(string)

	h.logger.Info("Order settled",
		"orderID", event.AggregateID,
		"eventType", event.EventType,
		"transactionID", transactionID)

	return nil
}
