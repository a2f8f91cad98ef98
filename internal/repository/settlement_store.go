package repository

import (
	"context"
	"fmt"

	"github.com/tailorline/settlement-api/internal/models"
	"github.com/tailorline/settlement-api/pkg/logger"
)

// SettlementStore groups the order and outbox repositories behind the single
// write the coordinator needs: the compare-and-set that closes a settlement,
// committed atomically with its integration event.
type SettlementStore struct {
	orders *OrderRepository
	outbox *OutboxRepository
	logger logger.Logger
}

// NewSettlementStore creates a new SettlementStore
func NewSettlementStore(orders *OrderRepository, outbox *OutboxRepository, logger logger.Logger) *SettlementStore {
	return &SettlementStore{
		orders: orders,
		outbox: outbox,
		logger: logger,
	}
}

// GetOrder retrieves an order by id
func (s *SettlementStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// MarkReleased closes a settlement: the release flag flips false to true,
// the transaction id is recorded, and the settlement event lands in the
// outbox, all in one database transaction. Returns false without writing
// anything when another settlement already won the order.
func (s *SettlementStore) MarkReleased(ctx context.Context, orderID, transactionID string, event *models.OutboxMessage) (bool, error) {
	tx, err := s.orders.BeginTx(ctx)

	if err != nil {
		return false, err
	}

	won, err := s.orders.MarkReleasedInTx(tx, orderID, transactionID)

	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to rollback settlement transaction", "error", rbErr)
		}
		return false, err
	}

	if !won {
		// Lost the race; nothing to persist
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to rollback settlement transaction", "error", rbErr)
		}
		return false, nil
	}

	if err := s.outbox.CreateInTx(tx, event); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to rollback settlement transaction", "error", rbErr)
		}
		return false, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit settlement transaction", "error", err, "orderID", orderID)
		return false, fmt.Errorf("failed to commit settlement: %w", err)
	}

	return true, nil
}
