package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/tailorline/settlement-api/internal/database"
	"github.com/tailorline/settlement-api/internal/models"
	"github.com/tailorline/settlement-api/pkg/logger"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrDatabase    = errors.New("database error")
	ErrDuplicateTx = errors.New("duplicate transaction id")
)

const orderColumns = `id, customer_id, design_id, tailor_id, amount, escrow_address,
		asa_id, transaction_id, payment_status, is_released, order_date, updated_at`

// OrderRepository handles database operations for orders
type OrderRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *database.Database, logger logger.Logger) *OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger,
	}
}

// BeginTx starts a database transaction
func (r *OrderRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.DB.BeginTxx(ctx, nil)

	if err != nil {
		r.logger.Error("Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return tx, nil
}

// CreateInTx inserts a new order within a transaction. Orders are only ever
// created together with their outbox event, so there is no standalone insert.
func (r *OrderRepository) CreateInTx(tx *sqlx.Tx, order *models.Order) error {
	query := `
		INSERT INTO orders (id, customer_id, design_id, tailor_id, amount, escrow_address,
			asa_id, payment_status, is_released, order_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := tx.Exec(
		query,
		order.ID,
		order.CustomerID,
		order.DesignID,
		order.TailorID,
		order.Amount,
		order.EscrowAddress,
		order.AsaID,
		order.PaymentStatus,
		order.IsReleased,
		order.OrderDate,
		order.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create order in transaction: %w", err)
	}

	return nil
}

// GetByID retrieves an order by its ID
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	var order models.Order
	err := r.db.DB.GetContext(ctx, &order, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get order by ID", "error", err, "orderID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &order, nil
}

// GetByCustomerID retrieves orders placed by a customer
func (r *OrderRepository) GetByCustomerID(ctx context.Context, customerID string, limit, offset int) ([]*models.Order, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM orders
		WHERE customer_id = $1
		ORDER BY order_date DESC
		LIMIT $2 OFFSET $3
	`, orderColumns)

	var orders []*models.Order
	err := r.db.DB.SelectContext(ctx, &orders, query, customerID, limit, offset)

	if err != nil {
		r.logger.Error("Failed to get orders by customer ID", "error", err, "customerID", customerID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return orders, nil
}

// GetByTailorID retrieves orders placed against a tailor's designs
func (r *OrderRepository) GetByTailorID(ctx context.Context, tailorID string, limit, offset int) ([]*models.Order, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM orders
		WHERE tailor_id = $1
		ORDER BY order_date DESC
		LIMIT $2 OFFSET $3
	`, orderColumns)

	var orders []*models.Order
	err := r.db.DB.SelectContext(ctx, &orders, query, tailorID, limit, offset)

	if err != nil {
		r.logger.Error("Failed to get orders by tailor ID", "error", err, "tailorID", tailorID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return orders, nil
}

// ConfirmPaymentInTx moves the payment status from PENDING to CONFIRMED
// within a transaction. It returns false when the order was not pending, so
// callers can distinguish an already-confirmed order from a successful
// transition.
func (r *OrderRepository) ConfirmPaymentInTx(tx *sqlx.Tx, id string) (bool, error) {
	query := `
		UPDATE orders
		SET payment_status = $1, updated_at = $2
		WHERE id = $3 AND payment_status = $4
	`

	result, err := tx.Exec(
		query,
		models.PaymentStatusConfirmed,
		models.GetCurrentTime(),
		id,
		models.PaymentStatusPending,
	)

	if err != nil {
		r.logger.Error("Failed to confirm payment", "error", err, "orderID", id)
		return false, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return rowsAffected == 1, nil
}

// MarkReleasedInTx performs the compare-and-set that closes a settlement:
// is_released flips false to true and the confirmed transaction id is
// recorded, but only if no other settlement got there first. Returns false
// on zero rows affected, which means the order was already settled.
func (r *OrderRepository) MarkReleasedInTx(tx *sqlx.Tx, id, transactionID string) (bool, error) {
	query := `
		UPDATE orders
		SET is_released = TRUE, transaction_id = $1, updated_at = $2
		WHERE id = $3 AND is_released = FALSE
	`

	result, err := tx.Exec(query, transactionID, models.GetCurrentTime(), id)

	if err != nil {
		var pqErr *pq.Error
		// 23505 = unique_violation on transaction_id
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return false, ErrDuplicateTx
		}
		r.logger.Error("Failed to mark order released", "error", err, "orderID", id)
		return false, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return rowsAffected == 1, nil
}
