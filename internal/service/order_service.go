package service

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/tailorline/settlement-api/internal/ledger"
	"github.com/tailorline/settlement-api/internal/models"
	"github.com/tailorline/settlement-api/internal/repository"
	"github.com/tailorline/settlement-api/pkg/errors"
	"github.com/tailorline/settlement-api/pkg/logger"
)

// EscrowProvider compiles an escrow program on the ledger node and returns
// the address of the account it governs
type EscrowProvider interface {
	CompileEscrow(ctx context.Context, source []byte) (string, error)
}

// OrderService handles order placement and payment confirmation. Fund
// release and refund belong to the settlement coordinator.
type OrderService struct {
	orderRepo  *repository.OrderRepository
	designRepo *repository.DesignRepository
	walletRepo *repository.WalletRepository
	outboxRepo *repository.OutboxRepository
	escrow     EscrowProvider
	logger     logger.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo *repository.OrderRepository,
	designRepo *repository.DesignRepository,
	walletRepo *repository.WalletRepository,
	outboxRepo *repository.OutboxRepository,
	escrow EscrowProvider,
	logger logger.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:  orderRepo,
		designRepo: designRepo,
		walletRepo: walletRepo,
		outboxRepo: outboxRepo,
		escrow:     escrow,
		logger:     logger,
	}
}

// CreateOrder places an order for a design. The amount is frozen from the
// design's current price, the escrow account is provisioned on the ledger,
// and the order row lands together with its outbox event in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, actor models.Actor, designID string, asaID *int64) (*models.Order, error) {
	if actor.Role != models.RoleCustomer {
		return nil, errors.NewForbiddenError("only customers can place orders")
	}

	design, err := s.designRepo.GetByID(ctx, designID)

	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NewNotFoundError(fmt.Sprintf("design %s not found", designID))
		}
		return nil, err
	}

	tailorWallet, err := s.walletRepo.GetByActorID(ctx, design.TailorID)

	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NewConflictError("tailor has no wallet configured")
		}
		return nil, err
	}

	order := models.NewOrder(actor.ID, design)
	order.AsaID = asaID

	escrowAddress, err := s.escrow.CompileEscrow(ctx, ledger.EscrowSource(tailorWallet.Address, asaID))

	if err != nil {
		s.logger.Error("Failed to provision escrow account", "error", err, "designID", designID)
		return nil, err
	}

	order.EscrowAddress = escrowAddress

	outboxMsg, err := models.NewOrderCreatedEvent(order)

	if err != nil {
		s.logger.Error("Failed to create outbox message", "error", err)
		return nil, fmt.Errorf("failed to create outbox message: %w", err)
	}

	// Begin transaction
	tx, err := s.orderRepo.BeginTx(ctx)

	if err != nil {
		return nil, err
	}

	// Rollback transaction if any error occurs
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback transaction", "error", rbErr)
			}
		}
	}()

	if err = s.orderRepo.CreateInTx(tx, order); err != nil {
		return nil, err
	}

	if err = s.outboxRepo.CreateInTx(tx, outboxMsg); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", "error", err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Order created",
		"orderID", order.ID,
		"designID", design.ID,
		"escrowAddress", order.EscrowAddress,
		"outboxID", outboxMsg.ID)

	return order, nil
}

// ConfirmPayment acknowledges the initial payment on an order. Only the
// tailor owning the order's design may confirm, and only from PENDING.
func (s *OrderService) ConfirmPayment(ctx context.Context, actor models.Actor, orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)

	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NewNotFoundError(fmt.Sprintf("order %s not found", orderID))
		}
		return nil, err
	}

	if !actor.CanConfirm(order) {
		return nil, errors.NewForbiddenError("only the tailor owning the design can confirm the order")
	}

	if order.PaymentStatus == models.PaymentStatusConfirmed {
		return nil, errors.NewInvalidStateError(fmt.Sprintf("order %s is already confirmed", orderID))
	}

	order.PaymentStatus = models.PaymentStatusConfirmed

	outboxMsg, err := models.NewPaymentConfirmedEvent(order)

	if err != nil {
		s.logger.Error("Failed to create outbox message", "error", err)
		return nil, fmt.Errorf("failed to create outbox message: %w", err)
	}

	tx, err := s.orderRepo.BeginTx(ctx)

	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback transaction", "error", rbErr)
			}
		}
	}()

	confirmed, err := s.orderRepo.ConfirmPaymentInTx(tx, orderID)

	if err != nil {
		return nil, err
	}

	if !confirmed {
		// A concurrent confirmation won
		err = errors.NewInvalidStateError(fmt.Sprintf("order %s is already confirmed", orderID))
		return nil, err
	}

	if err = s.outboxRepo.CreateInTx(tx, outboxMsg); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", "error", err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Order payment confirmed", "orderID", orderID, "tailorID", actor.ID)
	return order, nil
}

// GetOrder retrieves an order, visible only to its parties
func (s *OrderService) GetOrder(ctx context.Context, actor models.Actor, orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)

	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NewNotFoundError(fmt.Sprintf("order %s not found", orderID))
		}
		return nil, err
	}

	if !actor.CanView(order) {
		return nil, errors.NewForbiddenError("order belongs to another customer and tailor")
	}

	return order, nil
}

// GetOrdersForActor lists the actor's side of the order book: customers see
// orders they placed, tailors see orders against their designs
func (s *OrderService) GetOrdersForActor(ctx context.Context, actor models.Actor, limit, offset int) ([]*models.Order, error) {
	switch actor.Role {
	case models.RoleCustomer:
		return s.orderRepo.GetByCustomerID(ctx, actor.ID, limit, offset)
	case models.RoleTailor:
		return s.orderRepo.GetByTailorID(ctx, actor.ID, limit, offset)
	default:
		return nil, errors.NewInvalidInputError(fmt.Sprintf("unknown role: %s", actor.Role))
	}
}
