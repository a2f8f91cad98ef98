package settlement

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/tailorline/settlement-api/internal/ledger"
	"github.com/tailorline/settlement-api/internal/models"
	"github.com/tailorline/settlement-api/internal/repository"
	"github.com/tailorline/settlement-api/pkg/errors"
	"github.com/tailorline/settlement-api/pkg/logger"
	"github.com/tailorline/settlement-api/pkg/retry"
)

// OrderStore is the slice of the order store the coordinator needs
type OrderStore interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	// MarkReleased is the atomic compare-and-set on is_released; it returns
	// false when another settlement already closed the order.
	MarkReleased(ctx context.Context, orderID, transactionID string, event *models.OutboxMessage) (bool, error)
}

// WalletStore resolves an actor's ledger wallet
type WalletStore interface {
	GetByActorID(ctx context.Context, actorID string) (*models.Wallet, error)
}

// LedgerClient is the consumed capability set of the ledger node
type LedgerClient interface {
	SuggestedParams(ctx context.Context) (ledger.NetworkParams, error)
	Submit(ctx context.Context, signed []byte) (string, error)
	PendingInfo(ctx context.Context, txID string) (ledger.Confirmation, error)
}

// Config bounds the synchronous confirmation wait
type Config struct {
	// MaxPollRounds caps how often the coordinator asks the node about a
	// pending transaction before giving up with a timeout
	MaxPollRounds   int
	PollInterval    time.Duration
	MaxPollInterval time.Duration
	// InFlightTTL is the expiry of the per-order in-flight marker
	InFlightTTL time.Duration
}

// Result is the outcome of a successful settlement
type Result struct {
	Order          *models.Order
	TransactionID  string
	ConfirmedRound uint64
}

// errConfirmationPending drives the poll loop: the retry machinery treats it
// as retryable until the round budget runs out
var errConfirmationPending = stderrors.New("confirmation pending")

// Coordinator orchestrates release and refund against the ledger. All
// collaborators arrive at construction; the coordinator holds no ambient
// state and no lock while waiting on the node.
type Coordinator struct {
	store    OrderStore
	wallets  WalletStore
	ledger   LedgerClient
	config   Config
	logger   logger.Logger
	inflight *inflightGuard
}

// NewCoordinator creates a new settlement Coordinator
func NewCoordinator(
	store OrderStore,
	wallets WalletStore,
	ledgerClient LedgerClient,
	config Config,
	logger logger.Logger,
) *Coordinator {
	return &Coordinator{
		store:    store,
		wallets:  wallets,
		ledger:   ledgerClient,
		config:   config,
		logger:   logger,
		inflight: newInflightGuard(config.InFlightTTL),
	}
}

// Settle executes a release or refund for the order. Validation and
// authorization run before any ledger call; the order row is only written
// after the node confirms the transaction, through a compare-and-set that
// lets exactly one settlement win. On submission failure or confirmation
// timeout the order is untouched and the same actor may retry.
func (c *Coordinator) Settle(ctx context.Context, orderID string, actor models.Actor, action Action) (*Result, error) {
	if !action.Valid() {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("unknown settlement action: %s", action))
	}

	token, acquired := c.inflight.tryAcquire(orderID)

	if !acquired {
		return nil, errors.NewSettlementInFlightError(
			fmt.Sprintf("a settlement for order %s is already awaiting confirmation", orderID))
	}
	defer c.inflight.release(orderID, token)

	order, err := c.store.GetOrder(ctx, orderID)

	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NewNotFoundError(fmt.Sprintf("order %s not found", orderID))
		}
		return nil, err
	}

	if err := authorize(action, actor, order); err != nil {
		return nil, err
	}

	if err := checkSettleable(order); err != nil {
		return nil, err
	}

	wallet, err := c.wallets.GetByActorID(ctx, actor.ID)

	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NewForbiddenError(fmt.Sprintf("actor %s has no wallet", actor.ID))
		}
		return nil, err
	}

	txID, err := c.submit(ctx, order, wallet, action)

	if err != nil {
		return nil, err
	}

	confirmation, err := c.awaitConfirmation(ctx, txID)

	if err != nil {
		// Order state untouched; the caller may retry
		return nil, err
	}

	event, err := models.NewSettlementEvent(order, action == ActionRefund, txID)

	if err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("failed to build settlement event: %v", err))
	}

	won, err := c.store.MarkReleased(ctx, order.ID, txID, event)

	if err != nil {
		if stderrors.Is(err, repository.ErrDuplicateTx) {
			return nil, errors.NewConflictError(fmt.Sprintf("transaction %s already recorded", txID))
		}
		return nil, err
	}

	if !won {
		// The competing settlement confirmed first; its transaction id is
		// the one that stays on the order.
		return nil, errors.NewAlreadySettledError(fmt.Sprintf("order %s was settled concurrently", order.ID))
	}

	order.IsReleased = true
	order.TransactionID = &txID

	c.logger.Info("Settlement confirmed",
		"orderID", order.ID,
		"action", action,
		"transactionID", txID,
		"round", confirmation.ConfirmedRound)

	return &Result{
		Order:          order,
		TransactionID:  txID,
		ConfirmedRound: confirmation.ConfirmedRound,
	}, nil
}

// submit builds, signs and submits the settlement instruction
func (c *Coordinator) submit(ctx context.Context, order *models.Order, wallet *models.Wallet, action Action) (string, error) {
	params, err := c.ledger.SuggestedParams(ctx)

	if err != nil {
		return "", errors.NewSubmissionError(fmt.Sprintf("failed to fetch network params: %v", err))
	}

	instr := ledger.NewAppCall(params, wallet.Address, order.EscrowAddress, action.ledgerArg())
	signed, err := ledger.Sign(instr, wallet.SigningKey)

	if err != nil {
		return "", errors.NewInternalError(fmt.Sprintf("failed to sign instruction: %v", err))
	}

	txID, err := c.ledger.Submit(ctx, signed)

	if err != nil {
		c.logger.Warn("Ledger submission failed",
			"error", err,
			"orderID", order.ID,
			"action", action)
		return "", err
	}

	c.logger.Info("Settlement instruction submitted",
		"orderID", order.ID,
		"action", action,
		"transactionID", txID)

	return txID, nil
}

// awaitConfirmation polls the node until the transaction is final or the
// round budget runs out. The wait holds no lock on the order record.
func (c *Coordinator) awaitConfirmation(ctx context.Context, txID string) (ledger.Confirmation, error) {
	var confirmation ledger.Confirmation

	pollConfig := &retry.RetryConfig{
		MaxAttempts: c.config.MaxPollRounds,
		BackoffStrategy: &retry.ExponentialBackoff{
			InitialInterval: c.config.PollInterval,
			MaxInterval:     c.config.MaxPollInterval,
			Multiplier:      1.5,
			JitterFactor:    0.2,
		},
		Logger: c.logger,
		RetryableErrors: []error{
			errConfirmationPending,
			errors.ErrTimeout,
			errors.ErrTemporaryFailure,
			errors.ErrServiceUnavailable,
		},
	}

	err := retry.Retry(ctx, func() error {
		info, err := c.ledger.PendingInfo(ctx, txID)

		if err != nil {
			return err
		}

		if info.PoolError != "" {
			return errors.NewSettlementFailedError(
				fmt.Sprintf("ledger rejected transaction %s: %s", txID, info.PoolError))
		}

		if info.Confirmed() {
			confirmation = info
			return nil
		}

		return errConfirmationPending
	}, pollConfig)

	if err != nil {
		if stderrors.Is(err, retry.ErrAttemptsExhausted) {
			return ledger.Confirmation{}, errors.NewSettlementTimeoutError(
				fmt.Sprintf("transaction %s not confirmed within %d polling rounds", txID, c.config.MaxPollRounds))
		}
		return ledger.Confirmation{}, err
	}

	return confirmation, nil
}
