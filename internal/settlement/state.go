package settlement

import (
	"fmt"

	"github.com/tailorline/settlement-api/internal/ledger"
	"github.com/tailorline/settlement-api/internal/models"
	"github.com/tailorline/settlement-api/pkg/errors"
)

// Action is a terminal settlement action on an order's escrowed funds.
// Release pays the tailor, refund returns the funds to the customer. The
// two are mutually exclusive: whichever confirms first wins the order.
type Action string

const (
	ActionRelease Action = "release"
	ActionRefund  Action = "refund"
)

// Valid reports whether the action is one the coordinator knows
func (a Action) Valid() bool {
	return a == ActionRelease || a == ActionRefund
}

// ledgerArg is the application argument the escrow program expects
func (a Action) ledgerArg() string {
	if a == ActionRefund {
		return ledger.ArgRefund
	}
	return ledger.ArgRelease
}

// authorize checks that the actor holds the capability for the action:
// release belongs to the order's customer, refund to the tailor owning the
// order's design
func authorize(action Action, actor models.Actor, order *models.Order) error {
	switch action {
	case ActionRelease:
		if !actor.CanRelease(order) {
			return errors.NewForbiddenError("only the ordering customer can release funds")
		}
	case ActionRefund:
		if !actor.CanRefund(order) {
			return errors.NewForbiddenError("only the tailor owning the design can refund funds")
		}
	default:
		return errors.NewInvalidInputError(fmt.Sprintf("unknown settlement action: %s", action))
	}

	return nil
}

// checkSettleable verifies the order's state preconditions. Both checks run
// before any ledger call so invalid requests never reach the node.
func checkSettleable(order *models.Order) error {
	if order.IsReleased {
		return errors.NewAlreadySettledError(fmt.Sprintf("order %s is already settled", order.ID))
	}

	if order.EscrowAddress == "" {
		return errors.NewNotEscrowedError(fmt.Sprintf("order %s has no escrow address", order.ID))
	}

	return nil
}
