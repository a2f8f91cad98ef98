package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tailorline/settlement-api/internal/ledger"
	"github.com/tailorline/settlement-api/internal/models"
	"github.com/tailorline/settlement-api/pkg/errors"
)

func TestAction_Valid(t *testing.T) {
	assert.True(t, ActionRelease.Valid())
	assert.True(t, ActionRefund.Valid())
	assert.False(t, Action("").Valid())
	assert.False(t, Action("settle").Valid())
}

func TestAction_LedgerArg(t *testing.T) {
	assert.Equal(t, ledger.ArgRelease, ActionRelease.ledgerArg())
	assert.Equal(t, ledger.ArgRefund, ActionRefund.ledgerArg())
}

func TestAuthorize(t *testing.T) {
	order := &models.Order{ID: "ord-1", CustomerID: "cust-1", TailorID: "tlr-1"}

	tests := []struct {
		name    string
		action  Action
		actor   models.Actor
		allowed bool
	}{
		{"customer releases own order", ActionRelease, models.Actor{ID: "cust-1", Role: models.RoleCustomer}, true},
		{"tailor refunds own order", ActionRefund, models.Actor{ID: "tlr-1", Role: models.RoleTailor}, true},
		{"customer cannot refund", ActionRefund, models.Actor{ID: "cust-1", Role: models.RoleCustomer}, false},
		{"tailor cannot release", ActionRelease, models.Actor{ID: "tlr-1", Role: models.RoleTailor}, false},
		{"foreign customer cannot release", ActionRelease, models.Actor{ID: "cust-9", Role: models.RoleCustomer}, false},
		{"foreign tailor cannot refund", ActionRefund, models.Actor{ID: "tlr-9", Role: models.RoleTailor}, false},
		{"customer id on tailor role cannot release", ActionRelease, models.Actor{ID: "cust-1", Role: models.RoleTailor}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authorize(tt.action, tt.actor, order)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Equal(t, 403, errors.StatusCode(err))
			}
		})
	}
}

func TestCheckSettleable(t *testing.T) {
	t.Run("escrowed unreleased order passes", func(t *testing.T) {
		err := checkSettleable(&models.Order{ID: "ord-1", EscrowAddress: "ADDR"})
		assert.NoError(t, err)
	})

	t.Run("released order rejected", func(t *testing.T) {
		err := checkSettleable(&models.Order{ID: "ord-1", EscrowAddress: "ADDR", IsReleased: true})
		assert.ErrorIs(t, err, errors.ErrAlreadySettled)
	})

	t.Run("missing escrow rejected", func(t *testing.T) {
		err := checkSettleable(&models.Order{ID: "ord-1"})
		assert.ErrorIs(t, err, errors.ErrNotEscrowed)
	})

	t.Run("released wins over missing escrow", func(t *testing.T) {
		err := checkSettleable(&models.Order{ID: "ord-1", IsReleased: true})
		assert.ErrorIs(t, err, errors.ErrAlreadySettled)
	})
}
