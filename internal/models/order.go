package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the order-level confirmation of the initial payment.
// It is orthogonal to the release flag: a confirmed order may or may not have
// had its escrowed funds released yet.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
)

// Order represents one customer purchase of a design, settled via escrow.
//
// Amount is frozen from the design's price at creation and never follows
// later price changes. EscrowAddress and AsaID are immutable once set.
// TransactionID records the confirmed settlement transaction and is unique
// across all orders.
type Order struct {
	ID            string          `db:"id" json:"id"`
	CustomerID    string          `db:"customer_id" json:"customer_id"`
	DesignID      string          `db:"design_id" json:"design_id"`
	TailorID      string          `db:"tailor_id" json:"tailor_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	EscrowAddress string          `db:"escrow_address" json:"escrow_address,omitempty"`
	AsaID         *int64          `db:"asa_id" json:"asa_id,omitempty"`
	TransactionID *string         `db:"transaction_id" json:"transaction_id,omitempty"`
	PaymentStatus PaymentStatus   `db:"payment_status" json:"payment_status"`
	IsReleased    bool            `db:"is_released" json:"is_released"`
	OrderDate     time.Time       `db:"order_date" json:"order_date"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// NewOrder creates a new pending, unreleased order for a design. The tailor
// id is denormalized from the design so authorization checks need no join.
func NewOrder(customerID string, design *Design) *Order {
	now := GetCurrentTime()

	return &Order{
		ID:            GenerateID("ord"),
		CustomerID:    customerID,
		DesignID:      design.ID,
		TailorID:      design.TailorID,
		Amount:        design.Price,
		PaymentStatus: PaymentStatusPending,
		IsReleased:    false,
		OrderDate:     now,
		UpdatedAt:     now,
	}
}
