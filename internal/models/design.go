package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Design represents a tailor's catalog entry that orders are placed against
type Design struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description,omitempty"`
	Price       decimal.Decimal `db:"price" json:"price"`
	TailorID    string          `db:"tailor_id" json:"tailor_id"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// NewDesign creates a new catalog entry for a tailor
func NewDesign(tailorID, name, description string, price decimal.Decimal) *Design {
	return &Design{
		ID:          GenerateID("dsn"),
		Name:        name,
		Description: description,
		Price:       price,
		TailorID:    tailorID,
		CreatedAt:   GetCurrentTime(),
	}
}
