package models

import (
	"time"
)

// Wallet holds an actor's ledger address and signing credential. The
// credential is stored opaque; protecting it at rest belongs to the
// deployment, not this service.
type Wallet struct {
	ActorID    string    `db:"actor_id" json:"actor_id"`
	Address    string    `db:"address" json:"address"`
	SigningKey string    `db:"signing_key" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
