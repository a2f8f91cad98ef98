package ledger

// NetworkParams are the suggested parameters a node hands out for building
// a transaction: the fee and the round window in which it stays valid.
type NetworkParams struct {
	Fee         uint64 `json:"fee"`
	FirstValid  uint64 `json:"first_valid"`
	LastValid   uint64 `json:"last_valid"`
	GenesisID   string `json:"genesis_id"`
	GenesisHash string `json:"genesis_hash,omitempty"`
}

// ConfirmationState is the node's view of a submitted transaction
type ConfirmationState int

const (
	// ConfirmationPending means the transaction is known but not yet in a block
	ConfirmationPending ConfirmationState = iota
	// ConfirmationConfirmed means the transaction is final
	ConfirmationConfirmed
	// ConfirmationUnknown means the node does not know the transaction
	ConfirmationUnknown
)

// Confirmation is the result of polling a pending transaction
type Confirmation struct {
	State          ConfirmationState
	ConfirmedRound uint64
	// PoolError is set when the node rejected the transaction from its pool
	PoolError string
}

// Confirmed reports whether the transaction is final
func (c Confirmation) Confirmed() bool {
	return c.State == ConfirmationConfirmed && c.ConfirmedRound > 0
}
