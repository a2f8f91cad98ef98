package ledger

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// AppCallArg values carried by settlement instructions. The escrow program
// on the ledger interprets them; this service only routes them.
const (
	ArgRelease = "release"
	ArgRefund  = "refund"
)

// AppCallInstruction is an application call addressed to an escrow account.
// Field order is fixed so the encoded form is stable for signing.
type AppCallInstruction struct {
	Type       string   `json:"type"`
	Sender     string   `json:"sender"`
	AppAddress string   `json:"app_address"`
	AppArgs    []string `json:"app_args"`
	Fee        uint64   `json:"fee"`
	FirstValid uint64   `json:"first_valid"`
	LastValid  uint64   `json:"last_valid"`
	GenesisID  string   `json:"genesis_id"`
}

// NewAppCall builds an application call instruction from suggested network
// parameters
func NewAppCall(params NetworkParams, sender, appAddress, arg string) AppCallInstruction {
	return AppCallInstruction{
		Type:       "appl",
		Sender:     sender,
		AppAddress: appAddress,
		AppArgs:    []string{arg},
		Fee:        params.Fee,
		FirstValid: params.FirstValid,
		LastValid:  params.LastValid,
		GenesisID:  params.GenesisID,
	}
}

// SignedInstruction is the wire form submitted to the node
type SignedInstruction struct {
	Instruction AppCallInstruction `json:"txn"`
	Signature   string             `json:"sig"`
}

// DecodeSigningKey decodes and validates a wallet's signing credential, a
// base64 ed25519 seed
func DecodeSigningKey(signingKey string) ([]byte, error) {
	seed, err := base64.StdEncoding.DecodeString(signingKey)

	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}

	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing key has %d bytes, want %d", len(seed), ed25519.SeedSize)
	}

	return seed, nil
}

// Sign signs the instruction with the actor's signing credential and returns
// the encoded wire form. The credential is a base64 ed25519 seed as stored
// on the actor's wallet record.
func Sign(instr AppCallInstruction, signingKey string) ([]byte, error) {
	seed, err := DecodeSigningKey(signingKey)

	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(instr)

	if err != nil {
		return nil, fmt.Errorf("encode instruction: %w", err)
	}

	key := ed25519.NewKeyFromSeed(seed)
	sig := ed25519.Sign(key, payload)

	signed := SignedInstruction{
		Instruction: instr,
		Signature:   base64.StdEncoding.EncodeToString(sig),
	}

	return json.Marshal(signed)
}
