package ledger

import (
	"fmt"
)

// EscrowSource renders the escrow program for an order. The program only
// approves transfers that pay the tailor's address, optionally restricted to
// a single asset id; the node compiles it and the resulting program address
// becomes the order's escrow account.
func EscrowSource(tailorAddress string, asaID *int64) []byte {
	asset := int64(0)

	if asaID != nil {
		asset = *asaID
	}

	source := fmt.Sprintf(`#pragma version 2
// escrow: approve transfers to the tailor only
txn Receiver
addr %s
==
txn XferAsset
int %d
==
&&
txn AssetAmount
int 0
>
&&
`, tailorAddress, asset)

	return []byte(source)
}
