package ethereum

import "errors"

// Sentinel errors for chain provider operations.
var (
	// ErrTransactionNotFound indicates the node has no record of the transaction.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrReceiptNotFound indicates the transaction has no receipt yet.
	ErrReceiptNotFound = errors.New("receipt not found")

	// ErrUnsupportedNetwork indicates no RPC endpoint is known for a network.
	ErrUnsupportedNetwork = errors.New("no RPC URL configured for network")
)
