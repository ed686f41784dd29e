package solana

import "context"

// Commitment levels for read calls.
const (
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// RPCClient defines the Solana RPC read surface used by the watcher.
// Calls are single-shot; retry policy lives in Retrier.
type RPCClient interface {
	// GetSignaturesForAddress retrieves signatures for an address,
	// newest first, with pagination options.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetParsedTransaction retrieves a transaction with balance metadata.
	// Returns (nil, nil) when the transaction is not found or carries no
	// metadata; callers must treat that as skip, not retry.
	GetParsedTransaction(ctx context.Context, signature string) (*TransactionDetail, error)

	// GetAccountInfo retrieves account info by public key.
	// Returns (nil, nil) when the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)
}

// TokenBalance is one entry of pre/postTokenBalances, validated at the
// fetch boundary.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	UIAmount     *float64
}

// TransactionDetail is the strict transaction-metadata schema the
// classifiers operate on. PreBalances/PostBalances are lamports indexed by
// account position in AccountKeys.
type TransactionDetail struct {
	Signature         string
	Slot              int64
	BlockTime         *int64
	AccountKeys       []string
	Signatures        []string
	PreBalances       []uint64
	PostBalances      []uint64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// HasAccount reports whether the transaction's account list mentions key.
func (t *TransactionDetail) HasAccount(key string) bool {
	for _, k := range t.AccountKeys {
		if k == key {
			return true
		}
	}
	return false
}

// AccountIndexOf returns the position of key in the account list, or -1.
func (t *TransactionDetail) AccountIndexOf(key string) int {
	for i, k := range t.AccountKeys {
		if k == key {
			return i
		}
	}
	return -1
}
