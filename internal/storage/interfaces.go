package storage

import (
	"context"

	"github.com/OnchainAlpha/solanatrading/internal/domain"
)

// TradeLedger is the ordered, append-only record of classified trades for
// one watched token. Records are kept oldest to newest as written.
type TradeLedger interface {
	// ReadAll returns every record in write order. An absent ledger
	// reads as empty, not as an error.
	ReadAll() ([]domain.TradeRecord, error)

	// Append reads the existing ledger, concatenates records, and
	// rewrites it atomically from the caller's point of view.
	Append(records []domain.TradeRecord) error

	// WriteAll replaces the ledger wholesale. Used for the first
	// population of a token's history.
	WriteAll(records []domain.TradeRecord) error
}

// TradeSink receives copies of ledger records for external storage.
// Sinks are mirrors: failures are logged by callers and never block the
// ledger itself.
type TradeSink interface {
	// InsertTrades stores records for the given token address.
	InsertTrades(ctx context.Context, tokenAddress string, records []domain.TradeRecord) error
}
