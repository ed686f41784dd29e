// Package classify turns parsed transaction metadata into directional
// trade records. Two strategies are provided: pool-delta, which reads
// direction off a known liquidity pool's native-currency reserves, and
// user-delta, which infers the actor from the largest balance change.
//
// The strategies use different labeling conventions. Pool-delta labels a
// trade from the pool's perspective (pool native up means someone bought).
// User-delta labels from the counterparty's perspective (the user bought,
// so the liquidity side sold). Callers pick the strategy, and with it the
// convention, per use case.
package classify

import (
	"errors"

	"github.com/OnchainAlpha/solanatrading/internal/domain"
	"github.com/OnchainAlpha/solanatrading/internal/solana"
)

// Skip sentinels. All three mean "do not retry, do not record"; callers
// count them under separate diagnostic categories.
var (
	// ErrNotApplicable marks a transaction that does not involve the
	// program or mint of interest.
	ErrNotApplicable = errors.New("transaction not applicable")

	// ErrBelowThreshold marks a valid trade smaller than the configured
	// minimum economic size.
	ErrBelowThreshold = errors.New("trade below minimum size")

	// ErrMissingData marks a transaction lacking metadata, block time,
	// or required balance entries.
	ErrMissingData = errors.New("required transaction data missing")
)

// Classifier turns one transaction into a trade record or a skip error.
type Classifier interface {
	Classify(tx *solana.TransactionDetail) (*domain.TradeRecord, error)
}
