package classify

import (
	"time"

	"github.com/OnchainAlpha/solanatrading/internal/domain"
	"github.com/OnchainAlpha/solanatrading/internal/solana"
)

const lamportsPerSOL = 1_000_000_000

// UserDeltaClassifier infers the trading actor from the account with the
// largest lamport balance change. Labeling is from the counterparty's
// perspective: a user buy is recorded as a sell absorbed by the liquidity
// side, and vice versa.
type UserDeltaClassifier struct {
	// ProgramID must appear among the transaction's accounts for the
	// transaction to be considered.
	ProgramID string

	// FeeRecipient is the protocol fee collector; its lamport delta is
	// subtracted from buy magnitudes.
	FeeRecipient string

	// TargetMint is the token being watched.
	TargetMint string

	// MinSolAmount is the smallest trade worth recording, in SOL.
	MinSolAmount float64

	// Now is replaceable in tests.
	Now func() time.Time
}

var _ Classifier = (*UserDeltaClassifier)(nil)

// NewUserDeltaClassifier builds a classifier for the pump.fun program.
func NewUserDeltaClassifier(targetMint string, minSolAmount float64) *UserDeltaClassifier {
	return &UserDeltaClassifier{
		ProgramID:    solana.PumpFunProgram,
		FeeRecipient: solana.PumpFunFeeRecipient,
		TargetMint:   targetMint,
		MinSolAmount: minSolAmount,
		Now:          time.Now,
	}
}

// Classify infers a trade from balance deltas. Returns ErrNotApplicable
// when the program is absent or no balance moved, ErrMissingData when
// required entries are absent, and ErrBelowThreshold for trades under
// MinSolAmount.
func (c *UserDeltaClassifier) Classify(tx *solana.TransactionDetail) (*domain.TradeRecord, error) {
	if tx == nil {
		return nil, ErrMissingData
	}
	if !tx.HasAccount(c.ProgramID) {
		return nil, ErrNotApplicable
	}
	if len(tx.PreBalances) != len(tx.PostBalances) || len(tx.PreBalances) == 0 {
		return nil, ErrMissingData
	}

	_, userNativeChange, ok := largestLamportChange(tx.PreBalances, tx.PostBalances)
	if !ok {
		return nil, ErrNotApplicable
	}

	preToken, postToken, ok := c.targetTokenDelta(tx)
	if !ok {
		return nil, ErrMissingData
	}

	tokenChange := postToken - preToken
	if tokenChange < 0 {
		tokenChange = -tokenChange
	}
	if tokenChange == 0 {
		return nil, ErrNotApplicable
	}

	isBuy := postToken > preToken

	actualNative := userNativeChange
	if actualNative < 0 {
		actualNative = -actualNative
	}
	if isBuy {
		// The fee collector's share inflates the user's spend; back it out.
		actualNative -= c.feeLamports(tx)
		if actualNative < 0 {
			actualNative = 0
		}
	}

	solAmount := float64(actualNative) / lamportsPerSOL
	if solAmount < c.MinSolAmount {
		return nil, ErrBelowThreshold
	}

	if len(tx.Signatures) == 0 || tx.BlockTime == nil {
		return nil, ErrMissingData
	}

	side := domain.SideBuy
	if isBuy {
		side = domain.SideSell
	}

	return &domain.TradeRecord{
		Timestamp:   c.clampTimestamp(*tx.BlockTime),
		Side:        side,
		SolAmount:   solAmount,
		TokenAmount: tokenChange,
		Signature:   tx.Signatures[0],
	}, nil
}

// largestLamportChange finds the account index with the largest absolute
// lamport delta. change is pre minus post, so positive means the account
// spent lamports. ok is false when no balance moved.
func largestLamportChange(pre, post []uint64) (index int, change int64, ok bool) {
	var best int64
	for i := range pre {
		d := int64(pre[i]) - int64(post[i])
		abs := d
		if abs < 0 {
			abs = -abs
		}
		if abs > best {
			best = abs
			index = i
			change = d
		}
	}
	return index, change, best > 0
}

// targetTokenDelta finds the target-mint balance pair whose amount moved.
// Pre and post entries are matched by account index; a missing pre entry
// reads as zero (fresh token account).
func (c *UserDeltaClassifier) targetTokenDelta(tx *solana.TransactionDetail) (pre, post float64, ok bool) {
	preByIndex := make(map[int]float64, len(tx.PreTokenBalances))
	for _, b := range tx.PreTokenBalances {
		if b.Mint != c.TargetMint {
			continue
		}
		if b.UIAmount != nil {
			preByIndex[b.AccountIndex] = *b.UIAmount
		} else {
			preByIndex[b.AccountIndex] = 0
		}
	}

	for _, b := range tx.PostTokenBalances {
		if b.Mint != c.TargetMint {
			continue
		}
		postAmount := 0.0
		if b.UIAmount != nil {
			postAmount = *b.UIAmount
		}
		preAmount := preByIndex[b.AccountIndex]
		if postAmount != preAmount {
			return preAmount, postAmount, true
		}
	}
	return 0, 0, false
}

// feeLamports returns the fee collector's lamport gain in this transaction.
func (c *UserDeltaClassifier) feeLamports(tx *solana.TransactionDetail) int64 {
	idx := tx.AccountIndexOf(c.FeeRecipient)
	if idx < 0 || idx >= len(tx.PreBalances) || idx >= len(tx.PostBalances) {
		return 0
	}
	return int64(tx.PostBalances[idx]) - int64(tx.PreBalances[idx])
}

// clampTimestamp converts a block time, guarding against timestamps from
// a future calendar year.
func (c *UserDeltaClassifier) clampTimestamp(blockTime int64) time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	ts := time.Unix(blockTime, 0).UTC()
	current := now().UTC()
	if ts.Year() > current.Year() {
		return current
	}
	return ts
}
