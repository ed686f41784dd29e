package classify

import (
	"time"

	"github.com/OnchainAlpha/solanatrading/internal/domain"
	"github.com/OnchainAlpha/solanatrading/internal/solana"
)

// PoolDeltaClassifier derives a trade from the change in a known liquidity
// pool's reserves. Direction comes from the native-currency side of the
// pool only; token deltas supply magnitude, never direction.
type PoolDeltaClassifier struct {
	// PoolAuthority custodies the pool's reserve accounts.
	PoolAuthority string

	// NativeMint is the wrapped native currency mint.
	NativeMint string

	// TargetMint is the token being watched.
	TargetMint string
}

var _ Classifier = (*PoolDeltaClassifier)(nil)

// NewPoolDeltaClassifier builds a classifier for one pool.
func NewPoolDeltaClassifier(poolAuthority, targetMint string) *PoolDeltaClassifier {
	return &PoolDeltaClassifier{
		PoolAuthority: poolAuthority,
		NativeMint:    solana.WrappedSOLMint,
		TargetMint:    targetMint,
	}
}

// Classify reads the pool's pre and post reserves and emits a trade record.
// Returns ErrMissingData if either native-side reserve snapshot is absent,
// and ErrNotApplicable when the reserves did not move.
func (c *PoolDeltaClassifier) Classify(tx *solana.TransactionDetail) (*domain.TradeRecord, error) {
	if tx == nil {
		return nil, ErrMissingData
	}

	side, solAmount, tokenAmount, err := c.Delta(tx.PreTokenBalances, tx.PostTokenBalances)
	if err != nil {
		return nil, err
	}
	if side == domain.SideNone {
		return nil, ErrNotApplicable
	}

	if len(tx.Signatures) == 0 || tx.BlockTime == nil {
		return nil, ErrMissingData
	}

	return &domain.TradeRecord{
		Timestamp:   time.Unix(*tx.BlockTime, 0).UTC(),
		Side:        side,
		SolAmount:   solAmount,
		TokenAmount: tokenAmount,
		Signature:   tx.Signatures[0],
	}, nil
}

// Delta compares the pool authority's reserves across the transaction.
// Native reserve up means buy, down means sell, unchanged means SideNone
// with zero magnitude. Each balance list is scanned once; the scan stops
// early when both reserves for that side are found.
func (c *PoolDeltaClassifier) Delta(pre, post []solana.TokenBalance) (domain.Side, float64, float64, error) {
	prePoolNative, prePoolToken, ok := c.poolReserves(pre)
	if !ok {
		return domain.SideNone, 0, 0, ErrMissingData
	}
	postPoolNative, postPoolToken, ok := c.poolReserves(post)
	if !ok {
		return domain.SideNone, 0, 0, ErrMissingData
	}

	tokenAmount := postPoolToken - prePoolToken
	if tokenAmount < 0 {
		tokenAmount = -tokenAmount
	}

	switch {
	case postPoolNative > prePoolNative:
		return domain.SideBuy, postPoolNative - prePoolNative, tokenAmount, nil
	case postPoolNative < prePoolNative:
		return domain.SideSell, prePoolNative - postPoolNative, tokenAmount, nil
	default:
		return domain.SideNone, 0, 0, nil
	}
}

// poolReserves extracts the pool authority's native and target-token
// amounts from one balance list. ok is false when the native-side entry is
// absent; a missing token-side entry reads as zero.
func (c *PoolDeltaClassifier) poolReserves(balances []solana.TokenBalance) (native, token float64, ok bool) {
	foundNative := false
	foundToken := false
	for _, b := range balances {
		if b.Owner != c.PoolAuthority {
			continue
		}
		switch b.Mint {
		case c.NativeMint:
			if !foundNative {
				if b.UIAmount != nil {
					native = *b.UIAmount
				}
				foundNative = true
			}
		case c.TargetMint:
			if !foundToken {
				if b.UIAmount != nil {
					token = *b.UIAmount
				}
				foundToken = true
			}
		}
		if foundNative && foundToken {
			break
		}
	}
	return native, token, foundNative
}
