package domain

import "time"

// Side is the direction of a trade or an order.
type Side string

// Trade side constants. SideNone appears only transiently while classifying
// (a transaction that moved no pool reserves); it is never persisted.
const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
	SideNone Side = "none"
)

// Opposite returns the contrarian direction for a detected side.
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return SideNone
	}
}

// TradeRecord is one classified on-chain trade. Immutable once created.
// SolAmount and TokenAmount are always non-negative; Signature is the
// transaction signature and uniquely identifies the record.
type TradeRecord struct {
	Timestamp   time.Time
	Side        Side
	SolAmount   float64
	TokenAmount float64
	Signature   string
}
