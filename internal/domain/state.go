package domain

import "time"

// TradeState is the per-token decision state. It is created on the first
// accepted decision for a token and overwritten on every subsequent one;
// it lives for the lifetime of that token's watch session.
type TradeState struct {
	LastDirection Side
	LastSizeSOL   float64
	LastTimestamp time.Time
}
