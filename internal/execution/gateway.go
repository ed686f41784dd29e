// Package execution defines the order-placement boundary. The decision
// engine calls through Gateway and never inspects swap mechanics.
package execution

import "context"

// Gateway places orders for a token. Both calls are fire-and-forget
// beyond their error: callers consume success or failure, nothing else.
type Gateway interface {
	// Buy spends solAmount SOL on the token.
	Buy(ctx context.Context, tokenAddress string, solAmount float64, slippageBps int) error

	// Sell disposes of solAmount SOL worth of the token.
	Sell(ctx context.Context, tokenAddress string, solAmount float64, slippageBps int) error
}
