package execution

import (
	"context"
	"log"
	"sync"
	"time"
)

// Order is one recorded paper trade.
type Order struct {
	PlacedAt     time.Time
	TokenAddress string
	Side         string
	SolAmount    float64
	SlippageBps  int
}

// PaperGateway implements Gateway without touching the chain. Orders are
// logged and recorded for inspection.
type PaperGateway struct {
	logger *log.Logger

	mu     sync.Mutex
	orders []Order
}

var _ Gateway = (*PaperGateway)(nil)

// NewPaperGateway creates a paper-trading gateway.
func NewPaperGateway(logger *log.Logger) *PaperGateway {
	if logger == nil {
		logger = log.Default()
	}
	return &PaperGateway{logger: logger}
}

// Buy records a simulated buy.
func (g *PaperGateway) Buy(_ context.Context, tokenAddress string, solAmount float64, slippageBps int) error {
	g.record("buy", tokenAddress, solAmount, slippageBps)
	return nil
}

// Sell records a simulated sell.
func (g *PaperGateway) Sell(_ context.Context, tokenAddress string, solAmount float64, slippageBps int) error {
	g.record("sell", tokenAddress, solAmount, slippageBps)
	return nil
}

// Orders returns a copy of all recorded orders.
func (g *PaperGateway) Orders() []Order {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Order, len(g.orders))
	copy(out, g.orders)
	return out
}

func (g *PaperGateway) record(side, tokenAddress string, solAmount float64, slippageBps int) {
	g.mu.Lock()
	g.orders = append(g.orders, Order{
		PlacedAt:     time.Now().UTC(),
		TokenAddress: tokenAddress,
		Side:         side,
		SolAmount:    solAmount,
		SlippageBps:  slippageBps,
	})
	g.mu.Unlock()

	g.logger.Printf("paper %s %s: %.6f SOL (slippage %d bps)", side, tokenAddress, solAmount, slippageBps)
}
