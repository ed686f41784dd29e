// Package decision holds the contrarian state machine: detected pressure
// in one direction produces an order in the other, rate limited by a
// per-token cooldown and a process-wide execution lock.
package decision

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OnchainAlpha/solanatrading/internal/domain"
	"github.com/OnchainAlpha/solanatrading/internal/execution"
	"github.com/OnchainAlpha/solanatrading/internal/observability"
)

// Defaults for the reference policy.
const (
	DefaultCooldownWindow = 1000 * time.Millisecond
	DefaultTradeFraction  = 0.10
	DefaultSlippageBps    = 500
)

// StateRegistry tracks per-token trade state. Passed explicitly into
// each session's engine; there is no process-wide singleton.
type StateRegistry struct {
	mu     sync.Mutex
	states map[string]*domain.TradeState
}

// NewStateRegistry creates an empty registry.
func NewStateRegistry() *StateRegistry {
	return &StateRegistry{states: make(map[string]*domain.TradeState)}
}

// Get returns the state for a token, or nil if none exists yet.
func (r *StateRegistry) Get(tokenAddress string) *domain.TradeState {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.states[tokenAddress]
	if !ok {
		return nil
	}
	copy := *s
	return &copy
}

// Put overwrites the state for a token.
func (r *StateRegistry) Put(tokenAddress string, state domain.TradeState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[tokenAddress] = &state
}

// ExecutionLock is the process-wide in-flight guard: at most one order
// placement at a time, independent of per-token state.
type ExecutionLock struct {
	busy atomic.Bool
}

// TryAcquire claims the lock; false means an execution is in flight.
func (l *ExecutionLock) TryAcquire() bool {
	return l.busy.CompareAndSwap(false, true)
}

// Release frees the lock.
func (l *ExecutionLock) Release() {
	l.busy.Store(false)
}

// Config parameterizes one engine.
type Config struct {
	TokenAddress string

	// CooldownWindow suppresses re-triggering on the per-trade path.
	CooldownWindow time.Duration

	// TradeFraction sizes per-trade orders.
	TradeFraction float64

	// BuyPercent and SellPercent size batch-path orders by the placed
	// order's direction. Range 0 to 1, supplied at session start.
	BuyPercent  float64
	SellPercent float64

	SlippageBps int
}

func (c *Config) applyDefaults() {
	if c.CooldownWindow <= 0 {
		c.CooldownWindow = DefaultCooldownWindow
	}
	if c.TradeFraction <= 0 {
		c.TradeFraction = DefaultTradeFraction
	}
	if c.SlippageBps <= 0 {
		c.SlippageBps = DefaultSlippageBps
	}
}

// Engine is the per-token contrarian decision engine. Both the per-trade
// and batch paths feed it a (direction, magnitude) pressure signal and it
// places the opposite order.
type Engine struct {
	config   Config
	registry *StateRegistry
	gateway  execution.Gateway
	inflight *ExecutionLock
	metrics  *observability.Metrics
	logger   *log.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewEngine creates an engine. registry and inflight may be shared
// across engines; metrics may be nil; gateway must not be nil.
func NewEngine(config Config, registry *StateRegistry, inflight *ExecutionLock, gateway execution.Gateway, metrics *observability.Metrics, logger *log.Logger) *Engine {
	config.applyDefaults()
	if registry == nil {
		registry = NewStateRegistry()
	}
	if inflight == nil {
		inflight = &ExecutionLock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		config:   config,
		registry: registry,
		gateway:  gateway,
		inflight: inflight,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// OnTrade reacts to one detected trade. The cooldown guard suppresses
// closely spaced detections of the same underlying transaction.
func (e *Engine) OnTrade(ctx context.Context, rec domain.TradeRecord) error {
	if rec.Side == domain.SideNone || rec.SolAmount <= 0 {
		return nil
	}

	now := e.now()
	if prior := e.registry.Get(e.config.TokenAddress); prior != nil {
		if now.Sub(prior.LastTimestamp) <= e.config.CooldownWindow {
			e.logger.Printf("cooldown active for %s, suppressing %s of %.6f SOL",
				e.config.TokenAddress, rec.Side, rec.SolAmount)
			if e.metrics != nil {
				e.metrics.CooldownSuppressed.Inc()
			}
			return nil
		}
	}

	size := rec.SolAmount * e.config.TradeFraction
	return e.place(ctx, rec.Side.Opposite(), size, now)
}

// OnBatch reacts to a window's net pressure. direction is the side the
// market leaned toward; the placed order opposes it. Sized by the
// direction-specific percentage, guarded by the in-flight lock.
func (e *Engine) OnBatch(ctx context.Context, direction domain.Side, magnitude float64) error {
	if direction == domain.SideNone || magnitude <= 0 {
		return nil
	}

	if !e.inflight.TryAcquire() {
		e.logger.Printf("execution in flight, skipping batch signal for %s", e.config.TokenAddress)
		return nil
	}
	defer e.inflight.Release()

	order := direction.Opposite()
	percent := e.config.SellPercent
	if order == domain.SideBuy {
		percent = e.config.BuyPercent
	}
	if percent <= 0 {
		e.logger.Printf("no %s percentage configured for %s, skipping", order, e.config.TokenAddress)
		return nil
	}

	return e.place(ctx, order, magnitude*percent, e.now())
}

// place submits the order and, only on success, overwrites the token's
// state.
func (e *Engine) place(ctx context.Context, side domain.Side, size float64, now time.Time) error {
	var err error
	switch side {
	case domain.SideBuy:
		err = e.gateway.Buy(ctx, e.config.TokenAddress, size, e.config.SlippageBps)
	case domain.SideSell:
		err = e.gateway.Sell(ctx, e.config.TokenAddress, size, e.config.SlippageBps)
	default:
		return nil
	}

	if err != nil {
		e.logger.Printf("order failed for %s: %s %.6f SOL: %v", e.config.TokenAddress, side, size, err)
		if e.metrics != nil {
			e.metrics.OrdersFailed.WithLabelValues(string(side)).Inc()
		}
		return err
	}
	if e.metrics != nil {
		e.metrics.OrdersPlaced.WithLabelValues(string(side)).Inc()
	}

	e.registry.Put(e.config.TokenAddress, domain.TradeState{
		LastDirection: side,
		LastSizeSOL:   size,
		LastTimestamp: now,
	})
	e.logger.Printf("placed %s of %.6f SOL for %s", side, size, e.config.TokenAddress)
	return nil
}
