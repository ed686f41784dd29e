// Package batch slides a fixed-size window over the trade ledger's tail
// and turns net directional pressure into decision signals.
package batch

import (
	"context"
	"fmt"
	"log"

	"github.com/OnchainAlpha/solanatrading/internal/dedup"
	"github.com/OnchainAlpha/solanatrading/internal/domain"
)

// Window sizing defaults.
const (
	DefaultWindowSize     = 5
	identitySigPrefixLen  = 8
	identityRecencyBudget = 100
)

// Sink receives the window's net pressure. direction is the side the
// market leaned toward, not the side to trade; the decision engine owns
// the inversion.
type Sink interface {
	OnBatch(ctx context.Context, direction domain.Side, magnitude float64) error
}

// Identity keys one window by its boundary records.
type Identity struct {
	FirstTime      int64
	LastTime       int64
	FirstSigPrefix string
	LastSigPrefix  string
}

// String renders the identity as a recency-set key.
func (id Identity) String() string {
	return fmt.Sprintf("%d|%d|%s|%s", id.FirstTime, id.LastTime, id.FirstSigPrefix, id.LastSigPrefix)
}

// Aggregator computes net signed volume over the last WindowSize ledger
// records and signals the sink once per distinct window.
type Aggregator struct {
	windowSize int
	seen       *dedup.RecencySet
	sink       Sink
	logger     *log.Logger
}

// NewAggregator creates an aggregator feeding sink. A non-positive
// windowSize falls back to the default.
func NewAggregator(windowSize int, sink Sink, logger *log.Logger) *Aggregator {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Aggregator{
		windowSize: windowSize,
		seen:       dedup.NewRecencySet(identityRecencyBudget),
		sink:       sink,
		logger:     logger,
	}
}

// WindowSize returns the configured window length.
func (a *Aggregator) WindowSize() int {
	return a.windowSize
}

// ConsiderLedger takes the full ledger and considers its trailing window.
func (a *Aggregator) ConsiderLedger(ctx context.Context, records []domain.TradeRecord) error {
	if len(records) < a.windowSize {
		return nil
	}
	return a.ConsiderWindow(ctx, records[len(records)-a.windowSize:])
}

// ConsiderWindow evaluates one window. Fewer than WindowSize records is a
// no-op with no identity recorded. A window already seen is a no-op. Zero
// net volume records the identity and stops. Otherwise the identity is
// recorded and the sink is signaled with the pressure direction.
func (a *Aggregator) ConsiderWindow(ctx context.Context, window []domain.TradeRecord) error {
	if len(window) < a.windowSize {
		return nil
	}
	window = window[len(window)-a.windowSize:]

	id := identityOf(window)
	key := id.String()
	if a.seen.Seen(key) {
		return nil
	}

	net := NetVolume(window)
	a.seen.Add(key)

	if net == 0 {
		a.logger.Printf("batch %s: net volume zero, no action", key)
		return nil
	}

	direction := domain.SideBuy
	magnitude := net
	if net < 0 {
		direction = domain.SideSell
		magnitude = -net
	}

	a.logger.Printf("batch %s: net %s pressure %.6f SOL", key, direction, magnitude)
	return a.sink.OnBatch(ctx, direction, magnitude)
}

// NetVolume sums signed SOL volume, buys positive and sells negative.
func NetVolume(records []domain.TradeRecord) float64 {
	var net float64
	for _, rec := range records {
		if rec.Side == domain.SideSell {
			net -= rec.SolAmount
		} else {
			net += rec.SolAmount
		}
	}
	return net
}

// identityOf derives the window's identity from its boundary records.
func identityOf(window []domain.TradeRecord) Identity {
	first := window[0]
	last := window[len(window)-1]
	return Identity{
		FirstTime:      first.Timestamp.Unix(),
		LastTime:       last.Timestamp.Unix(),
		FirstSigPrefix: sigPrefix(first.Signature),
		LastSigPrefix:  sigPrefix(last.Signature),
	}
}

func sigPrefix(sig string) string {
	if len(sig) > identitySigPrefixLen {
		return sig[:identitySigPrefixLen]
	}
	return sig
}
