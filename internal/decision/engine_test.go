package decision

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/OnchainAlpha/solanatrading/internal/domain"
	"github.com/OnchainAlpha/solanatrading/internal/observability"
)

const testToken = "TokenMint1111111111111111111111111111111111"

type fakeGateway struct {
	buys  []float64
	sells []float64
	err   error
}

func (g *fakeGateway) Buy(_ context.Context, _ string, solAmount float64, _ int) error {
	if g.err != nil {
		return g.err
	}
	g.buys = append(g.buys, solAmount)
	return nil
}

func (g *fakeGateway) Sell(_ context.Context, _ string, solAmount float64, _ int) error {
	if g.err != nil {
		return g.err
	}
	g.sells = append(g.sells, solAmount)
	return nil
}

// metricsForTest returns the package test metrics. Created once per test
// binary; the collectors register on the default Prometheus registry.
var metricsForTest = sync.OnceValue(func() *observability.Metrics {
	return observability.NewMetrics("decisiontest")
})

func newTestEngine(gateway *fakeGateway) (*Engine, *time.Time) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(Config{
		TokenAddress: testToken,
		BuyPercent:   0.25,
		SellPercent:  0.5,
	}, NewStateRegistry(), &ExecutionLock{}, gateway, nil, log.New(io.Discard, "", 0))
	e.now = func() time.Time { return now }
	return e, &now
}

func TestEngine_FirstTradePlacesOppositeOrder(t *testing.T) {
	gateway := &fakeGateway{}
	e, _ := newTestEngine(gateway)

	rec := domain.TradeRecord{Side: domain.SideBuy, SolAmount: 10, Signature: "sig"}
	if err := e.OnTrade(context.Background(), rec); err != nil {
		t.Fatalf("OnTrade: %v", err)
	}

	if len(gateway.sells) != 1 || gateway.sells[0] != 1.0 {
		t.Fatalf("expected one sell of 1.0 SOL, got %v", gateway.sells)
	}
	if len(gateway.buys) != 0 {
		t.Errorf("expected no buys, got %v", gateway.buys)
	}

	state := e.registry.Get(testToken)
	if state == nil {
		t.Fatal("expected state after successful placement")
	}
	if state.LastDirection != domain.SideSell || state.LastSizeSOL != 1.0 {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestEngine_CooldownSuppressesThenAllows(t *testing.T) {
	gateway := &fakeGateway{}
	e, now := newTestEngine(gateway)

	rec := domain.TradeRecord{Side: domain.SideBuy, SolAmount: 10, Signature: "sig"}
	if err := e.OnTrade(context.Background(), rec); err != nil {
		t.Fatalf("OnTrade: %v", err)
	}

	// 500 ms later: inside the 1000 ms window, suppressed.
	*now = now.Add(500 * time.Millisecond)
	if err := e.OnTrade(context.Background(), rec); err != nil {
		t.Fatalf("OnTrade: %v", err)
	}
	if len(gateway.sells) != 1 {
		t.Fatalf("expected suppression at 500ms, got %d sells", len(gateway.sells))
	}

	// Another 1000 ms later: outside the window, processed.
	*now = now.Add(1000 * time.Millisecond)
	if err := e.OnTrade(context.Background(), rec); err != nil {
		t.Fatalf("OnTrade: %v", err)
	}
	if len(gateway.sells) != 2 {
		t.Errorf("expected processing at 1500ms, got %d sells", len(gateway.sells))
	}
}

func TestEngine_FailedPlacementLeavesStateUntouched(t *testing.T) {
	gateway := &fakeGateway{err: errors.New("swap failed")}
	e, _ := newTestEngine(gateway)

	rec := domain.TradeRecord{Side: domain.SideSell, SolAmount: 4, Signature: "sig"}
	if err := e.OnTrade(context.Background(), rec); err == nil {
		t.Fatal("expected placement error")
	}

	if state := e.registry.Get(testToken); state != nil {
		t.Errorf("state must not update on failure, got %+v", state)
	}

	// With no prior state, a later detection is not cooled down.
	gateway.err = nil
	if err := e.OnTrade(context.Background(), rec); err != nil {
		t.Fatalf("OnTrade: %v", err)
	}
	if len(gateway.buys) != 1 {
		t.Errorf("expected retry to place a buy, got %v", gateway.buys)
	}
}

func TestEngine_BatchPathUsesDirectionPercent(t *testing.T) {
	gateway := &fakeGateway{}
	e, _ := newTestEngine(gateway)

	// Buy pressure of 8 SOL: place a sell sized by SellPercent 0.5.
	if err := e.OnBatch(context.Background(), domain.SideBuy, 8); err != nil {
		t.Fatalf("OnBatch: %v", err)
	}
	if len(gateway.sells) != 1 || gateway.sells[0] != 4.0 {
		t.Fatalf("expected sell of 4.0 SOL, got %v", gateway.sells)
	}

	// Sell pressure of 8 SOL: place a buy sized by BuyPercent 0.25.
	if err := e.OnBatch(context.Background(), domain.SideSell, 8); err != nil {
		t.Fatalf("OnBatch: %v", err)
	}
	if len(gateway.buys) != 1 || gateway.buys[0] != 2.0 {
		t.Fatalf("expected buy of 2.0 SOL, got %v", gateway.buys)
	}
}

func TestEngine_BatchPathSkipsWhileInFlight(t *testing.T) {
	gateway := &fakeGateway{}
	e, _ := newTestEngine(gateway)

	e.inflight.TryAcquire()
	if err := e.OnBatch(context.Background(), domain.SideBuy, 8); err != nil {
		t.Fatalf("OnBatch: %v", err)
	}
	if len(gateway.sells) != 0 {
		t.Errorf("expected no order while execution in flight, got %v", gateway.sells)
	}

	e.inflight.Release()
	if err := e.OnBatch(context.Background(), domain.SideBuy, 8); err != nil {
		t.Fatalf("OnBatch: %v", err)
	}
	if len(gateway.sells) != 1 {
		t.Errorf("expected order after release, got %v", gateway.sells)
	}
}

func TestEngine_RecordsOrderAndCooldownMetrics(t *testing.T) {
	m := metricsForTest()
	placedBefore := testutil.ToFloat64(m.OrdersPlaced.WithLabelValues("sell"))
	failedBefore := testutil.ToFloat64(m.OrdersFailed.WithLabelValues("sell"))
	suppressedBefore := testutil.ToFloat64(m.CooldownSuppressed)

	gateway := &fakeGateway{}
	e, now := newTestEngine(gateway)
	e.metrics = m

	rec := domain.TradeRecord{Side: domain.SideBuy, SolAmount: 10, Signature: "sig"}
	if err := e.OnTrade(context.Background(), rec); err != nil {
		t.Fatalf("OnTrade: %v", err)
	}
	if got := testutil.ToFloat64(m.OrdersPlaced.WithLabelValues("sell")) - placedBefore; got != 1 {
		t.Errorf("expected 1 placed sell recorded, got %v", got)
	}

	// Inside the cooldown window: suppressed and counted.
	*now = now.Add(500 * time.Millisecond)
	if err := e.OnTrade(context.Background(), rec); err != nil {
		t.Fatalf("OnTrade: %v", err)
	}
	if got := testutil.ToFloat64(m.CooldownSuppressed) - suppressedBefore; got != 1 {
		t.Errorf("expected 1 cooldown suppression recorded, got %v", got)
	}

	// A failed placement lands on the failure counter only.
	gateway.err = errors.New("swap failed")
	*now = now.Add(2 * time.Second)
	if err := e.OnTrade(context.Background(), rec); err == nil {
		t.Fatal("expected placement error")
	}
	if got := testutil.ToFloat64(m.OrdersFailed.WithLabelValues("sell")) - failedBefore; got != 1 {
		t.Errorf("expected 1 failed sell recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.OrdersPlaced.WithLabelValues("sell")) - placedBefore; got != 1 {
		t.Errorf("failed placement must not count as placed, got %v", got)
	}
}

func TestExecutionLock(t *testing.T) {
	var lock ExecutionLock

	if !lock.TryAcquire() {
		t.Fatal("first acquire must succeed")
	}
	if lock.TryAcquire() {
		t.Fatal("second acquire must fail while held")
	}
	lock.Release()
	if !lock.TryAcquire() {
		t.Fatal("acquire after release must succeed")
	}
}
