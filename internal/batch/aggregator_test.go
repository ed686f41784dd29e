package batch

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/OnchainAlpha/solanatrading/internal/domain"
)

type recordingSink struct {
	calls []struct {
		direction domain.Side
		magnitude float64
	}
}

func (s *recordingSink) OnBatch(_ context.Context, direction domain.Side, magnitude float64) error {
	s.calls = append(s.calls, struct {
		direction domain.Side
		magnitude float64
	}{direction, magnitude})
	return nil
}

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func window(sides []domain.Side, amounts []float64) []domain.TradeRecord {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := make([]domain.TradeRecord, len(sides))
	for i := range sides {
		records[i] = domain.TradeRecord{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Side:      sides[i],
			SolAmount: amounts[i],
			Signature: "signature-" + string(rune('a'+i)) + "0000000",
		}
	}
	return records
}

func TestAggregator_NetBuyingSignalsBuyPressure(t *testing.T) {
	sink := &recordingSink{}
	agg := NewAggregator(5, sink, discard())

	w := window(
		[]domain.Side{domain.SideBuy, domain.SideBuy, domain.SideSell, domain.SideBuy, domain.SideBuy},
		[]float64{1, 1, 0.5, 1, 1},
	)

	if err := agg.ConsiderWindow(context.Background(), w); err != nil {
		t.Fatalf("ConsiderWindow: %v", err)
	}
	if len(sink.calls) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(sink.calls))
	}
	if sink.calls[0].direction != domain.SideBuy {
		t.Errorf("expected buy pressure, got %s", sink.calls[0].direction)
	}
	if sink.calls[0].magnitude != 3.5 {
		t.Errorf("expected magnitude 3.5, got %v", sink.calls[0].magnitude)
	}
}

func TestAggregator_NetSellingSignalsSellPressure(t *testing.T) {
	sink := &recordingSink{}
	agg := NewAggregator(5, sink, discard())

	w := window(
		[]domain.Side{domain.SideSell, domain.SideSell, domain.SideBuy, domain.SideSell, domain.SideSell},
		[]float64{1, 1, 0.5, 1, 1},
	)

	if err := agg.ConsiderWindow(context.Background(), w); err != nil {
		t.Fatalf("ConsiderWindow: %v", err)
	}
	if len(sink.calls) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(sink.calls))
	}
	if sink.calls[0].direction != domain.SideSell {
		t.Errorf("expected sell pressure, got %s", sink.calls[0].direction)
	}
	if sink.calls[0].magnitude != 3.5 {
		t.Errorf("expected magnitude 3.5, got %v", sink.calls[0].magnitude)
	}
}

func TestAggregator_ZeroNetVolumeNoAction(t *testing.T) {
	sink := &recordingSink{}
	agg := NewAggregator(5, sink, discard())

	// +1 −0.5 +0.5 −2 +1 nets to zero.
	w := window(
		[]domain.Side{domain.SideBuy, domain.SideSell, domain.SideBuy, domain.SideSell, domain.SideBuy},
		[]float64{1, 0.5, 0.5, 2, 1},
	)

	if err := agg.ConsiderWindow(context.Background(), w); err != nil {
		t.Fatalf("ConsiderWindow: %v", err)
	}
	if len(sink.calls) != 0 {
		t.Errorf("expected no signal for zero net volume, got %d", len(sink.calls))
	}
}

func TestAggregator_ShortWindowWaits(t *testing.T) {
	sink := &recordingSink{}
	agg := NewAggregator(5, sink, discard())

	w := window(
		[]domain.Side{domain.SideBuy, domain.SideBuy},
		[]float64{1, 1},
	)

	if err := agg.ConsiderWindow(context.Background(), w); err != nil {
		t.Fatalf("ConsiderWindow: %v", err)
	}
	if len(sink.calls) != 0 {
		t.Errorf("expected no signal before the window fills, got %d", len(sink.calls))
	}

	// A short window records no identity: the eventual full window with
	// the same boundary record still fires.
	full := window(
		[]domain.Side{domain.SideBuy, domain.SideBuy, domain.SideBuy, domain.SideBuy, domain.SideBuy},
		[]float64{1, 1, 1, 1, 1},
	)
	if err := agg.ConsiderWindow(context.Background(), full); err != nil {
		t.Fatalf("ConsiderWindow: %v", err)
	}
	if len(sink.calls) != 1 {
		t.Errorf("expected 1 signal once filled, got %d", len(sink.calls))
	}
}

func TestAggregator_RepeatedWindowSuppressed(t *testing.T) {
	sink := &recordingSink{}
	agg := NewAggregator(5, sink, discard())

	w := window(
		[]domain.Side{domain.SideBuy, domain.SideBuy, domain.SideBuy, domain.SideBuy, domain.SideBuy},
		[]float64{1, 1, 1, 1, 1},
	)

	agg.ConsiderWindow(context.Background(), w)
	agg.ConsiderWindow(context.Background(), w)
	if len(sink.calls) != 1 {
		t.Errorf("expected identical window suppressed, got %d signals", len(sink.calls))
	}
}

func TestAggregator_IdentityFromBoundaries(t *testing.T) {
	w := window(
		[]domain.Side{domain.SideBuy, domain.SideBuy, domain.SideBuy, domain.SideBuy, domain.SideBuy},
		[]float64{1, 1, 1, 1, 1},
	)

	a := identityOf(w)
	b := identityOf(w)
	if a != b {
		t.Errorf("identical boundaries must give identical identity: %v vs %v", a, b)
	}
	if len(a.FirstSigPrefix) != 8 || len(a.LastSigPrefix) != 8 {
		t.Errorf("expected 8-char prefixes, got %q and %q", a.FirstSigPrefix, a.LastSigPrefix)
	}

	// Changing a middle record leaves the identity unchanged.
	mid := make([]domain.TradeRecord, len(w))
	copy(mid, w)
	mid[2].SolAmount = 42
	mid[2].Signature = "different-middle"
	if identityOf(mid) != a {
		t.Error("identity must depend only on boundary records")
	}
}

func TestAggregator_ConsiderLedgerUsesTail(t *testing.T) {
	sink := &recordingSink{}
	agg := NewAggregator(5, sink, discard())

	ledger := window(
		[]domain.Side{domain.SideSell, domain.SideSell, domain.SideBuy, domain.SideBuy, domain.SideBuy, domain.SideBuy, domain.SideBuy},
		[]float64{10, 10, 1, 1, 1, 1, 1},
	)

	if err := agg.ConsiderLedger(context.Background(), ledger); err != nil {
		t.Fatalf("ConsiderLedger: %v", err)
	}
	if len(sink.calls) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(sink.calls))
	}
	// Only the trailing 5 records count: all buys of 1 SOL.
	if sink.calls[0].direction != domain.SideBuy || sink.calls[0].magnitude != 5 {
		t.Errorf("expected buy/5 from the tail, got %s/%v", sink.calls[0].direction, sink.calls[0].magnitude)
	}
}
