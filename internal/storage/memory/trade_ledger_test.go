package memory

import (
	"testing"
	"time"

	"github.com/OnchainAlpha/solanatrading/internal/domain"
)

func TestTradeLedger_AppendAndReadAll(t *testing.T) {
	ledger := NewTradeLedger()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := []domain.TradeRecord{
		{Timestamp: base, Side: domain.SideBuy, SolAmount: 1, TokenAmount: 100, Signature: "a"},
	}
	second := []domain.TradeRecord{
		{Timestamp: base.Add(time.Minute), Side: domain.SideSell, SolAmount: 2, TokenAmount: 200, Signature: "b"},
	}

	if err := ledger.Append(first); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := ledger.Append(second); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := ledger.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 || got[0].Signature != "a" || got[1].Signature != "b" {
		t.Errorf("unexpected records: %+v", got)
	}
}

func TestTradeLedger_WriteAllReplaces(t *testing.T) {
	ledger := NewTradeLedger()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger.Append([]domain.TradeRecord{{Timestamp: base, Side: domain.SideBuy, SolAmount: 1, TokenAmount: 100, Signature: "old"}})

	replacement := []domain.TradeRecord{
		{Timestamp: base, Side: domain.SideSell, SolAmount: 3, TokenAmount: 300, Signature: "new"},
	}
	if err := ledger.WriteAll(replacement); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	got, _ := ledger.ReadAll()
	if len(got) != 1 || got[0].Signature != "new" {
		t.Errorf("expected replacement records, got %+v", got)
	}
}

func TestTradeLedger_ReadAllReturnsCopy(t *testing.T) {
	ledger := NewTradeLedger()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger.Append([]domain.TradeRecord{{Timestamp: base, Side: domain.SideBuy, SolAmount: 1, TokenAmount: 100, Signature: "a"}})

	got, _ := ledger.ReadAll()
	got[0].Signature = "mutated"

	again, _ := ledger.ReadAll()
	if again[0].Signature != "a" {
		t.Error("ReadAll must return a copy")
	}
}
