// Package memory provides in-memory storage implementations for tests
// and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/OnchainAlpha/solanatrading/internal/domain"
	"github.com/OnchainAlpha/solanatrading/internal/storage"
)

// TradeLedger is an in-memory implementation of storage.TradeLedger.
type TradeLedger struct {
	mu      sync.RWMutex
	records []domain.TradeRecord
}

var _ storage.TradeLedger = (*TradeLedger)(nil)

// NewTradeLedger creates an empty in-memory ledger.
func NewTradeLedger() *TradeLedger {
	return &TradeLedger{}
}

// ReadAll returns a copy of all records in write order.
func (l *TradeLedger) ReadAll() ([]domain.TradeRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.TradeRecord, len(l.records))
	copy(out, l.records)
	return out, nil
}

// Append adds records to the end of the ledger.
func (l *TradeLedger) Append(records []domain.TradeRecord) error {
	if len(records) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, records...)
	return nil
}

// WriteAll replaces the ledger contents.
func (l *TradeLedger) WriteAll(records []domain.TradeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = make([]domain.TradeRecord, len(records))
	copy(l.records, records)
	return nil
}

// TradeSink is an in-memory implementation of storage.TradeSink that
// records every insert for inspection in tests.
type TradeSink struct {
	mu      sync.Mutex
	inserts map[string][]domain.TradeRecord
}

var _ storage.TradeSink = (*TradeSink)(nil)

// NewTradeSink creates an empty in-memory sink.
func NewTradeSink() *TradeSink {
	return &TradeSink{inserts: make(map[string][]domain.TradeRecord)}
}

// InsertTrades records the insert under the token address.
func (s *TradeSink) InsertTrades(_ context.Context, tokenAddress string, records []domain.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inserts[tokenAddress] = append(s.inserts[tokenAddress], records...)
	return nil
}

// Inserted returns all records inserted for a token.
func (s *TradeSink) Inserted(tokenAddress string) []domain.TradeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.TradeRecord, len(s.inserts[tokenAddress]))
	copy(out, s.inserts[tokenAddress])
	return out
}
