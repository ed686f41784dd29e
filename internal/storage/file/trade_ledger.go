// Package file persists the trade ledger as a CSV file with a fixed
// header. One file per watched token.
package file

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/OnchainAlpha/solanatrading/internal/domain"
	"github.com/OnchainAlpha/solanatrading/internal/storage"
)

// Ledger column order. TYPE is BUY or SELL; timestamps are ISO-8601.
var header = []string{"TIMESTAMP", "TYPE", "SOL_AMOUNT", "TOKEN_AMOUNT", "TX_HASH"}

// TradeLedger stores trade records in a CSV file. Writes go to a
// temporary file in the same directory, then rename into place.
type TradeLedger struct {
	path string
}

var _ storage.TradeLedger = (*TradeLedger)(nil)

// NewTradeLedger creates a ledger backed by the file at path. The file is
// created lazily on first write.
func NewTradeLedger(path string) *TradeLedger {
	return &TradeLedger{path: path}
}

// Path returns the backing file path.
func (l *TradeLedger) Path() string {
	return l.path
}

// ReadAll returns records oldest to newest as written. A missing file
// reads as an empty ledger.
func (l *TradeLedger) ReadAll() ([]domain.TradeRecord, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// Drop the header row.
	rows = rows[1:]

	records := make([]domain.TradeRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Append reads the existing ledger, concatenates records, and rewrites
// the file atomically.
func (l *TradeLedger) Append(records []domain.TradeRecord) error {
	if len(records) == 0 {
		return nil
	}

	existing, err := l.ReadAll()
	if err != nil {
		return err
	}

	return l.WriteAll(append(existing, records...))
}

// WriteAll replaces the ledger wholesale, writing to a temporary file
// and renaming into place.
func (l *TradeLedger) WriteAll(records []domain.TradeRecord) error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()

	writer := csv.NewWriter(tmp)
	if err := writer.Write(header); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write ledger header: %w", err)
	}
	for _, rec := range records {
		if err := writer.Write(formatRow(rec)); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("write ledger record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flush ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp ledger: %w", err)
	}

	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

func formatRow(rec domain.TradeRecord) []string {
	return []string{
		rec.Timestamp.UTC().Format(time.RFC3339),
		strings.ToUpper(string(rec.Side)),
		strconv.FormatFloat(rec.SolAmount, 'f', -1, 64),
		strconv.FormatFloat(rec.TokenAmount, 'f', -1, 64),
		rec.Signature,
	}
}

func parseRow(row []string) (domain.TradeRecord, error) {
	if len(row) != len(header) {
		return domain.TradeRecord{}, fmt.Errorf("expected %d columns, got %d", len(header), len(row))
	}

	ts, err := time.Parse(time.RFC3339, row[0])
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("parse timestamp %q: %w", row[0], err)
	}

	var side domain.Side
	switch row[1] {
	case "BUY":
		side = domain.SideBuy
	case "SELL":
		side = domain.SideSell
	default:
		return domain.TradeRecord{}, fmt.Errorf("unknown trade type %q", row[1])
	}

	solAmount, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("parse sol amount %q: %w", row[2], err)
	}
	tokenAmount, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("parse token amount %q: %w", row[3], err)
	}

	return domain.TradeRecord{
		Timestamp:   ts,
		Side:        side,
		SolAmount:   solAmount,
		TokenAmount: tokenAmount,
		Signature:   row[4],
	}, nil
}
