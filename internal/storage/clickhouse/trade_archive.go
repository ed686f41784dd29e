package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/OnchainAlpha/solanatrading/internal/domain"
	"github.com/OnchainAlpha/solanatrading/internal/storage"
)

// TradeArchive implements storage.TradeSink using ClickHouse. The table
// is a MergeTree; duplicates are tolerated at insert time and collapsed
// by signature during reads.
type TradeArchive struct {
	conn *Conn
}

// NewTradeArchive creates a new TradeArchive.
func NewTradeArchive(conn *Conn) *TradeArchive {
	return &TradeArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeSink = (*TradeArchive)(nil)

// InsertTrades appends records as one batch.
func (a *TradeArchive) InsertTrades(ctx context.Context, tokenAddress string, records []domain.TradeRecord) error {
	if len(records) == 0 {
		return nil
	}
	if tokenAddress == "" {
		return storage.ErrInvalidInput
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO trade_archive (
			token_address, tx_signature, traded_at, side, sol_amount, token_amount
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, rec := range records {
		err = batch.Append(
			tokenAddress, rec.Signature, rec.Timestamp.UTC(),
			string(rec.Side), rec.SolAmount, rec.TokenAmount,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByToken retrieves archived trades for a token, ordered by trade
// time ascending, with duplicate signatures collapsed.
func (a *TradeArchive) GetByToken(ctx context.Context, tokenAddress string) ([]domain.TradeRecord, error) {
	query := `
		SELECT traded_at, side, sol_amount, token_amount, tx_signature
		FROM trade_archive
		WHERE token_address = ?
		GROUP BY traded_at, side, sol_amount, token_amount, tx_signature
		ORDER BY traded_at ASC, tx_signature ASC
	`

	rows, err := a.conn.Query(ctx, query, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("query by token: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// NetVolume sums signed SOL volume (buys positive, sells negative) for a
// token within [start, end].
func (a *TradeArchive) NetVolume(ctx context.Context, tokenAddress string, start, end time.Time) (float64, error) {
	query := `
		SELECT sum(if(side = 'sell', -sol_amount, sol_amount))
		FROM trade_archive
		WHERE token_address = ? AND traded_at >= ? AND traded_at <= ?
	`

	var net float64
	err := a.conn.QueryRow(ctx, query, tokenAddress, start.UTC(), end.UTC()).Scan(&net)
	if err != nil {
		return 0, fmt.Errorf("net volume: %w", err)
	}
	return net, nil
}

// scanTrades scans multiple rows.
func scanTrades(rows chRows) ([]domain.TradeRecord, error) {
	var records []domain.TradeRecord

	for rows.Next() {
		var rec domain.TradeRecord
		var side string

		err := rows.Scan(&rec.Timestamp, &side, &rec.SolAmount, &rec.TokenAmount, &rec.Signature)
		if err != nil {
			return nil, fmt.Errorf("scan trade archive row: %w", err)
		}

		rec.Side = domain.Side(side)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade archive rows: %w", err)
	}

	return records, nil
}
