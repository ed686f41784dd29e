package postgres

import (
	"context"
	"fmt"

	"github.com/OnchainAlpha/solanatrading/internal/domain"
	"github.com/OnchainAlpha/solanatrading/internal/storage"
)

// TradeMirror implements storage.TradeSink using PostgreSQL.
type TradeMirror struct {
	pool *Pool
}

// NewTradeMirror creates a new TradeMirror.
func NewTradeMirror(pool *Pool) *TradeMirror {
	return &TradeMirror{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeSink = (*TradeMirror)(nil)

// InsertTrades adds records atomically. Fails the entire batch with
// ErrDuplicateKey if any (token_address, tx_signature) pair exists.
func (m *TradeMirror) InsertTrades(ctx context.Context, tokenAddress string, records []domain.TradeRecord) error {
	if len(records) == 0 {
		return nil
	}
	if tokenAddress == "" {
		return storage.ErrInvalidInput
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO trade_records (
			token_address, tx_signature, traded_at, side, sol_amount, token_amount
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, rec := range records {
		if rec.Signature == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			tokenAddress, rec.Signature, rec.Timestamp.UTC(), string(rec.Side), rec.SolAmount, rec.TokenAmount,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByToken retrieves all mirrored trades for a token, ordered by
// trade time ascending.
func (m *TradeMirror) GetByToken(ctx context.Context, tokenAddress string) ([]domain.TradeRecord, error) {
	query := `
		SELECT traded_at, side, sol_amount, token_amount, tx_signature
		FROM trade_records
		WHERE token_address = $1
		ORDER BY traded_at ASC, tx_signature ASC
	`

	rows, err := m.pool.Query(ctx, query, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("get trades by token: %w", err)
	}
	defer rows.Close()

	var records []domain.TradeRecord
	for rows.Next() {
		var rec domain.TradeRecord
		var side string
		if err := rows.Scan(&rec.Timestamp, &side, &rec.SolAmount, &rec.TokenAmount, &rec.Signature); err != nil {
			return nil, fmt.Errorf("scan trade record row: %w", err)
		}
		rec.Side = domain.Side(side)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade record rows: %w", err)
	}

	return records, nil
}
