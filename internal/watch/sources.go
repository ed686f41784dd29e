package watch

import (
	"context"
	"fmt"

	"github.com/OnchainAlpha/solanatrading/internal/solana"
)

// SignatureSource lists transaction signatures for a token address,
// newest first, with rate-limited calls retried by the retrier.
type SignatureSource struct {
	client  solana.RPCClient
	retrier *solana.Retrier
}

// NewSignatureSource creates a source over client.
func NewSignatureSource(client solana.RPCClient, retrier *solana.Retrier) *SignatureSource {
	return &SignatureSource{client: client, retrier: retrier}
}

// List returns up to limit signatures, newest first. A non-empty until
// signature bounds the query so only newer history is listed. An address
// with no transactions yields an empty slice.
func (s *SignatureSource) List(ctx context.Context, tokenAddress string, limit int, until string) ([]solana.SignatureInfo, error) {
	var sigs []solana.SignatureInfo
	err := s.retrier.Do(ctx, "getSignaturesForAddress", func(ctx context.Context) error {
		var err error
		sigs, err = s.client.GetSignaturesForAddress(ctx, tokenAddress, &solana.SignaturesOpts{Limit: limit, Until: until})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list signatures for %s: %w", tokenAddress, err)
	}
	return sigs, nil
}

// TransactionFetcher resolves signatures into parsed transaction
// metadata, retrying rate-limited calls only.
type TransactionFetcher struct {
	client  solana.RPCClient
	retrier *solana.Retrier
}

// NewTransactionFetcher creates a fetcher over client.
func NewTransactionFetcher(client solana.RPCClient, retrier *solana.Retrier) *TransactionFetcher {
	return &TransactionFetcher{client: client, retrier: retrier}
}

// Fetch returns the parsed transaction, or (nil, nil) when the
// transaction or its metadata is absent. Callers treat the nil result as
// skip, not as a retryable failure.
func (f *TransactionFetcher) Fetch(ctx context.Context, signature string) (*solana.TransactionDetail, error) {
	var tx *solana.TransactionDetail
	err := f.retrier.Do(ctx, "getTransaction", func(ctx context.Context) error {
		var err error
		tx, err = f.client.GetParsedTransaction(ctx, signature)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}
