// Package watch drives one token's detection loop: poll signatures,
// fetch and classify transactions, persist trades, and feed the decision
// paths. One Session per token; sessions do not share timers or state.
package watch

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/OnchainAlpha/solanatrading/internal/batch"
	"github.com/OnchainAlpha/solanatrading/internal/classify"
	"github.com/OnchainAlpha/solanatrading/internal/dedup"
	"github.com/OnchainAlpha/solanatrading/internal/domain"
	"github.com/OnchainAlpha/solanatrading/internal/observability"
	"github.com/OnchainAlpha/solanatrading/internal/solana"
	"github.com/OnchainAlpha/solanatrading/internal/storage"
)

// Session timing defaults.
const (
	DefaultPollInterval   = 10 * time.Second
	DefaultBatchInterval  = 30 * time.Second
	DefaultFetchDelay     = 500 * time.Millisecond
	DefaultSignatureLimit = 25
)

// TradeHandler receives each newly classified trade (the per-trade
// decision path).
type TradeHandler interface {
	OnTrade(ctx context.Context, rec domain.TradeRecord) error
}

// Config parameterizes one watch session.
type Config struct {
	TokenAddress string

	// PollInterval drives the signature-watch loop; BatchInterval
	// drives the batch-decision loop.
	PollInterval  time.Duration
	BatchInterval time.Duration

	// FetchDelay spaces consecutive transaction fetches within one
	// cycle, independent of retry backoff.
	FetchDelay time.Duration

	SignatureLimit int
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.BatchInterval <= 0 {
		c.BatchInterval = DefaultBatchInterval
	}
	if c.FetchDelay < 0 {
		c.FetchDelay = DefaultFetchDelay
	}
	if c.SignatureLimit <= 0 {
		c.SignatureLimit = DefaultSignatureLimit
	}
}

// Session watches one token. Create with NewSession and drive with Run.
type Session struct {
	config     Config
	source     *SignatureSource
	fetcher    *TransactionFetcher
	classifier classify.Classifier
	signatures *dedup.SignatureSet
	ledger     storage.TradeLedger
	sinks      []storage.TradeSink
	aggregator *batch.Aggregator
	handler    TradeHandler
	diag       *Diagnostics
	metrics    *observability.Metrics
	logger     *log.Logger

	firstPopulation bool
	wake            chan struct{}

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSession wires a session. metrics may be nil; everything else is
// required. sinks receive copies of newly persisted records.
func NewSession(
	config Config,
	source *SignatureSource,
	fetcher *TransactionFetcher,
	classifier classify.Classifier,
	ledger storage.TradeLedger,
	sinks []storage.TradeSink,
	aggregator *batch.Aggregator,
	handler TradeHandler,
	metrics *observability.Metrics,
	logger *log.Logger,
) *Session {
	config.applyDefaults()
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		config:          config,
		source:          source,
		fetcher:         fetcher,
		classifier:      classifier,
		signatures:      dedup.NewSignatureSet(0),
		ledger:          ledger,
		sinks:           sinks,
		aggregator:      aggregator,
		handler:         handler,
		diag:            &Diagnostics{},
		metrics:         metrics,
		logger:          logger,
		firstPopulation: true,
		wake:            make(chan struct{}, 1),
		sleep:           sleepCtx,
	}
}

// Wake requests an immediate poll cycle, coalescing with any pending
// request. Used by push feeds to beat the poll interval.
func (s *Session) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Diagnostics exposes the session's per-category counters.
func (s *Session) Diagnostics() *Diagnostics {
	return s.diag
}

// Run drives both loops until ctx is cancelled. A cycle in progress
// finishes before Run returns; cancellation is observed between cycles
// and between fetches.
func (s *Session) Run(ctx context.Context) error {
	pollTicker := time.NewTicker(s.config.PollInterval)
	defer pollTicker.Stop()
	batchTicker := time.NewTicker(s.config.BatchInterval)
	defer batchTicker.Stop()

	s.logger.Printf("watching %s (poll %v, batch %v)", s.config.TokenAddress, s.config.PollInterval, s.config.BatchInterval)

	s.PollCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Printf("session for %s stopping: %v", s.config.TokenAddress, ctx.Err())
			return ctx.Err()
		case <-pollTicker.C:
			s.PollCycle(ctx)
		case <-s.wake:
			s.PollCycle(ctx)
		case <-batchTicker.C:
			s.BatchCycle(ctx)
		}
	}
}

// PollCycle runs one signature poll: list, filter, fetch, classify,
// persist, and feed the per-trade path. Per-signature failures are
// counted and skipped; they never abort the cycle.
func (s *Session) PollCycle(ctx context.Context) {
	sigs, err := s.source.List(ctx, s.config.TokenAddress, s.config.SignatureLimit, s.signatures.LastSignature())
	if err != nil {
		s.countError(err)
		s.logger.Printf("list signatures: %v", err)
		return
	}
	if s.metrics != nil {
		s.metrics.SignaturesListed.Add(float64(len(sigs)))
	}

	pending := s.filterNew(sigs)
	if len(pending) == 0 {
		return
	}

	// Signatures arrive newest first; process oldest first so ledger
	// timestamps stay non-decreasing.
	var records []domain.TradeRecord
	for i := len(pending) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			break
		}
		info := pending[i]

		rec, ok := s.processSignature(ctx, info)
		if ok {
			records = append(records, rec)
		}

		if i > 0 && s.config.FetchDelay > 0 {
			if err := s.sleep(ctx, s.config.FetchDelay); err != nil {
				break
			}
		}
	}

	if len(records) == 0 {
		return
	}

	if err := s.persist(ctx, records); err != nil {
		s.diag.PersistenceFailures.Add(1)
		if s.metrics != nil {
			s.metrics.SessionErrors.WithLabelValues(observability.ErrorPersistenceFailure).Inc()
		}
		s.logger.Printf("persist %d records: %v", len(records), err)
		return
	}

	for _, rec := range records {
		if err := s.handler.OnTrade(ctx, rec); err != nil {
			s.logger.Printf("trade handler for %s: %v", rec.Signature, err)
		}
	}
}

// BatchCycle reads the ledger tail and hands it to the aggregator.
func (s *Session) BatchCycle(ctx context.Context) {
	records, err := s.ledger.ReadAll()
	if err != nil {
		s.diag.PersistenceFailures.Add(1)
		if s.metrics != nil {
			s.metrics.SessionErrors.WithLabelValues(observability.ErrorPersistenceFailure).Inc()
		}
		s.logger.Printf("read ledger: %v", err)
		return
	}
	if s.metrics != nil {
		s.metrics.LedgerRecords.Set(float64(len(records)))
		s.metrics.BatchesEvaluated.Inc()
	}

	if err := s.aggregator.ConsiderLedger(ctx, records); err != nil {
		s.logger.Printf("batch decision: %v", err)
	}
}

// filterNew drops signatures already processed or older than the newest
// confirmed block time.
func (s *Session) filterNew(sigs []solana.SignatureInfo) []solana.SignatureInfo {
	last := s.signatures.LastBlockTime()

	var pending []solana.SignatureInfo
	for _, info := range sigs {
		if s.signatures.HasProcessed(info.Signature) {
			continue
		}
		if info.BlockTime != nil && *info.BlockTime < last {
			continue
		}
		pending = append(pending, info)
	}
	return pending
}

// processSignature fetches and classifies one transaction. The second
// return is true only when a trade record was produced. Definitive
// skips mark the signature processed; rate-limit exhaustion leaves it
// unmarked so a later cycle can retry.
func (s *Session) processSignature(ctx context.Context, info solana.SignatureInfo) (domain.TradeRecord, bool) {
	blockTime := int64(0)
	if info.BlockTime != nil {
		blockTime = *info.BlockTime
	}

	tx, err := s.fetcher.Fetch(ctx, info.Signature)
	if err != nil {
		s.countError(err)
		s.logger.Printf("fetch %s: %v", info.Signature, err)
		return domain.TradeRecord{}, false
	}
	if tx == nil {
		// Not found or no metadata: definitive skip.
		s.diag.MissingData.Add(1)
		if s.metrics != nil {
			s.metrics.RecordSkip(observability.ErrorMissingData)
		}
		s.signatures.MarkProcessed(info.Signature, blockTime)
		return domain.TradeRecord{}, false
	}

	rec, err := s.classifier.Classify(tx)
	if err != nil {
		reason := s.countError(err)
		s.logger.Printf("skip %s (%s): %v", info.Signature, reason, err)
		s.signatures.MarkProcessed(info.Signature, blockTime)
		return domain.TradeRecord{}, false
	}

	s.signatures.MarkProcessed(info.Signature, blockTime)
	s.diag.TradesDetected.Add(1)
	if s.metrics != nil {
		s.metrics.RecordTrade(string(rec.Side), rec.Timestamp.Unix())
	}
	s.logger.Printf("detected %s of %.6f SOL (%s)", rec.Side, rec.SolAmount, rec.Signature)
	return *rec, true
}

// persist writes records to the ledger and mirrors them to the sinks.
// Sink failures are logged, counted, and do not fail the cycle.
func (s *Session) persist(ctx context.Context, records []domain.TradeRecord) error {
	var err error
	mode := "append"
	if s.firstPopulation {
		// Rewrite only when this token truly has no history yet; a
		// restarted session appends to the ledger it left behind.
		existing, rerr := s.ledger.ReadAll()
		if rerr != nil {
			return rerr
		}
		if len(existing) == 0 {
			mode = "rewrite"
			err = s.ledger.WriteAll(records)
		} else {
			err = s.ledger.Append(records)
		}
	} else {
		err = s.ledger.Append(records)
	}
	if err != nil {
		return err
	}
	s.firstPopulation = false
	if s.metrics != nil {
		s.metrics.LedgerWrites.WithLabelValues(mode).Inc()
	}

	for _, sink := range s.sinks {
		if err := sink.InsertTrades(ctx, s.config.TokenAddress, records); err != nil {
			s.diag.PersistenceFailures.Add(1)
			if s.metrics != nil {
				s.metrics.SessionErrors.WithLabelValues(observability.ErrorPersistenceFailure).Inc()
			}
			s.logger.Printf("mirror %d records: %v", len(records), err)
		}
	}
	return nil
}

// countError buckets an error into the diagnostics taxonomy and returns
// the taxonomy label for log entries.
func (s *Session) countError(err error) string {
	var reason string
	switch {
	case solana.IsRateLimited(err):
		s.diag.RateLimited.Add(1)
		reason = observability.ErrorRateLimited
	case errors.Is(err, classify.ErrNotApplicable):
		s.diag.NotApplicable.Add(1)
		reason = observability.ErrorNotApplicable
	case errors.Is(err, classify.ErrBelowThreshold):
		s.diag.BelowThreshold.Add(1)
		reason = observability.ErrorBelowThreshold
	default:
		s.diag.MissingData.Add(1)
		reason = observability.ErrorMissingData
	}
	if s.metrics != nil {
		s.metrics.RecordSkip(reason)
	}
	return reason
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
