// Package main runs a contrarian watch session for one token: poll its
// transaction stream, classify buys and sells, keep a CSV trade ledger,
// and place opposite-direction paper orders on net pressure.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/OnchainAlpha/solanatrading/internal/batch"
	"github.com/OnchainAlpha/solanatrading/internal/classify"
	"github.com/OnchainAlpha/solanatrading/internal/config"
	"github.com/OnchainAlpha/solanatrading/internal/decision"
	"github.com/OnchainAlpha/solanatrading/internal/execution"
	"github.com/OnchainAlpha/solanatrading/internal/observability"
	"github.com/OnchainAlpha/solanatrading/internal/publish"
	"github.com/OnchainAlpha/solanatrading/internal/solana"
	"github.com/OnchainAlpha/solanatrading/internal/storage"
	chstore "github.com/OnchainAlpha/solanatrading/internal/storage/clickhouse"
	"github.com/OnchainAlpha/solanatrading/internal/storage/file"
	"github.com/OnchainAlpha/solanatrading/internal/storage/migrations"
	pgstore "github.com/OnchainAlpha/solanatrading/internal/storage/postgres"
	"github.com/OnchainAlpha/solanatrading/internal/watch"
)

func main() {
	configDir := flag.String("config-dir", ".", "Directory containing config.yaml")
	strategyFlag := flag.String("strategy", "", "Classification strategy: pool-delta or user-delta (overrides config)")
	ledgerPath := flag.String("ledger", "", "Trade ledger CSV path (default <ledger_dir>/trades_<token>.csv)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides config)")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <token-address>\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := log.New(os.Stdout, "[contrarian] ", log.LstdFlags)

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	tokenAddress := flag.Arg(0)
	if err := solana.ValidateAddress(tokenAddress); err != nil {
		logger.Fatalf("invalid token address %q: %v", tokenAddress, err)
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *strategyFlag != "" {
		cfg.Watch.Strategy = *strategyFlag
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		metrics = observability.NewMetrics("")
		go serveMetrics(cfg.Metrics.Addr, logger)
	}
	fatalStartup := func(format string, args ...interface{}) {
		if metrics != nil {
			metrics.SessionErrors.WithLabelValues(observability.ErrorStartupFatal).Inc()
		}
		logger.Fatalf(format, args...)
	}

	client := solana.NewHTTPClient(cfg.RPC.Endpoint,
		solana.WithTimeout(time.Duration(cfg.RPC.TimeoutSecs)*time.Second),
		solana.WithMetrics(metrics))
	retrier := solana.NewRetrier(solana.RetryPolicy{
		MaxAttempts: cfg.RPC.MaxAttempts,
		BaseDelay:   time.Duration(cfg.RPC.BaseDelayMS) * time.Millisecond,
		Multiplier:  2,
	}, metrics, logger)

	classifier, err := buildClassifier(ctx, cfg, client, retrier, tokenAddress, logger)
	if err != nil {
		fatalStartup("startup: %v", err)
	}

	path := *ledgerPath
	if path == "" {
		path = filepath.Join(cfg.Storage.LedgerDir, fmt.Sprintf("trades_%s.csv", tokenAddress))
	}
	ledger := file.NewTradeLedger(path)
	logger.Printf("trade ledger: %s", path)

	sinks, closeSinks, err := buildSinks(ctx, cfg, logger)
	if err != nil {
		fatalStartup("startup: %v", err)
	}
	defer closeSinks()

	engine := decision.NewEngine(decision.Config{
		TokenAddress:   tokenAddress,
		CooldownWindow: time.Duration(cfg.Decision.CooldownMS) * time.Millisecond,
		TradeFraction:  cfg.Decision.TradeFraction,
		BuyPercent:     cfg.Decision.BuyPercent,
		SellPercent:    cfg.Decision.SellPercent,
		SlippageBps:    cfg.Decision.SlippageBps,
	}, decision.NewStateRegistry(), &decision.ExecutionLock{}, execution.NewPaperGateway(logger), metrics, logger)

	session := watch.NewSession(
		watch.Config{
			TokenAddress:   tokenAddress,
			PollInterval:   time.Duration(cfg.Watch.PollIntervalMS) * time.Millisecond,
			BatchInterval:  time.Duration(cfg.Watch.BatchIntervalMS) * time.Millisecond,
			FetchDelay:     time.Duration(cfg.Watch.FetchDelayMS) * time.Millisecond,
			SignatureLimit: cfg.Watch.SignatureLimit,
		},
		watch.NewSignatureSource(client, retrier),
		watch.NewTransactionFetcher(client, retrier),
		classifier,
		ledger,
		sinks,
		batch.NewAggregator(cfg.Decision.BatchWindow, engine, logger),
		engine,
		metrics,
		logger,
	)

	if cfg.RPC.WSEndpoint != "" {
		feed, err := solana.NewWSSignatureFeed(ctx, cfg.RPC.WSEndpoint, tokenAddress, nil)
		if err != nil {
			logger.Printf("websocket feed unavailable, polling only: %v", err)
		} else {
			defer feed.Close()
			go func() {
				for range feed.Events() {
					session.Wake()
				}
			}()
			logger.Printf("websocket feed connected: %s", cfg.RPC.WSEndpoint)
		}
	}

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, initiating graceful shutdown", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = session.Run(ctx)
	done <- err

	snap := session.Diagnostics().Snapshot()
	logger.Printf("session summary: %d trades, %d rate-limited, %d not-applicable, %d below-threshold, %d missing-data, %d persistence failures",
		snap.TradesDetected, snap.RateLimited, snap.NotApplicable, snap.BelowThreshold, snap.MissingData, snap.PersistenceFailures)

	if err != nil && err != context.Canceled {
		logger.Fatalf("session error: %v", err)
	}
	logger.Println("shutdown complete")
}

// buildClassifier resolves the configured strategy. The pool-delta
// strategy needs the bonding-curve account on chain; its absence is a
// fatal startup error.
func buildClassifier(ctx context.Context, cfg config.Config, client solana.RPCClient, retrier *solana.Retrier, tokenAddress string, logger *log.Logger) (classify.Classifier, error) {
	switch cfg.Watch.Strategy {
	case config.StrategyPoolDelta:
		bondingCurve, err := solana.DeriveBondingCurve(tokenAddress)
		if err != nil {
			return nil, fmt.Errorf("derive bonding curve: %w", err)
		}

		var info *solana.AccountInfo
		err = retrier.Do(ctx, "getAccountInfo", func(ctx context.Context) error {
			var err error
			info, err = client.GetAccountInfo(ctx, bondingCurve)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("fetch bonding curve %s: %w", bondingCurve, err)
		}
		if info == nil {
			return nil, fmt.Errorf("bonding curve account %s not found", bondingCurve)
		}

		logger.Printf("pool-delta strategy, bonding curve %s", bondingCurve)
		return classify.NewPoolDeltaClassifier(bondingCurve, tokenAddress), nil

	case config.StrategyUserDelta:
		logger.Printf("user-delta strategy, min trade %.4f SOL", cfg.Watch.MinSolAmount)
		return classify.NewUserDeltaClassifier(tokenAddress, cfg.Watch.MinSolAmount), nil

	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Watch.Strategy)
	}
}

// buildSinks wires the optional ledger mirrors: Postgres, ClickHouse,
// and Kafka. Each is enabled by its config being set.
func buildSinks(ctx context.Context, cfg config.Config, logger *log.Logger) ([]storage.TradeSink, func(), error) {
	var sinks []storage.TradeSink
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.Storage.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			closeAll()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		closers = append(closers, pool.Close)
		sinks = append(sinks, pgstore.NewTradeMirror(pool))
		logger.Println("postgres mirror enabled")
	}

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		sinks = append(sinks, chstore.NewTradeArchive(conn))
		logger.Println("clickhouse archive enabled")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publish.EnsureTopic(ctx, cfg.Kafka.Brokers[0], cfg.Kafka.Topic, logger)
		publisher := publish.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		closers = append(closers, func() { publisher.Close() })
		sinks = append(sinks, publisher)
		logger.Printf("kafka publisher enabled: topic %s", cfg.Kafka.Topic)
	}

	return sinks, closeAll, nil
}

func serveMetrics(addr string, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	logger.Printf("metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Printf("metrics server: %v", err)
	}
}
