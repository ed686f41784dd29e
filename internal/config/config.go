// Package config loads session settings from a YAML file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config stores all configuration for a watch session. Values are read
// by viper from a config file or environment variables; every field has
// a working default.
type Config struct {
	RPC      RPCConfig      `mapstructure:"rpc"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Decision DecisionConfig `mapstructure:"decision"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// RPCConfig defines the upstream RPC settings.
type RPCConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	WSEndpoint  string `mapstructure:"ws_endpoint"`
	MaxAttempts int    `mapstructure:"max_attempts"`
	BaseDelayMS int    `mapstructure:"base_delay_ms"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// WatchConfig defines the polling loop settings.
type WatchConfig struct {
	PollIntervalMS  int     `mapstructure:"poll_interval_ms"`
	BatchIntervalMS int     `mapstructure:"batch_interval_ms"`
	FetchDelayMS    int     `mapstructure:"fetch_delay_ms"`
	SignatureLimit  int     `mapstructure:"signature_limit"`
	Strategy        string  `mapstructure:"strategy"`
	MinSolAmount    float64 `mapstructure:"min_sol_amount"`
}

// DecisionConfig defines the contrarian engine settings.
type DecisionConfig struct {
	CooldownMS    int     `mapstructure:"cooldown_ms"`
	TradeFraction float64 `mapstructure:"trade_fraction"`
	BatchWindow   int     `mapstructure:"batch_window"`
	BuyPercent    float64 `mapstructure:"buy_percent"`
	SellPercent   float64 `mapstructure:"sell_percent"`
	SlippageBps   int     `mapstructure:"slippage_bps"`
}

// StorageConfig defines the ledger file and optional mirrors.
type StorageConfig struct {
	LedgerDir     string `mapstructure:"ledger_dir"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`
}

// KafkaConfig defines the optional trade publisher.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// MetricsConfig defines the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Classification strategy names accepted in WatchConfig.Strategy.
const (
	StrategyPoolDelta = "pool-delta"
	StrategyUserDelta = "user-delta"
)

// Load reads configuration from dir/config.yaml and CONTRARIAN_*
// environment variables. A missing file is fine; defaults and the
// environment fill in everything.
func Load(dir string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("CONTRARIAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rpc.endpoint", "https://api.mainnet-beta.solana.com")
	v.SetDefault("rpc.max_attempts", 3)
	v.SetDefault("rpc.base_delay_ms", 1000)
	v.SetDefault("rpc.timeout_secs", 30)

	v.SetDefault("watch.poll_interval_ms", 10000)
	v.SetDefault("watch.batch_interval_ms", 30000)
	v.SetDefault("watch.fetch_delay_ms", 500)
	v.SetDefault("watch.signature_limit", 25)
	v.SetDefault("watch.strategy", StrategyUserDelta)
	v.SetDefault("watch.min_sol_amount", 0.01)

	v.SetDefault("decision.cooldown_ms", 1000)
	v.SetDefault("decision.trade_fraction", 0.10)
	v.SetDefault("decision.batch_window", 5)
	v.SetDefault("decision.buy_percent", 0.25)
	v.SetDefault("decision.sell_percent", 0.25)
	v.SetDefault("decision.slippage_bps", 500)

	v.SetDefault("storage.ledger_dir", "data")

	v.SetDefault("kafka.topic", "contrarian.trades")

	v.SetDefault("metrics.addr", "")
}

func (c Config) validate() error {
	switch c.Watch.Strategy {
	case StrategyPoolDelta, StrategyUserDelta:
	default:
		return fmt.Errorf("unknown strategy %q", c.Watch.Strategy)
	}

	if c.Decision.TradeFraction <= 0 || c.Decision.TradeFraction > 1 {
		return fmt.Errorf("trade_fraction must be in (0, 1], got %v", c.Decision.TradeFraction)
	}
	for name, pct := range map[string]float64{
		"buy_percent":  c.Decision.BuyPercent,
		"sell_percent": c.Decision.SellPercent,
	} {
		if pct < 0 || pct > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %v", name, pct)
		}
	}
	if c.Decision.BatchWindow <= 0 {
		return fmt.Errorf("batch_window must be positive, got %d", c.Decision.BatchWindow)
	}
	return nil
}
