package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cryptobot/ledger"
	"cryptobot/market"
)

// Config is the complete process configuration.
type Config struct {
	Account AccountConfig `json:"account" yaml:"account"`
	Bot     BotConfig     `json:"bot" yaml:"bot"`
	Feed    FeedConfig    `json:"feed" yaml:"feed"`
	Advisor AdvisorConfig `json:"advisor" yaml:"advisor"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Server  ServerConfig  `json:"server" yaml:"server"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// AccountConfig sets the starting balances.
type AccountConfig struct {
	DemoBalance float64 `json:"demo_balance" yaml:"demo_balance"`
	RealBalance float64 `json:"real_balance" yaml:"real_balance"`
}

// BotConfig is the operator-tunable trading configuration. The running bot
// reads it on every decision; mutations take effect on the next evaluation
// cycle and never retroactively on open positions.
type BotConfig struct {
	Active           bool           `json:"active" yaml:"active"`
	Strategy         string         `json:"strategy" yaml:"strategy"`
	Timeframe        string         `json:"timeframe" yaml:"timeframe"`
	Leverage         float64        `json:"leverage" yaml:"leverage"`
	RiskPerTrade     float64        `json:"risk_per_trade" yaml:"risk_per_trade"`
	MaxOpenPositions int            `json:"max_open_positions" yaml:"max_open_positions"`
	TakeProfitPct    float64        `json:"take_profit_pct" yaml:"take_profit_pct"`
	StopLossPct      float64        `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	Pairs            []string       `json:"pairs" yaml:"pairs"`
	Venue            market.Venue   `json:"venue" yaml:"venue"`
	Learning         bool           `json:"learning" yaml:"learning"`
	Account          ledger.Account `json:"account" yaml:"account"`
	EvalInterval     string         `json:"eval_interval" yaml:"eval_interval"`
}

// EvalDuration parses the evaluation-cycle cadence.
func (b BotConfig) EvalDuration() (time.Duration, error) {
	if b.EvalInterval == "" {
		return 10 * time.Second, nil
	}
	return time.ParseDuration(b.EvalInterval)
}

// FeedConfig controls the simulated price feed.
type FeedConfig struct {
	Interval string `json:"interval" yaml:"interval"`
	Seed     int64  `json:"seed" yaml:"seed"`
}

// TickDuration parses the feed cadence.
func (f FeedConfig) TickDuration() (time.Duration, error) {
	if f.Interval == "" {
		return 2 * time.Second, nil
	}
	return time.ParseDuration(f.Interval)
}

// AdvisorConfig points at the external analysis oracle. An empty URL selects
// the built-in heuristic advisor.
type AdvisorConfig struct {
	URL           string  `json:"url" yaml:"url"`
	APIKeyEnv     string  `json:"api_key_env" yaml:"api_key_env"`
	Timeout       string  `json:"timeout" yaml:"timeout"`
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`
}

// TimeoutDuration parses the oracle request timeout.
func (a AdvisorConfig) TimeoutDuration() (time.Duration, error) {
	if a.Timeout == "" {
		return 8 * time.Second, nil
	}
	return time.ParseDuration(a.Timeout)
}

// JournalConfig selects the trade journal backend.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite", or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// ServerConfig controls the operator HTTP/websocket API.
type ServerConfig struct {
	Port int `json:"port" yaml:"port"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if c.Account.DemoBalance < 0 || c.Account.RealBalance < 0 {
		return fmt.Errorf("account balances must be non-negative")
	}
	if err := c.Bot.Validate(); err != nil {
		return err
	}
	if _, err := c.Feed.TickDuration(); err != nil {
		return fmt.Errorf("feed.interval: %w", err)
	}
	if _, err := c.Advisor.TimeoutDuration(); err != nil {
		return fmt.Errorf("advisor.timeout: %w", err)
	}
	if c.Advisor.MinConfidence < 0 || c.Advisor.MinConfidence > 100 {
		return fmt.Errorf("advisor.min_confidence must be within [0,100]")
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none", "":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite', or 'none'")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range")
	}
	return nil
}

// Validate checks the bot settings. It is also applied to operator mutations
// at runtime, so a bad update is rejected before it can reach a decision.
func (b BotConfig) Validate() error {
	if b.Leverage < 1 || b.Leverage > 125 {
		return fmt.Errorf("bot.leverage must be within [1,125]")
	}
	if b.RiskPerTrade <= 0 || b.RiskPerTrade > 100 {
		return fmt.Errorf("bot.risk_per_trade must be within (0,100]")
	}
	if b.MaxOpenPositions < 0 {
		return fmt.Errorf("bot.max_open_positions must be non-negative")
	}
	if b.TakeProfitPct <= 0 {
		return fmt.Errorf("bot.take_profit_pct must be positive")
	}
	if b.StopLossPct <= 0 {
		return fmt.Errorf("bot.stop_loss_pct must be positive")
	}
	switch b.Venue {
	case market.Binance, market.Bybit, market.Mexc:
	default:
		return fmt.Errorf("bot.venue must be one of BINANCE, BYBIT, MEXC")
	}
	switch b.Account {
	case ledger.Demo, ledger.Real:
	default:
		return fmt.Errorf("bot.account must be DEMO or REAL")
	}
	switch strings.ToUpper(b.Strategy) {
	case "SCALP", "DAY_TRADE":
	default:
		return fmt.Errorf("bot.strategy must be SCALP or DAY_TRADE")
	}
	if _, err := b.EvalDuration(); err != nil {
		return fmt.Errorf("bot.eval_interval: %w", err)
	}
	return nil
}

// Default returns the configuration the bot ships with.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			DemoBalance: 10000,
			RealBalance: 0,
		},
		Bot: BotConfig{
			Active:           false,
			Strategy:         "SCALP",
			Timeframe:        "15m",
			Leverage:         20,
			RiskPerTrade:     2.0,
			MaxOpenPositions: 5,
			TakeProfitPct:    2.5,
			StopLossPct:      1.2,
			Pairs:            []string{"BTC/USDT", "ETH/USDT"},
			Venue:            market.Binance,
			Learning:         true,
			Account:          ledger.Demo,
			EvalInterval:     "10s",
		},
		Feed: FeedConfig{
			Interval: "2s",
		},
		Advisor: AdvisorConfig{
			APIKeyEnv:     "ORACLE_API_KEY",
			Timeout:       "8s",
			MinConfidence: 88,
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
