package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptobot/ledger"
	"cryptobot/market"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10000.0, cfg.Account.DemoBalance)
	assert.Equal(t, 0.0, cfg.Account.RealBalance)
	assert.False(t, cfg.Bot.Active)
	assert.Equal(t, 20.0, cfg.Bot.Leverage)
	assert.Equal(t, 2.0, cfg.Bot.RiskPerTrade)
	assert.Equal(t, 5, cfg.Bot.MaxOpenPositions)
	assert.Equal(t, 2.5, cfg.Bot.TakeProfitPct)
	assert.Equal(t, 1.2, cfg.Bot.StopLossPct)
	assert.Equal(t, market.Binance, cfg.Bot.Venue)
	assert.Equal(t, ledger.Demo, cfg.Bot.Account)
	assert.Equal(t, 88.0, cfg.Advisor.MinConfidence)
}

func TestBotValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*BotConfig)
		ok     bool
	}{
		{"default", func(b *BotConfig) {}, true},
		{"max leverage", func(b *BotConfig) { b.Leverage = 125 }, true},
		{"leverage too high", func(b *BotConfig) { b.Leverage = 126 }, false},
		{"leverage below one", func(b *BotConfig) { b.Leverage = 0.5 }, false},
		{"zero risk", func(b *BotConfig) { b.RiskPerTrade = 0 }, false},
		{"risk over 100", func(b *BotConfig) { b.RiskPerTrade = 101 }, false},
		{"negative max open", func(b *BotConfig) { b.MaxOpenPositions = -1 }, false},
		{"zero max open", func(b *BotConfig) { b.MaxOpenPositions = 0 }, true},
		{"zero take profit", func(b *BotConfig) { b.TakeProfitPct = 0 }, false},
		{"zero stop loss", func(b *BotConfig) { b.StopLossPct = 0 }, false},
		{"unknown venue", func(b *BotConfig) { b.Venue = "KRAKEN" }, false},
		{"unknown account", func(b *BotConfig) { b.Account = "PAPER" }, false},
		{"day trade strategy", func(b *BotConfig) { b.Strategy = "DAY_TRADE" }, true},
		{"unknown strategy", func(b *BotConfig) { b.Strategy = "YOLO" }, false},
		{"bad eval interval", func(b *BotConfig) { b.EvalInterval = "soon" }, false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b := Default().Bot
			tc.mutate(&b)
			err := b.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateRejectsBadSections(t *testing.T) {
	t.Parallel()

	t.Run("negative balance", func(t *testing.T) {
		t.Parallel()
		cfg := Default()
		cfg.Account.DemoBalance = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("csv without paths", func(t *testing.T) {
		t.Parallel()
		cfg := Default()
		cfg.Journal = JournalConfig{Type: "csv"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("sqlite without path", func(t *testing.T) {
		t.Parallel()
		cfg := Default()
		cfg.Journal = JournalConfig{Type: "sqlite"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown journal type", func(t *testing.T) {
		t.Parallel()
		cfg := Default()
		cfg.Journal.Type = "parquet"
		assert.Error(t, cfg.Validate())
	})

	t.Run("confidence out of range", func(t *testing.T) {
		t.Parallel()
		cfg := Default()
		cfg.Advisor.MinConfidence = 101
		assert.Error(t, cfg.Validate())
	})

	t.Run("port out of range", func(t *testing.T) {
		t.Parallel()
		cfg := Default()
		cfg.Server.Port = 70000
		assert.Error(t, cfg.Validate())
	})
}

func TestLoadFromFileYAML(t *testing.T) {
	t.Parallel()

	raw := `
bot:
  active: true
  leverage: 10
  risk_per_trade: 1.5
  pairs: ["SOL/USDT"]
  venue: BYBIT
advisor:
  min_confidence: 90
server:
  port: 9090
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.True(t, cfg.Bot.Active)
	assert.Equal(t, 10.0, cfg.Bot.Leverage)
	assert.Equal(t, 1.5, cfg.Bot.RiskPerTrade)
	assert.Equal(t, []string{"SOL/USDT"}, cfg.Bot.Pairs)
	assert.Equal(t, market.Bybit, cfg.Bot.Venue)
	assert.Equal(t, 90.0, cfg.Advisor.MinConfidence)
	assert.Equal(t, 9090, cfg.Server.Port)

	// Unspecified fields keep their defaults.
	assert.Equal(t, 5, cfg.Bot.MaxOpenPositions)
	assert.Equal(t, 10000.0, cfg.Account.DemoBalance)
}

func TestLoadFromFileJSON(t *testing.T) {
	t.Parallel()

	raw := `{"bot": {"leverage": 30, "strategy": "DAY_TRADE"}}`
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 30.0, cfg.Bot.Leverage)
	assert.Equal(t, "DAY_TRADE", cfg.Bot.Strategy)
}

func TestLoadFromFileRejectsInvalid(t *testing.T) {
	t.Parallel()

	raw := "bot:\n  leverage: 9000\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadFromFileMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDurations(t *testing.T) {
	t.Parallel()

	d, err := BotConfig{}.EvalDuration()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, d)

	d, err = FeedConfig{}.TickDuration()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)

	d, err = AdvisorConfig{Timeout: "500ms"}.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, d)
}
