// Package bot orchestrates the position lifecycle: the fast price tick that
// revalues open positions and fires exit levels, and the slower advisory
// cycle that opens new positions through the risk gate.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"cryptobot/activity"
	"cryptobot/advisor"
	"cryptobot/config"
	"cryptobot/internal/id"
	"cryptobot/journal"
	"cryptobot/ledger"
	"cryptobot/market"
	"cryptobot/risk"
)

// FeeRate is the round-trip fee applied once at settlement: 4 bps of the
// entry notional.
const FeeRate = 0.0004

// Event is pushed to the operator event stream on every notable state
// change.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Deps are the engine's collaborators.
type Deps struct {
	Feed    *market.Feed
	Ledger  *ledger.Ledger
	Advisor advisor.Advisor
	Journal journal.Journal
	Log     *activity.Log
	Logger  *logrus.Logger
}

// Engine drives the open → monitor → close lifecycle. All ledger mutation
// is serialized by the ledger's own lock; the engine never mutates ledger
// state outside of it.
type Engine struct {
	feed    *market.Feed
	ledger  *ledger.Ledger
	advisor advisor.Advisor
	journal journal.Journal
	log     *activity.Log
	logger  *logrus.Logger

	mu   sync.RWMutex
	cfg  config.BotConfig
	keys map[market.Venue]venueKey

	minConfidence float64
	tickInterval  time.Duration
	evalInterval  time.Duration

	cycleInFlight atomic.Bool

	eventsMu sync.RWMutex
	events   func(Event)

	now func() time.Time
}

type venueKey struct {
	key       string
	secret    string
	connected bool
}

func New(cfg *config.Config, deps Deps) (*Engine, error) {
	tick, err := cfg.Feed.TickDuration()
	if err != nil {
		return nil, fmt.Errorf("feed interval: %w", err)
	}
	eval, err := cfg.Bot.EvalDuration()
	if err != nil {
		return nil, fmt.Errorf("eval interval: %w", err)
	}

	e := &Engine{
		feed:          deps.Feed,
		ledger:        deps.Ledger,
		advisor:       deps.Advisor,
		journal:       deps.Journal,
		log:           deps.Log,
		logger:        deps.Logger,
		cfg:           cfg.Bot,
		keys:          make(map[market.Venue]venueKey),
		minConfidence: cfg.Advisor.MinConfidence,
		tickInterval:  tick,
		evalInterval:  eval,
		now:           time.Now,
	}
	if e.journal == nil {
		e.journal = journal.Nop{}
	}
	return e, nil
}

// SetEvents installs the operator event-stream hook.
func (e *Engine) SetEvents(fn func(Event)) {
	e.eventsMu.Lock()
	defer e.eventsMu.Unlock()
	e.events = fn
}

func (e *Engine) emit(typ string, payload interface{}) {
	e.eventsMu.RLock()
	fn := e.events
	e.eventsMu.RUnlock()
	if fn != nil {
		fn(Event{Type: typ, Payload: payload})
	}
}

// Config returns a copy of the current bot configuration.
func (e *Engine) Config() config.BotConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cfg := e.cfg
	cfg.Pairs = append([]string(nil), e.cfg.Pairs...)
	return cfg
}

// UpdateConfig replaces the bot configuration after validation. The change
// is visible to the next decision; already-open positions keep the exit
// levels and account they were opened with.
func (e *Engine) UpdateConfig(cfg config.BotConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
	e.logger.WithFields(logrus.Fields{
		"leverage": cfg.Leverage,
		"risk_pct": cfg.RiskPerTrade,
		"account":  cfg.Account,
	}).Info("Bot configuration updated")
	return nil
}

// SetActive toggles the bot. Deactivation halts new openings; open positions
// keep running to their exit levels.
func (e *Engine) SetActive(active bool) {
	e.mu.Lock()
	e.cfg.Active = active
	e.mu.Unlock()

	if active {
		e.log.Append(activity.Success, "Analysis engine started.", "")
	} else {
		e.log.Append(activity.Warning, "Strategy paused. Open positions will run to their exit levels.", "")
	}
	e.emit("bot_status", map[string]bool{"active": active})
}

// Active reports the current toggle state.
func (e *Engine) Active() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.Active
}

// ConnectVenue stores exchange credentials and flips the venue's connected
// flag when both fields look plausible. Credentials are an opaque boundary:
// nothing is validated against the exchange.
func (e *Engine) ConnectVenue(v market.Venue, key, secret string) bool {
	ok := len(key) > 5 && len(secret) > 5
	e.mu.Lock()
	e.keys[v] = venueKey{key: key, secret: secret, connected: ok}
	e.mu.Unlock()

	if ok {
		e.log.Append(activity.Success, fmt.Sprintf("%s API linked.", v), "")
	} else {
		e.log.Append(activity.Warning, fmt.Sprintf("%s API credentials rejected.", v), "")
	}
	return ok
}

// VenueStatus returns the connected flag per venue.
func (e *Engine) VenueStatus() map[market.Venue]bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := map[market.Venue]bool{market.Binance: false, market.Bybit: false, market.Mexc: false}
	for v, k := range e.keys {
		out[v] = k.connected
	}
	return out
}

// Run drives both cadences until the context is cancelled. The advisory
// cycle runs on its own goroutine so oracle latency never blocks price-tick
// processing; at most one cycle is in flight.
func (e *Engine) Run(ctx context.Context) error {
	tick := time.NewTicker(e.tickInterval)
	defer tick.Stop()
	eval := time.NewTicker(e.evalInterval)
	defer eval.Stop()

	e.logger.WithFields(logrus.Fields{
		"tick_interval": e.tickInterval,
		"eval_interval": e.evalInterval,
	}).Info("Engine running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			e.HandleTicks(e.feed.Step())
		case <-eval.C:
			go e.runCycleGuarded(ctx)
		}
	}
}

func (e *Engine) runCycleGuarded(ctx context.Context) {
	if !e.cycleInFlight.CompareAndSwap(false, true) {
		e.logger.Debug("Previous evaluation cycle still in flight, skipping")
		return
	}
	defer e.cycleInFlight.Store(false)
	e.RunCycle(ctx)
}

// HandleTicks processes a batch of fresh prices: exit-level detection for
// every open position, then an equity snapshot for the active account.
func (e *Engine) HandleTicks(ticks []market.Tick) {
	if len(ticks) == 0 {
		return
	}

	for _, p := range e.ledger.OpenPositions() {
		t, err := e.feed.Prices().Get(p.Instrument)
		if err != nil {
			// Transiently absent price; the position simply carries at entry.
			continue
		}
		price := p.Venue.Offset(t.Price)
		if reason, hit := p.CheckExit(price); hit {
			e.closePosition(p, price, reason, t.Time)
		}
	}

	e.recordEquity()
	e.emit("prices", e.feed.Prices().Map())
}

// closePosition settles one position. Settlement is idempotent at the
// ledger: a concurrent close of the same id turns into a no-op here.
func (e *Engine) closePosition(p ledger.Position, price float64, reason string, at time.Time) {
	ct, err := e.ledger.Settle(p.ID, price, FeeRate, reason, at)
	if err != nil {
		if errors.Is(err, ledger.ErrNotOpen) {
			return
		}
		e.logger.WithError(err).WithField("trade_id", p.ID).Error("Settlement failed")
		return
	}

	if err := e.journal.RecordTrade(journal.FromClosedTrade(ct)); err != nil {
		e.logger.WithError(err).Warn("Journal trade record failed")
	}

	sev := activity.Success
	if ct.PnL < 0 {
		sev = activity.Warning
	}
	e.log.Append(sev, fmt.Sprintf("%s %s closed (%s): %+.2f USDT (%+.2f%%)",
		ct.Instrument, ct.Side, reason, ct.PnL, ct.PnLPercent), ct.Instrument)

	e.logger.WithFields(logrus.Fields{
		"trade_id":   ct.ID,
		"instrument": ct.Instrument,
		"reason":     reason,
		"pnl":        ct.PnL,
		"account":    ct.Account,
	}).Info("Position closed")

	e.emit("position_closed", ct)
}

func (e *Engine) recordEquity() {
	cfg := e.Config()
	prices := e.feed.Prices().Map()
	balance := e.ledger.Balance(cfg.Account)
	unrealized := e.ledger.UnrealizedPnL(cfg.Account, prices)

	err := e.journal.RecordEquity(journal.EquitySnapshot{
		Time:       e.now(),
		Account:    string(cfg.Account),
		Balance:    balance,
		Unrealized: unrealized,
		Equity:     balance + unrealized,
		OpenCount:  e.ledger.OpenCount(cfg.Account),
	})
	if err != nil {
		e.logger.WithError(err).Warn("Journal equity record failed")
	}
}

// RunCycle runs one advisory evaluation pass over the configured pairs, in
// configured order. The cycle stops early once capacity is exhausted;
// remaining pairs wait for the next cycle. No single instrument's failure
// aborts the rest.
func (e *Engine) RunCycle(ctx context.Context) {
	cfg := e.Config()
	if !cfg.Active {
		return
	}

	for _, instrument := range cfg.Pairs {
		if ctx.Err() != nil {
			return
		}
		if e.ledger.OpenCount(cfg.Account) >= cfg.MaxOpenPositions {
			e.logger.WithField("account", cfg.Account).Debug("Capacity exhausted, deferring remaining instruments")
			return
		}
		e.evaluate(ctx, instrument, cfg)
	}
}

func (e *Engine) evaluate(ctx context.Context, instrument string, cfg config.BotConfig) {
	snap, ok := e.feed.Snapshot(instrument, cfg.Venue)
	if !ok {
		e.log.Append(activity.Warning, fmt.Sprintf("No market data for %s, skipping.", instrument), instrument)
		return
	}

	prices := e.feed.Prices().Map()
	view := risk.AccountView{
		Equity:        e.ledger.Equity(cfg.Account, prices),
		OpenCount:     e.ledger.OpenCount(cfg.Account),
		HasInstrument: e.ledger.HasOpen(instrument, cfg.Account),
	}

	d := risk.Evaluate(instrument, snap.Price, view, cfg)
	if !d.Allowed {
		e.logGateDenial(instrument, d)
		return
	}

	resp := e.advisor.Advise(ctx, advisor.Request{
		Instrument:    instrument,
		Market:        snap,
		Strategy:      cfg.Strategy,
		Timeframe:     cfg.Timeframe,
		Performance:   e.ledger.Stats(),
		RecentHistory: advisor.Summarize(e.ledger.RecentHistory(advisor.MaxHistory)),
		Learning:      cfg.Learning,
	})

	if resp.Signal == advisor.Hold || resp.Confidence < e.minConfidence {
		e.logger.WithFields(logrus.Fields{
			"instrument": instrument,
			"signal":     resp.Signal,
			"confidence": resp.Confidence,
		}).Debug("No actionable signal")
		if resp.Confidence == 0 && resp.Reasoning != "" {
			e.log.Append(activity.Error, resp.Reasoning, instrument)
		}
		return
	}

	e.open(instrument, resp, cfg)
}

func (e *Engine) logGateDenial(instrument string, d risk.Decision) {
	switch d.Violation.Code {
	case "INSUFFICIENT_BALANCE":
		e.log.Append(activity.Error, d.Violation.Msg, instrument)
	case "BAD_PRICE":
		e.log.Append(activity.Warning, d.Violation.Msg, instrument)
	default:
		// Capacity and duplicate rejections are routine.
		e.logger.WithFields(logrus.Fields{
			"instrument": instrument,
			"code":       d.Violation.Code,
		}).Debug("Gate denied")
	}
}

// open re-validates the gate against current state (balance and open count
// may have moved while the advisory call was in flight) and admits the
// position through the ledger's own structural check.
func (e *Engine) open(instrument string, resp advisor.Response, cfg config.BotConfig) {
	snap, ok := e.feed.Snapshot(instrument, cfg.Venue)
	if !ok || snap.Price <= 0 {
		e.log.Append(activity.Warning, fmt.Sprintf("Price unavailable for %s at open, skipping.", instrument), instrument)
		return
	}
	price := snap.Price

	prices := e.feed.Prices().Map()
	view := risk.AccountView{
		Equity:        e.ledger.Equity(cfg.Account, prices),
		OpenCount:     e.ledger.OpenCount(cfg.Account),
		HasInstrument: e.ledger.HasOpen(instrument, cfg.Account),
	}
	d := risk.Evaluate(instrument, price, view, cfg)
	if !d.Allowed {
		e.logGateDenial(instrument, d)
		return
	}

	side := ledger.Long
	if resp.Signal == advisor.Sell {
		side = ledger.Short
	}

	pos := ledger.Position{
		ID:         id.New(),
		Instrument: instrument,
		Side:       side,
		EntryPrice: price,
		Quantity:   d.Quantity,
		Leverage:   cfg.Leverage,
		Strategy:   cfg.Strategy,
		Timeframe:  cfg.Timeframe,
		Venue:      cfg.Venue,
		Account:    cfg.Account,
		OpenedAt:   e.now(),
	}
	pos.TakeProfit, pos.StopLoss = exitLevels(side, price, cfg.TakeProfitPct, cfg.StopLossPct)

	if err := e.ledger.TryOpen(pos, cfg.MaxOpenPositions); err != nil {
		// Lost the race between gate check and admission; routine.
		e.logger.WithError(err).WithField("instrument", instrument).Debug("Open rejected at admission")
		return
	}

	e.log.Append(activity.Success, fmt.Sprintf("%s %s opened @ %.4f (conf %.0f%%): %s",
		instrument, side, price, resp.Confidence, resp.Reasoning), instrument)

	e.logger.WithFields(logrus.Fields{
		"trade_id":   pos.ID,
		"instrument": instrument,
		"side":       side,
		"entry":      price,
		"quantity":   d.Quantity,
		"margin":     d.Margin,
		"account":    cfg.Account,
	}).Info("Position opened")

	e.emit("position_opened", pos)
}

// exitLevels converts the configured take-profit and stop-loss price-move
// percentages into absolute, direction-aware levels from entry.
func exitLevels(side ledger.Side, entry, tpPct, slPct float64) (tp, sl float64) {
	if side == ledger.Long {
		return entry * (1 + tpPct/100), entry * (1 - slPct/100)
	}
	return entry * (1 - tpPct/100), entry * (1 + slPct/100)
}
