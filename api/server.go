// Package api is the operator surface: a JSON HTTP API over the running
// engine plus a websocket event stream. It mutates nothing but the bot
// configuration and the venue credential flags.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"cryptobot/activity"
	"cryptobot/bot"
	"cryptobot/config"
	"cryptobot/journal"
	"cryptobot/ledger"
	"cryptobot/market"
)

type Server struct {
	engine *bot.Engine
	ledger *ledger.Ledger
	feed   *market.Feed
	log    *activity.Log
	hub    *Hub
	logger *logrus.Logger
	port   int
}

func NewServer(engine *bot.Engine, led *ledger.Ledger, feed *market.Feed, alog *activity.Log, logger *logrus.Logger, port int) *Server {
	s := &Server{
		engine: engine,
		ledger: led,
		feed:   feed,
		log:    alog,
		hub:    NewHub(logger),
		logger: logger,
		port:   port,
	}

	// Everything the engine and the activity log emit is fanned out to
	// connected operator clients.
	engine.SetEvents(func(ev bot.Event) { s.hub.Broadcast(ev) })
	alog.SetNotify(func(e activity.Entry) {
		s.hub.Broadcast(bot.Event{Type: "log", Payload: e})
	})

	return s
}

func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/positions", s.handlePositions)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/prices", s.handlePrices)
	mux.HandleFunc("/api/logs", s.handleLogs)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/bot/start", s.handleStart)
	mux.HandleFunc("/api/bot/stop", s.handleStop)
	mux.HandleFunc("/api/venues/connect", s.handleConnectVenue)
	mux.HandleFunc("/api/export", s.handleExport)
	mux.HandleFunc("/ws", s.hub.ServeWS)

	handler := corsMiddleware(mux)

	s.logger.Infof("Starting API server on port %d", s.port)
	return http.ListenAndServe(fmt.Sprintf(":%d", s.port), handler)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := s.engine.Config()
	prices := s.feed.Prices().Map()
	balance := s.ledger.Balance(cfg.Account)
	unrealized := s.ledger.UnrealizedPnL(cfg.Account, prices)
	stats := s.ledger.Stats()

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"active":       s.engine.Active(),
		"account":      cfg.Account,
		"venue":        cfg.Venue,
		"demo_balance": s.ledger.Balance(ledger.Demo),
		"real_balance": s.ledger.Balance(ledger.Real),
		"balance":      balance,
		"unrealized":   unrealized,
		"equity":       balance + unrealized,
		"win_rate":     stats.WinRate,
		"total_pnl":    stats.TotalPnL,
		"total_trades": stats.TotalTrades,
		"open_count":   s.ledger.OpenCount(cfg.Account),
		"venues":       s.engine.VenueStatus(),
	})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	prices := s.feed.Prices().Map()
	type openView struct {
		ledger.Position
		CurrentPrice float64 `json:"current_price"`
		Unrealized   float64 `json:"unrealized"`
		PnLPercent   float64 `json:"pnl_percent"`
	}

	positions := s.ledger.OpenPositions()
	out := make([]openView, len(positions))
	for i, p := range positions {
		price, ok := prices[p.Instrument]
		if !ok {
			price = p.EntryPrice
		}
		price = p.Venue.Offset(price)
		out[i] = openView{
			Position:     p,
			CurrentPrice: price,
			Unrealized:   p.UnrealizedPnL(price),
			PnLPercent:   p.PnLPercent(price),
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// Newest first for display; the ledger store stays insertion-ordered.
	history := s.ledger.History()
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	s.writeJSON(w, http.StatusOK, history)
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.feed.Prices().Map())
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.log.Entries())
	case http.MethodDelete:
		s.log.Clear()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.engine.Config())
	case http.MethodPut:
		var cfg config.BotConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, "invalid settings payload: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.engine.UpdateConfig(cfg); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.writeJSON(w, http.StatusOK, s.engine.Config())
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.engine.SetActive(true)
	s.writeJSON(w, http.StatusOK, map[string]bool{"active": true})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.engine.SetActive(false)
	s.writeJSON(w, http.StatusOK, map[string]bool{"active": false})
}

func (s *Server) handleConnectVenue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Venue  market.Venue `json:"venue"`
		Key    string       `json:"key"`
		Secret string       `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	switch req.Venue {
	case market.Binance, market.Bybit, market.Mexc:
	default:
		http.Error(w, "unknown venue", http.StatusBadRequest)
		return
	}

	connected := s.engine.ConnectVenue(req.Venue, req.Key, req.Secret)
	s.writeJSON(w, http.StatusOK, map[string]bool{"connected": connected})
}

// handleExport serializes the full trade history as CSV. Read-only: no core
// state is touched.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	history := s.ledger.History()
	records := make([]journal.TradeRecord, len(history))
	for i, t := range history {
		records[i] = journal.FromClosedTrade(t)
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="trades_%d.csv"`, time.Now().Unix()))
	if err := journal.WriteTradesCSV(w, records); err != nil {
		s.logger.WithError(err).Error("History export failed")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}
