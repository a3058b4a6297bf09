package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cryptobot/activity"
	"cryptobot/advisor"
	"cryptobot/api"
	"cryptobot/bot"
	"cryptobot/config"
	"cryptobot/journal"
	"cryptobot/ledger"
	"cryptobot/market"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "cryptobot",
		Short:         "Simulated leveraged crypto trading bot",
		Long:          `A simulated leveraged-trading engine: advisory-driven position opening, deterministic TP/SL exits, and an auditable trade journal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON, optional)")

	rootCmd.AddCommand(newRunCmd(), newJournalCmd(), &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("cryptobot (dev)")
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var active bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the trading engine and operator API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(active)
		},
	}
	cmd.Flags().BoolVar(&active, "active", false, "start with the bot active")
	return cmd
}

func run(active bool) error {
	// .env carries the oracle API key; absence is fine.
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Bot.Active = cfg.Bot.Active || active

	logger := newLogger(cfg.Logging)

	led := ledger.New(cfg.Account.DemoBalance, cfg.Account.RealBalance)
	feed := market.NewFeed(nil, cfg.Feed.Seed)
	alog := activity.NewLog()

	jrnl, err := newJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer jrnl.Close()

	adv, err := newAdvisor(cfg.Advisor, logger)
	if err != nil {
		return err
	}

	engine, err := bot.New(cfg, bot.Deps{
		Feed:    feed,
		Ledger:  led,
		Advisor: adv,
		Journal: jrnl,
		Log:     alog,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	server := api.NewServer(engine, led, feed, alog, logger, cfg.Server.Port)
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("API server failed")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("Shutting down")
		cancel()
	}()

	if err := engine.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func newJournalCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List trades recorded in the SQLite journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journal.NewSQLite(dbPath)
			if err != nil {
				return err
			}
			defer j.Close()

			trades, err := j.ListTrades()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CLOSED\tINSTRUMENT\tSIDE\tACCT\tENTRY\tEXIT\tPNL\tROI%\tREASON")
			for _, t := range trades {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.4f\t%.4f\t%+.2f\t%+.2f\t%s\n",
					t.CloseTime.Format("2006-01-02 15:04:05"),
					t.Instrument, t.Side, t.Account,
					t.EntryPrice, t.ExitPrice, t.PnL, t.PnLPercent, t.Reason)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "./cryptobot.sqlite", "SQLite journal database")
	return cmd
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(cfgFile)
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func newJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "csv":
		return journal.NewCSV(cfg.TradesFile, cfg.EquityFile)
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	default:
		return journal.Nop{}, nil
	}
}

func newAdvisor(cfg config.AdvisorConfig, logger *logrus.Logger) (advisor.Advisor, error) {
	if cfg.URL == "" {
		logger.Info("No oracle URL configured, using built-in heuristic advisor")
		return advisor.NewHeuristic(), nil
	}
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		logger.Warnf("Environment variable %s is empty; oracle requests go out unauthenticated", cfg.APIKeyEnv)
	}
	return advisor.NewClient(cfg.URL, apiKey, timeout, logger), nil
}
