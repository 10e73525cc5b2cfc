package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/noddlecat/noddletrader/Internal/broker"
	journal "github.com/noddlecat/noddletrader/Internal/database"
	"github.com/noddlecat/noddletrader/Internal/risk"
	"github.com/noddlecat/noddletrader/Internal/strategy"
	"github.com/noddlecat/noddletrader/Internal/types"
	"github.com/noddlecat/noddletrader/Internal/utils/config"
	"github.com/noddlecat/noddletrader/Internal/utils/formatting"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	journalEnabled := true
	if err := journal.InitDatabase(); err != nil {
		log.Printf("Warning: journal disabled, database unavailable: %v\n", err)
		journalEnabled = false
	} else {
		defer journal.CloseDatabase()
	}

	apiKey := os.Getenv("ALPACA_API_KEY")
	secretKey := os.Getenv("ALPACA_API_SECRET")
	if apiKey == "" || secretKey == "" {
		log.Fatal("ALPACA_API_KEY and ALPACA_API_SECRET must be set")
	}

	alpclient := broker.NewAlpacaClient()
	feed := broker.NewAlpacaFeed()
	account := broker.NewAlpacaAccount(alpclient)

	var executor broker.Executor
	if os.Getenv("LIVE_TRADING") == "true" {
		executor = broker.NewAlpacaExecutor(alpclient)
		log.Println("Live execution enabled")
	} else {
		executor = broker.NewPaperExecutor()
		log.Println("Paper execution mode (set LIVE_TRADING=true for live orders)")
	}

	sizer := risk.NewSizer(cfg.Risk.Fraction, cfg.Risk.RewardRatio, cfg.Risk.PipSize, cfg.Risk.PipValue)
	sizer.LotStep = cfg.Risk.LotStep
	sizer.MinLot = cfg.Risk.MinLot
	sizer.MinStopPips = cfg.Risk.MinStopPips

	coordinator := strategy.NewCoordinator(cfg, sizer, feed, account, executor)

	log.Printf("🤖 Noddle Trader started | symbol=%s bias=%s/%d gaps=%s/%d interval=%ds\n",
		cfg.Symbol, cfg.Bias.Timeframe, cfg.Bias.WindowSize,
		cfg.Gaps.Timeframe, cfg.Gaps.WindowSize, cfg.AnalysisIntervalSeconds)
	if cfg.Session.Enabled {
		log.Printf("Session filter active: %s\n", cfg.Session.Name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(cfg.AnalysisIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			log.Println("🛑 Shutting down...")
			cancel()
			printSessionStats(cfg.Symbol, journalEnabled)
			return
		case <-ticker.C:
			plan, err := coordinator.RunCycle(ctx)
			if err != nil {
				// per-cycle errors are recoverable; next tick retries
				if errors.Is(err, strategy.ErrInsufficientData) {
					log.Printf("Waiting for more candle data on %s\n", cfg.Symbol)
				}
				continue
			}
			if plan == nil {
				continue
			}
			displayPlan(plan)
			if journalEnabled {
				if err := journal.LogPlan(ctx, plan); err != nil {
					log.Printf("⚠️  Failed to journal plan: %v\n", err)
				}
			}
		}
	}
}

func displayPlan(plan *types.TradePlan) {
	width := 50
	fmt.Println("\n" + formatting.Separator(width))
	fmt.Println("🚨 TRADE PLAN EMITTED")
	fmt.Println(formatting.Separator(width))
	fmt.Printf("📊 Direction:    %s\n", plan.Direction)
	fmt.Printf("💰 Entry:        %.5f\n", plan.EntryPrice)
	fmt.Printf("🛑 Stop Loss:    %.5f\n", plan.StopPrice)
	fmt.Printf("🎯 Take Profit:  %.5f\n", plan.TakeProfitPrice)
	fmt.Printf("📏 Stop (pips):  %.1f\n", plan.StopDistancePips)
	fmt.Printf("💼 Lot Size:     %.2f\n", plan.LotSize)
	fmt.Printf("⚖️  Risk Amount:  %.2f\n", plan.RiskAmount)
	fmt.Printf("⏰ Created:      %s\n", plan.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Println(formatting.Separator(width))
}

func printSessionStats(symbol string, journalEnabled bool) {
	if !journalEnabled {
		return
	}
	stats, err := journal.GetStats(context.Background(), symbol, 30)
	if err != nil {
		log.Printf("Could not load session stats: %v\n", err)
		return
	}

	width := 40
	fmt.Println("\n" + formatting.Separator(width))
	fmt.Println("📈 PERFORMANCE (last 30 days)")
	fmt.Println(formatting.Separator(width))
	fmt.Printf("Total plans:   %d\n", stats.TotalPlans)
	fmt.Printf("Wins:          %d\n", stats.Wins)
	fmt.Printf("Losses:        %d\n", stats.Losses)
	fmt.Printf("Pending:       %d\n", stats.Pending)
	fmt.Printf("Win Rate:      %.1f%%\n", stats.WinRate)
	fmt.Printf("Profit Factor: %.2f\n", stats.ProfitFactor)
	fmt.Println(formatting.Separator(width))
}
