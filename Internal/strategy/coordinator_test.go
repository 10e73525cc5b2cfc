package strategy

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/noddlecat/noddletrader/Internal/broker"
	"github.com/noddlecat/noddletrader/Internal/risk"
	"github.com/noddlecat/noddletrader/Internal/types"
	"github.com/noddlecat/noddletrader/Internal/utils/config"
)

type stubFeed struct {
	htCandles []types.Candle
	ltCandles []types.Candle
	price     float64
	err       error
}

func (s *stubFeed) GetCandles(symbol, timeframe string, count int) ([]types.Candle, error) {
	if s.err != nil {
		return nil, s.err
	}
	if timeframe == "15Min" {
		return s.htCandles, nil
	}
	return s.ltCandles, nil
}

func (s *stubFeed) GetLastPrice(symbol string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.price, nil
}

type stubAccount struct {
	equity float64
	open   bool
}

func (s *stubAccount) GetEquity() (float64, error) { return s.equity, nil }

func (s *stubAccount) HasOpenPosition(symbol string) (bool, error) { return s.open, nil }

type stubExecutor struct {
	plans []*types.TradePlan
}

func (s *stubExecutor) Execute(plan *types.TradePlan) error {
	s.plans = append(s.plans, plan)
	return nil
}

func htCandle(i int, o, h, l, c float64) types.Candle {
	return types.Candle{
		OpenTime: testBase.Add(time.Duration(i) * 15 * time.Minute),
		Open:     o,
		High:     h,
		Low:      l,
		Close:    c,
	}
}

// Higher-timeframe window that resolves to a bullish bias.
func bullishBiasWindow() []types.Candle {
	return []types.Candle{
		htCandle(0, 1.1000, 1.1005, 1.0995, 1.1002),
		htCandle(1, 1.1002, 1.1004, 1.0998, 1.1000),
		htCandle(2, 1.1000, 1.1012, 1.0999, 1.1010),
	}
}

// Lower-timeframe window forming one bullish gap that the final candle
// mitigates.
func mitigatedGapWindow() []types.Candle {
	return append(bullishGapWindow(), candleAt(3, 1.1012, 1.1014, 1.1008, 1.1009))
}

func newTestCoordinator(feed *stubFeed, account *stubAccount, executor *stubExecutor) *Coordinator {
	cfg := config.Default()
	sizer := risk.NewSizer(cfg.Risk.Fraction, cfg.Risk.RewardRatio, cfg.Risk.PipSize, cfg.Risk.PipValue)
	return NewCoordinator(cfg, sizer, feed, account, executor)
}

func TestCoordinator_EmitsOnePlanThenBlocks(t *testing.T) {
	feed := &stubFeed{
		htCandles: bullishBiasWindow(),
		ltCandles: mitigatedGapWindow(),
		price:     1.1009,
	}
	account := &stubAccount{equity: 10000}
	executor := &stubExecutor{}
	coord := newTestCoordinator(feed, account, executor)

	plan, err := coord.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() unexpected error: %v", err)
	}
	if plan == nil {
		t.Fatal("RunCycle() = nil plan, want one")
	}
	if plan.Symbol != "EURUSD" {
		t.Errorf("Symbol = %q, want EURUSD", plan.Symbol)
	}
	if plan.Direction != types.DirectionBullish {
		t.Errorf("Direction = %v, want %v", plan.Direction, types.DirectionBullish)
	}
	if plan.EntryPrice != 1.1009 || plan.StopPrice != 1.0995 {
		t.Errorf("entry/stop = %.5f/%.5f, want 1.10090/1.09950", plan.EntryPrice, plan.StopPrice)
	}
	if math.Abs(plan.StopDistancePips-14) > 1e-9 {
		t.Errorf("StopDistancePips = %.4f, want 14", plan.StopDistancePips)
	}
	if math.Abs(plan.RiskAmount-100) > 1e-9 {
		t.Errorf("RiskAmount = %.2f, want 100", plan.RiskAmount)
	}
	if math.Abs(plan.LotSize-0.71) > 1e-9 {
		t.Errorf("LotSize = %.2f, want 0.71", plan.LotSize)
	}
	if math.Abs(plan.TakeProfitPrice-1.1030) > 1e-9 {
		t.Errorf("TakeProfitPrice = %.5f, want 1.10300", plan.TakeProfitPrice)
	}
	if len(executor.plans) != 1 {
		t.Fatalf("executor received %d plans, want 1", len(executor.plans))
	}
	if coord.LastBias() != types.BiasBullish {
		t.Errorf("LastBias() = %v, want %v", coord.LastBias(), types.BiasBullish)
	}
	if !coord.PositionOpen() {
		t.Error("PositionOpen() = false after hand-off, want true")
	}
	if coord.State() != StateIdle {
		t.Errorf("State() = %v after cycle, want %v", coord.State(), StateIdle)
	}

	// The identical cycle with the position flag set emits nothing.
	plan, err = coord.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("second RunCycle() unexpected error: %v", err)
	}
	if plan != nil {
		t.Errorf("second RunCycle() = %+v, want no plan", plan)
	}
	if len(executor.plans) != 1 {
		t.Errorf("executor received %d plans after second cycle, want 1", len(executor.plans))
	}
}

func TestCoordinator_RearmsAfterConfirmedClose(t *testing.T) {
	feed := &stubFeed{
		htCandles: bullishBiasWindow(),
		ltCandles: mitigatedGapWindow(),
		price:     1.1009,
	}
	account := &stubAccount{equity: 10000}
	executor := &stubExecutor{}
	coord := newTestCoordinator(feed, account, executor)

	if _, err := coord.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() unexpected error: %v", err)
	}
	if !coord.PositionOpen() {
		t.Fatal("PositionOpen() = false after hand-off, want true")
	}

	// Broker hasn't seen the position yet: the flag must hold.
	if _, err := coord.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() unexpected error: %v", err)
	}
	if !coord.PositionOpen() {
		t.Error("flag cleared before the broker ever reported the position open")
	}

	// Broker reports it open, then closed: only then does the flag clear.
	account.open = true
	if _, err := coord.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() unexpected error: %v", err)
	}
	if !coord.PositionOpen() {
		t.Error("flag cleared while the broker still reports the position open")
	}

	account.open = false
	if _, err := coord.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() unexpected error: %v", err)
	}
	if coord.PositionOpen() {
		t.Error("flag still set after the broker confirmed the close")
	}
}

func TestCoordinator_InsufficientBiasData(t *testing.T) {
	feed := &stubFeed{
		htCandles: bullishBiasWindow()[:2],
		ltCandles: mitigatedGapWindow(),
		price:     1.1009,
	}
	coord := newTestCoordinator(feed, &stubAccount{equity: 10000}, &stubExecutor{})

	_, err := coord.RunCycle(context.Background())
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("RunCycle() error = %v, want ErrInsufficientData", err)
	}
}

func TestCoordinator_FeedErrorAbortsCycle(t *testing.T) {
	feed := &stubFeed{err: broker.ErrConnection}
	executor := &stubExecutor{}
	coord := newTestCoordinator(feed, &stubAccount{equity: 10000}, executor)

	_, err := coord.RunCycle(context.Background())
	if !errors.Is(err, broker.ErrConnection) {
		t.Errorf("RunCycle() error = %v, want ErrConnection", err)
	}
	if len(executor.plans) != 0 {
		t.Errorf("executor received %d plans on a failed cycle, want 0", len(executor.plans))
	}
	if coord.State() != StateIdle {
		t.Errorf("State() = %v after aborted cycle, want %v", coord.State(), StateIdle)
	}
}

func TestCoordinator_CancelledContext(t *testing.T) {
	feed := &stubFeed{
		htCandles: bullishBiasWindow(),
		ltCandles: mitigatedGapWindow(),
		price:     1.1009,
	}
	coord := newTestCoordinator(feed, &stubAccount{equity: 10000}, &stubExecutor{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := coord.RunCycle(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("RunCycle() error = %v, want context.Canceled", err)
	}
}
