package strategy

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/noddlecat/noddletrader/Internal/broker"
	"github.com/noddlecat/noddletrader/Internal/risk"
	"github.com/noddlecat/noddletrader/Internal/types"
	"github.com/noddlecat/noddletrader/Internal/utils/config"
	"github.com/noddlecat/noddletrader/Internal/utils/sessions"
)

// CycleState tracks where a cycle is in its linear progression.
type CycleState string

const (
	StateIdle          CycleState = "IDLE"
	StateAwaitingBias  CycleState = "AWAITING_BIAS"
	StateAwaitingGaps  CycleState = "AWAITING_GAPS"
	StateEvaluating    CycleState = "EVALUATING"
	StatePlanReady     CycleState = "PLAN_READY"
	StateCycleComplete CycleState = "CYCLE_COMPLETE"
)

// Coordinator orchestrates one analysis cycle: refresh bias, refresh
// gaps, evaluate the signal, size the trade, hand the plan off. At most
// one trade instruction per cycle and one open position at a time.
type Coordinator struct {
	symbol         string
	biasTimeframe  string
	biasWindow     int
	gapTimeframe   string
	gapWindow      int
	sessionEnabled bool
	sessionName    string

	bias     *BiasAnalyzer
	gaps     *GapTracker
	engine   *SignalEngine
	sizer    *risk.Sizer
	feed     broker.MarketData
	account  broker.AccountState
	executor broker.Executor

	mu sync.Mutex // held for the duration of a cycle; overlapping cycles are skipped

	stateMu      sync.RWMutex
	state        CycleState
	lastBias     types.Bias
	positionOpen bool
	// set once the broker has reported the handed-off position as
	// open; the open flag only clears after that confirmation, so a
	// not-yet-filled order can't re-arm the engine
	brokerConfirmed bool
}

func NewCoordinator(cfg *config.Config, sizer *risk.Sizer, feed broker.MarketData, account broker.AccountState, executor broker.Executor) *Coordinator {
	return &Coordinator{
		symbol:         cfg.Symbol,
		biasTimeframe:  cfg.Bias.Timeframe,
		biasWindow:     cfg.Bias.WindowSize,
		gapTimeframe:   cfg.Gaps.Timeframe,
		gapWindow:      cfg.Gaps.WindowSize,
		sessionEnabled: cfg.Session.Enabled,
		sessionName:    cfg.Session.Name,
		bias:           NewBiasAnalyzer(cfg.Bias.WindowSize, cfg.Bias.MinCandleRange),
		gaps:           NewGapTracker(cfg.Gaps.WindowSize, cfg.Gaps.MinGapSize, cfg.Gaps.MitigationTolerance),
		engine:         NewSignalEngine(),
		sizer:          sizer,
		feed:           feed,
		account:        account,
		executor:       executor,
		state:          StateIdle,
		lastBias:       types.BiasNeutral,
	}
}

// RunCycle executes one full analysis cycle and returns the emitted
// plan, if any. Errors abort the cycle without a trade; they are
// logged here and reported to the caller, never fatal. If a prior
// cycle is still running the new one is skipped, not queued.
func (c *Coordinator) RunCycle(ctx context.Context) (*types.TradePlan, error) {
	if !c.mu.TryLock() {
		log.Printf("⏭️  Cycle already in progress for %s, skipping\n", c.symbol)
		return nil, nil
	}
	defer c.mu.Unlock()
	defer c.setState(StateIdle)

	plan, err := c.runLocked(ctx)
	if err != nil {
		log.Printf("⚠️  Cycle aborted for %s: %v\n", c.symbol, err)
		return nil, err
	}
	return plan, nil
}

func (c *Coordinator) runLocked(ctx context.Context) (*types.TradePlan, error) {
	if err := c.refreshPositionState(); err != nil {
		return nil, err
	}

	// Bias on the higher timeframe.
	c.setState(StateAwaitingBias)
	htCandles, err := c.fetchWindow(ctx, c.biasTimeframe, c.biasWindow)
	if err != nil {
		return nil, err
	}
	bias, err := c.bias.Analyze(htCandles)
	if err != nil {
		return nil, fmt.Errorf("bias analysis: %w", err)
	}
	c.setBias(bias)

	// Gap detection and mitigation on the lower timeframe.
	c.setState(StateAwaitingGaps)
	ltCandles, err := c.fetchWindow(ctx, c.gapTimeframe, c.gapWindow)
	if err != nil {
		return nil, err
	}
	newlyMitigated, err := c.gaps.Update(ltCandles)
	if err != nil {
		return nil, fmt.Errorf("gap tracking: %w", err)
	}

	// Entry decision.
	c.setState(StateEvaluating)
	if len(newlyMitigated) == 0 {
		c.setState(StateCycleComplete)
		return nil, nil
	}
	price, err := c.feed.GetLastPrice(c.symbol)
	if err != nil {
		return nil, fmt.Errorf("last price: %w", err)
	}
	signal := c.engine.Evaluate(bias, newlyMitigated, c.PositionOpen(), price)
	if signal == nil {
		c.setState(StateCycleComplete)
		return nil, nil
	}
	log.Printf("🚨 Signal: %s %s entry %.5f stop %.5f\n",
		c.symbol, signal.Direction, signal.EntryPrice, signal.StopPrice)

	// Sizing.
	equity, err := c.account.GetEquity()
	if err != nil {
		return nil, fmt.Errorf("account equity: %w", err)
	}
	c.setState(StatePlanReady)
	plan, err := c.sizer.Size(signal, equity)
	if err != nil {
		return nil, fmt.Errorf("risk sizing: %w", err)
	}
	plan.Symbol = c.symbol

	// Hand-off. From here the cycle is committed: the executor owns
	// retry and cancel semantics.
	if err := c.executor.Execute(plan); err != nil {
		return nil, fmt.Errorf("plan hand-off: %w", err)
	}
	c.setPositionOpen(true)
	c.setState(StateCycleComplete)
	return plan, nil
}

func (c *Coordinator) fetchWindow(ctx context.Context, timeframe string, count int) ([]types.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	candles, err := c.feed.GetCandles(c.symbol, timeframe, count)
	if err != nil {
		return nil, fmt.Errorf("fetch %s candles: %w", timeframe, err)
	}
	if err := broker.ValidateCandles(candles); err != nil {
		return nil, fmt.Errorf("invalid %s feed: %w", timeframe, err)
	}
	if c.sessionEnabled {
		candles, err = sessions.Filter(candles, c.sessionName)
		if err != nil {
			return nil, err
		}
	}
	return candles, nil
}

// refreshPositionState clears the open flag once the broker reports
// the position closed. The clear waits for the broker to have seen the
// position open at least once, so the window between order submission
// and fill doesn't look like a closure.
func (c *Coordinator) refreshPositionState() error {
	if !c.PositionOpen() {
		return nil
	}
	open, err := c.account.HasOpenPosition(c.symbol)
	if err != nil {
		return fmt.Errorf("position state: %w", err)
	}

	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if open {
		c.brokerConfirmed = true
		return nil
	}
	if c.brokerConfirmed {
		c.positionOpen = false
		c.brokerConfirmed = false
		log.Printf("📉 Position on %s reported closed, re-arming\n", c.symbol)
	}
	return nil
}

func (c *Coordinator) setState(s CycleState) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

func (c *Coordinator) setBias(b types.Bias) {
	c.stateMu.Lock()
	c.lastBias = b
	c.stateMu.Unlock()
}

func (c *Coordinator) setPositionOpen(open bool) {
	c.stateMu.Lock()
	c.positionOpen = open
	if open {
		c.brokerConfirmed = false
	}
	c.stateMu.Unlock()
}

// State returns the current cycle state.
func (c *Coordinator) State() CycleState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// LastBias returns the bias from the most recent completed analysis.
func (c *Coordinator) LastBias() types.Bias {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.lastBias
}

// PositionOpen reports the single-open-position flag.
func (c *Coordinator) PositionOpen() bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.positionOpen
}

// TrackedGaps exposes the gap set for monitoring.
func (c *Coordinator) TrackedGaps() []types.FairValueGap {
	return c.gaps.ActiveGaps()
}

// Symbol returns the instrument this coordinator analyzes.
func (c *Coordinator) Symbol() string { return c.symbol }
