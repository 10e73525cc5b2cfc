package risk

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noddlecat/noddletrader/Internal/types"
)

var (
	// ErrInvalidStopDistance means the stop sits on (or too close to)
	// the entry, so the trade degenerates and sizing cannot proceed.
	ErrInvalidStopDistance = errors.New("invalid stop distance")
	// ErrInvalidRiskParameters means equity or the risk fraction is
	// outside its valid range.
	ErrInvalidRiskParameters = errors.New("invalid risk parameters")
)

// Sizer converts a trade signal plus account equity into a sized
// TradePlan. Pure computation, no side effects; decimal arithmetic
// keeps pip and lot math exact.
type Sizer struct {
	RiskFraction float64 // fraction of equity risked per trade, (0, 1]
	RewardRatio  float64 // take-profit distance as a multiple of the stop distance
	PipSize      float64 // price units per pip (0.0001 for most FX pairs)
	PipValue     float64 // account-currency value of one pip per standard lot
	LotStep      float64 // broker lot increment, lots round down to it
	MinLot       float64 // broker minimum order size
	MinStopPips  float64 // stops tighter than this are rejected
}

func NewSizer(riskFraction, rewardRatio, pipSize, pipValue float64) *Sizer {
	return &Sizer{
		RiskFraction: riskFraction,
		RewardRatio:  rewardRatio,
		PipSize:      pipSize,
		PipValue:     pipValue,
		LotStep:      0.01,
		MinLot:       0.01,
		MinStopPips:  1,
	}
}

// Size computes risk amount, stop distance in pips, lot size and the
// take-profit level for the given signal and equity snapshot.
func (s *Sizer) Size(signal *types.TradeSignal, equity float64) (*types.TradePlan, error) {
	if signal == nil {
		return nil, fmt.Errorf("nil signal: %w", ErrInvalidRiskParameters)
	}
	if equity <= 0 {
		return nil, fmt.Errorf("equity %.2f must be positive: %w", equity, ErrInvalidRiskParameters)
	}
	if s.RiskFraction <= 0 || s.RiskFraction > 1 {
		return nil, fmt.Errorf("risk fraction %.4f outside (0,1]: %w", s.RiskFraction, ErrInvalidRiskParameters)
	}
	if s.RewardRatio <= 0 {
		return nil, fmt.Errorf("reward ratio %.2f must be positive: %w", s.RewardRatio, ErrInvalidRiskParameters)
	}
	if s.PipSize <= 0 || s.PipValue <= 0 {
		return nil, fmt.Errorf("pip size/value must be positive: %w", ErrInvalidRiskParameters)
	}

	entry := decimal.NewFromFloat(signal.EntryPrice)
	stop := decimal.NewFromFloat(signal.StopPrice)
	stopDistance := entry.Sub(stop).Abs()
	stopPips := stopDistance.Div(decimal.NewFromFloat(s.PipSize))

	if stopPips.IsZero() || stopPips.LessThan(decimal.NewFromFloat(s.MinStopPips)) {
		return nil, fmt.Errorf("stop distance %s pips below minimum %.1f: %w",
			stopPips.StringFixed(2), s.MinStopPips, ErrInvalidStopDistance)
	}

	riskAmount := decimal.NewFromFloat(equity).Mul(decimal.NewFromFloat(s.RiskFraction))
	rawLot := riskAmount.Div(stopPips.Mul(decimal.NewFromFloat(s.PipValue)))

	// Round down to the broker lot step, then floor at the minimum lot.
	step := decimal.NewFromFloat(s.LotStep)
	lot := rawLot.Div(step).Floor().Mul(step)
	minLot := decimal.NewFromFloat(s.MinLot)
	if lot.LessThan(minLot) {
		lot = minLot
	}

	target := stopDistance.Mul(decimal.NewFromFloat(s.RewardRatio))
	var takeProfit decimal.Decimal
	if signal.Direction == types.DirectionBullish {
		takeProfit = entry.Add(target)
	} else {
		takeProfit = entry.Sub(target)
	}

	return &types.TradePlan{
		Direction:        signal.Direction,
		EntryPrice:       signal.EntryPrice,
		StopPrice:        signal.StopPrice,
		TakeProfitPrice:  takeProfit.InexactFloat64(),
		LotSize:          lot.InexactFloat64(),
		RiskAmount:       riskAmount.InexactFloat64(),
		StopDistancePips: stopPips.InexactFloat64(),
		CreatedAt:        time.Now().UTC(),
	}, nil
}
