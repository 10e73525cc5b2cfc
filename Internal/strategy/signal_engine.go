package strategy

import (
	"github.com/noddlecat/noddletrader/Internal/types"
)

// SignalEngine combines the current bias with the gaps freshly
// mitigated this cycle and decides whether there is an entry.
type SignalEngine struct{}

func NewSignalEngine() *SignalEngine {
	return &SignalEngine{}
}

// Evaluate returns zero or one TradeSignal. An entry requires no open
// position, a non-neutral bias, and a newly mitigated gap matching the
// bias. With several qualifying gaps the most recently formed wins.
// The stop sits at the middle candle's low (bullish) or high (bearish).
// Gap state is never mutated here.
func (se *SignalEngine) Evaluate(bias types.Bias, newlyMitigated []*types.FairValueGap, positionOpen bool, marketPrice float64) *types.TradeSignal {
	if positionOpen || bias == types.BiasNeutral {
		return nil
	}

	var best *types.FairValueGap
	for _, g := range newlyMitigated {
		if !bias.Matches(g.Direction) {
			continue
		}
		if best == nil || g.FormedAt.After(best.FormedAt) {
			best = g
		}
	}
	if best == nil {
		return nil
	}

	stop := best.MiddleLow
	if best.Direction == types.DirectionBearish {
		stop = best.MiddleHigh
	}

	return &types.TradeSignal{
		Direction:  best.Direction,
		EntryPrice: marketPrice,
		StopPrice:  stop,
		Gap:        best,
	}
}
