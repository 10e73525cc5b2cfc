package strategy

import (
	"errors"
	"fmt"

	"github.com/noddlecat/noddletrader/Internal/types"
)

// ErrInsufficientData means a candle window is too short for the
// requested analysis. The cycle aborts and retries on the next poll.
var ErrInsufficientData = errors.New("insufficient candle data")

// minimum candles any analyzer needs before a window makes sense
const minAnalysisWindow = 3

// BiasAnalyzer derives the higher-timeframe directional bias from
// break-of-structure and displacement checks.
type BiasAnalyzer struct {
	WindowSize     int     // candles considered (default 15)
	MinCandleRange float64 // minimum body for a break to count as displacement
}

func NewBiasAnalyzer(windowSize int, minCandleRange float64) *BiasAnalyzer {
	if windowSize <= 0 {
		windowSize = 15
	}
	return &BiasAnalyzer{
		WindowSize:     windowSize,
		MinCandleRange: minCandleRange,
	}
}

// Analyze scans the window for a close breaking above the highest high
// (bullish) or below the lowest low (bearish) of all preceding candles.
// A break whose candle body is smaller than MinCandleRange is noise and
// establishes nothing. When both sides break, the most recent break
// wins. No confirmed break means Neutral.
func (ba *BiasAnalyzer) Analyze(candles []types.Candle) (types.Bias, error) {
	if len(candles) < minAnalysisWindow {
		return types.BiasNeutral, fmt.Errorf("bias window has %d candles, need %d: %w",
			len(candles), minAnalysisWindow, ErrInsufficientData)
	}

	window := candles
	if len(window) > ba.WindowSize {
		window = window[len(window)-ba.WindowSize:]
	}

	lastUpBreak := -1
	lastDownBreak := -1
	refHigh := window[0].High
	refLow := window[0].Low

	for i := 1; i < len(window); i++ {
		c := window[i]

		if c.Close > refHigh && c.Body() >= ba.MinCandleRange {
			lastUpBreak = i
		}
		if c.Close < refLow && c.Body() >= ba.MinCandleRange {
			lastDownBreak = i
		}

		if c.High > refHigh {
			refHigh = c.High
		}
		if c.Low < refLow {
			refLow = c.Low
		}
	}

	switch {
	case lastUpBreak < 0 && lastDownBreak < 0:
		return types.BiasNeutral, nil
	case lastUpBreak > lastDownBreak:
		return types.BiasBullish, nil
	case lastDownBreak > lastUpBreak:
		return types.BiasBearish, nil
	default:
		// same index cannot close both above the prefix high and below
		// the prefix low, but keep the timestamp tie-break anyway
		if window[lastUpBreak].OpenTime.After(window[lastDownBreak].OpenTime) {
			return types.BiasBullish, nil
		}
		return types.BiasBearish, nil
	}
}
