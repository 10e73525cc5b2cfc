package strategy

import (
	"fmt"
	"math"

	"github.com/noddlecat/noddletrader/Internal/types"
)

// cap on retained gaps; oldest mitigated entries are dropped first
const maxTrackedGaps = 64

// GapTracker detects three-candle fair value gaps on the lower
// timeframe and tracks which previously detected gaps have since been
// price-mitigated. The active-gap set persists across cycles; the
// tracker owns it exclusively.
type GapTracker struct {
	WindowSize          int     // candles considered per update (default 7)
	MinGapSize          float64 // gaps narrower than this are discarded at creation
	MitigationTolerance float64 // slack around [bottom, top] for mitigation checks

	gaps []*types.FairValueGap
}

func NewGapTracker(windowSize int, minGapSize, mitigationTolerance float64) *GapTracker {
	if windowSize <= 0 {
		windowSize = 7
	}
	return &GapTracker{
		WindowSize:          windowSize,
		MinGapSize:          minGapSize,
		MitigationTolerance: mitigationTolerance,
	}
}

// Update runs one detection-plus-mitigation pass over the window and
// returns only the gaps that transitioned to mitigated during this
// call. Detection slides a strict 3-candle window: bullish when
// c3.low > c1.high, bearish when c3.high < c1.low, bounds taken from
// the outer candles. Re-running over the same window is idempotent:
// duplicates (same direction, bounds within tolerance) are suppressed
// and an already-mitigated gap never transitions again.
func (gt *GapTracker) Update(candles []types.Candle) ([]*types.FairValueGap, error) {
	if len(candles) < minAnalysisWindow {
		return nil, fmt.Errorf("gap window has %d candles, need %d: %w",
			len(candles), minAnalysisWindow, ErrInsufficientData)
	}

	window := candles
	if len(window) > gt.WindowSize {
		window = window[len(window)-gt.WindowSize:]
	}

	for i := 0; i+2 < len(window); i++ {
		c1, c2, c3 := window[i], window[i+1], window[i+2]

		var dir types.Direction
		var top, bottom float64

		switch {
		case c3.Low > c1.High:
			dir = types.DirectionBullish
			top, bottom = c3.Low, c1.High
		case c3.High < c1.Low:
			dir = types.DirectionBearish
			top, bottom = c1.Low, c3.High
		default:
			continue
		}

		if top-bottom < gt.MinGapSize {
			continue
		}
		if gt.isDuplicate(dir, top, bottom) {
			continue
		}

		gt.gaps = append(gt.gaps, &types.FairValueGap{
			Direction:   dir,
			Top:         top,
			Bottom:      bottom,
			MiddleLow:   c2.Low,
			MiddleHigh:  c2.High,
			FormedAt:    c2.OpenTime,
			CompletedAt: c3.OpenTime,
		})
	}

	// Mitigation in chronological order; only the first qualifying
	// candle after the pattern completed flips the gap. The third
	// pattern candle borders the gap by construction, so it never
	// counts as a return into the zone.
	var newlyMitigated []*types.FairValueGap
	for _, c := range window {
		for _, g := range gt.gaps {
			if g.Mitigated || !c.OpenTime.After(g.CompletedAt) {
				continue
			}
			if c.Low <= g.Top+gt.MitigationTolerance && c.High >= g.Bottom-gt.MitigationTolerance {
				g.Mitigated = true
				g.MitigatedAt = c.OpenTime
				newlyMitigated = append(newlyMitigated, g)
			}
		}
	}

	gt.prune()
	return newlyMitigated, nil
}

// ActiveGaps returns a snapshot of every tracked gap, mitigated ones
// included (kept for audit, never reused for a second entry).
func (gt *GapTracker) ActiveGaps() []types.FairValueGap {
	out := make([]types.FairValueGap, 0, len(gt.gaps))
	for _, g := range gt.gaps {
		out = append(out, *g)
	}
	return out
}

func (gt *GapTracker) isDuplicate(dir types.Direction, top, bottom float64) bool {
	tol := gt.MitigationTolerance
	for _, g := range gt.gaps {
		if g.Direction != dir {
			continue
		}
		if math.Abs(g.Top-top) <= tol && math.Abs(g.Bottom-bottom) <= tol {
			return true
		}
	}
	return false
}

func (gt *GapTracker) prune() {
	if len(gt.gaps) <= maxTrackedGaps {
		return
	}
	kept := make([]*types.FairValueGap, 0, len(gt.gaps))
	excess := len(gt.gaps) - maxTrackedGaps
	for _, g := range gt.gaps {
		if excess > 0 && g.Mitigated {
			excess--
			continue
		}
		kept = append(kept, g)
	}
	gt.gaps = kept
}
