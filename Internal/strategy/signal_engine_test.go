package strategy

import (
	"testing"
	"time"

	"github.com/noddlecat/noddletrader/Internal/types"
)

func gapFormedAt(dir types.Direction, offset time.Duration) *types.FairValueGap {
	g := &types.FairValueGap{
		Direction:   dir,
		Top:         1.1010,
		Bottom:      1.1000,
		MiddleLow:   1.0995,
		MiddleHigh:  1.1008,
		FormedAt:    testBase.Add(offset),
		CompletedAt: testBase.Add(offset + time.Minute),
		Mitigated:   true,
		MitigatedAt: testBase.Add(offset + 2*time.Minute),
	}
	return g
}

func TestSignalEngine_Evaluate(t *testing.T) {
	bullish := gapFormedAt(types.DirectionBullish, 0)
	bearish := gapFormedAt(types.DirectionBearish, 0)
	laterBullish := gapFormedAt(types.DirectionBullish, 5*time.Minute)

	tests := []struct {
		name         string
		bias         types.Bias
		mitigated    []*types.FairValueGap
		positionOpen bool
		wantGap      *types.FairValueGap
	}{
		{
			name:      "bullish bias with matching gap",
			bias:      types.BiasBullish,
			mitigated: []*types.FairValueGap{bullish},
			wantGap:   bullish,
		},
		{
			name:         "open position blocks entry",
			bias:         types.BiasBullish,
			mitigated:    []*types.FairValueGap{bullish},
			positionOpen: true,
		},
		{
			name:      "neutral bias blocks entry",
			bias:      types.BiasNeutral,
			mitigated: []*types.FairValueGap{bullish},
		},
		{
			name:      "direction mismatch blocks entry",
			bias:      types.BiasBullish,
			mitigated: []*types.FairValueGap{bearish},
		},
		{
			name:      "no mitigated gaps",
			bias:      types.BiasBullish,
			mitigated: nil,
		},
		{
			name:      "latest formed gap wins",
			bias:      types.BiasBullish,
			mitigated: []*types.FairValueGap{bullish, laterBullish, bearish},
			wantGap:   laterBullish,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewSignalEngine()
			signal := engine.Evaluate(tt.bias, tt.mitigated, tt.positionOpen, 1.1009)

			if tt.wantGap == nil {
				if signal != nil {
					t.Fatalf("Evaluate() = %+v, want no signal", signal)
				}
				return
			}
			if signal == nil {
				t.Fatal("Evaluate() = nil, want a signal")
			}
			if signal.Gap != tt.wantGap {
				t.Errorf("Evaluate() picked gap formed at %v, want %v", signal.Gap.FormedAt, tt.wantGap.FormedAt)
			}
			if signal.EntryPrice != 1.1009 {
				t.Errorf("EntryPrice = %.5f, want market price 1.10090", signal.EntryPrice)
			}
			if signal.Direction != tt.wantGap.Direction {
				t.Errorf("Direction = %v, want %v", signal.Direction, tt.wantGap.Direction)
			}
		})
	}
}

func TestSignalEngine_StopFromMiddleCandle(t *testing.T) {
	engine := NewSignalEngine()

	bullish := gapFormedAt(types.DirectionBullish, 0)
	signal := engine.Evaluate(types.BiasBullish, []*types.FairValueGap{bullish}, false, 1.1009)
	if signal == nil {
		t.Fatal("Evaluate() = nil, want a bullish signal")
	}
	if signal.StopPrice != bullish.MiddleLow {
		t.Errorf("bullish stop = %.5f, want middle candle low %.5f", signal.StopPrice, bullish.MiddleLow)
	}

	bearish := gapFormedAt(types.DirectionBearish, 0)
	signal = engine.Evaluate(types.BiasBearish, []*types.FairValueGap{bearish}, false, 1.1009)
	if signal == nil {
		t.Fatal("Evaluate() = nil, want a bearish signal")
	}
	if signal.StopPrice != bearish.MiddleHigh {
		t.Errorf("bearish stop = %.5f, want middle candle high %.5f", signal.StopPrice, bearish.MiddleHigh)
	}
}
