package broker

import (
	"testing"

	"github.com/noddlecat/noddletrader/Internal/types"
)

func TestPaperExecutor_Execute(t *testing.T) {
	exec := NewPaperExecutor()

	plan := &types.TradePlan{
		Symbol:     "EURUSD",
		Direction:  types.DirectionBullish,
		EntryPrice: 1.1050,
		StopPrice:  1.1030,
		LotSize:    0.5,
	}
	if err := exec.Execute(plan); err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}

	plans := exec.ExecutedPlans()
	if len(plans) != 1 {
		t.Fatalf("ExecutedPlans() = %d plans, want 1", len(plans))
	}
	if plans[0].Symbol != "EURUSD" || plans[0].LotSize != 0.5 {
		t.Errorf("recorded plan = %+v, want the submitted one", plans[0])
	}

	// The returned slice is a copy; mutating it must not leak back.
	plans[0].Symbol = "GBPUSD"
	if exec.ExecutedPlans()[0].Symbol != "EURUSD" {
		t.Error("ExecutedPlans() exposed internal state")
	}
}
