package broker

import (
	"log"
	"sync"

	"github.com/noddlecat/noddletrader/Internal/types"
)

// PaperExecutor accepts plans without touching a live broker. Useful
// for dry runs and as the default when no API keys are configured.
type PaperExecutor struct {
	mu    sync.Mutex
	plans []types.TradePlan
}

func NewPaperExecutor() *PaperExecutor {
	return &PaperExecutor{}
}

func (e *PaperExecutor) Execute(plan *types.TradePlan) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.plans = append(e.plans, *plan)
	log.Printf("📝 PAPER: %s %s lot %.2f entry %.5f stop %.5f tp %.5f\n",
		plan.Symbol, plan.Direction, plan.LotSize, plan.EntryPrice, plan.StopPrice, plan.TakeProfitPrice)
	return nil
}

// ExecutedPlans returns a copy of everything accepted so far.
func (e *PaperExecutor) ExecutedPlans() []types.TradePlan {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.TradePlan, len(e.plans))
	copy(out, e.plans)
	return out
}
