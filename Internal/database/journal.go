package journal

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noddlecat/noddletrader/Internal/types"
)

// plan outcome states written by the execution side
const (
	StatusPending = "pending"
	StatusWin     = "win"
	StatusLoss    = "loss"
)

// PlanRecord is a journaled trade plan row.
type PlanRecord struct {
	ID               int64           `json:"id"`
	Symbol           string          `json:"symbol"`
	Direction        string          `json:"direction"`
	EntryPrice       decimal.Decimal `json:"entry_price"`
	StopPrice        decimal.Decimal `json:"stop_price"`
	TakeProfitPrice  decimal.Decimal `json:"take_profit_price"`
	LotSize          decimal.Decimal `json:"lot_size"`
	RiskAmount       decimal.Decimal `json:"risk_amount"`
	StopDistancePips decimal.Decimal `json:"stop_distance_pips"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// LogPlan persists an emitted trade plan.
func LogPlan(ctx context.Context, plan *types.TradePlan) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	_, err := DB.ExecContext(ctx, `
		INSERT INTO trade_plans
			(symbol, direction, entry_price, stop_price, take_profit_price,
			 lot_size, risk_amount, stop_distance_pips, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		plan.Symbol, string(plan.Direction),
		decimal.NewFromFloat(plan.EntryPrice).String(),
		decimal.NewFromFloat(plan.StopPrice).String(),
		decimal.NewFromFloat(plan.TakeProfitPrice).String(),
		decimal.NewFromFloat(plan.LotSize).String(),
		decimal.NewFromFloat(plan.RiskAmount).String(),
		decimal.NewFromFloat(plan.StopDistancePips).String(),
		StatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to log plan: %w", err)
	}

	log.Printf("✅ Plan journaled: %s %s lot %.2f @ %.5f\n",
		plan.Symbol, plan.Direction, plan.LotSize, plan.EntryPrice)
	return nil
}

// GetPlanHistory returns the most recent journaled plans for a symbol.
// An empty symbol returns plans across all symbols.
func GetPlanHistory(ctx context.Context, symbol string, limit int) ([]PlanRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, symbol, direction, entry_price, stop_price, take_profit_price,
		       lot_size, risk_amount, stop_distance_pips, status, created_at
		FROM trade_plans
		WHERE ($1 = '' OR symbol = $1)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := DB.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch plan history: %w", err)
	}
	defer rows.Close()

	var records []PlanRecord
	for rows.Next() {
		var r PlanRecord
		var entry, stop, tp, lot, riskAmt, pips string
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Direction, &entry, &stop, &tp,
			&lot, &riskAmt, &pips, &r.Status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan row: %w", err)
		}
		r.EntryPrice, _ = decimal.NewFromString(entry)
		r.StopPrice, _ = decimal.NewFromString(stop)
		r.TakeProfitPrice, _ = decimal.NewFromString(tp)
		r.LotSize, _ = decimal.NewFromString(lot)
		r.RiskAmount, _ = decimal.NewFromString(riskAmt)
		r.StopDistancePips, _ = decimal.NewFromString(pips)
		records = append(records, r)
	}
	return records, rows.Err()
}

// UpdatePlanStatus records a plan's outcome once the execution side
// reports the position closed.
func UpdatePlanStatus(ctx context.Context, id int64, status string, exitPrice float64) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	_, err := DB.ExecContext(ctx, `
		UPDATE trade_plans
		SET status = $1, exit_price = $2, closed_at = CURRENT_TIMESTAMP
		WHERE id = $3`,
		status, decimal.NewFromFloat(exitPrice).String(), id)
	if err != nil {
		return fmt.Errorf("failed to update plan status: %w", err)
	}

	log.Printf("✅ Plan %d marked %s\n", id, status)
	return nil
}

// TradeStats summarizes journaled plan outcomes.
type TradeStats struct {
	TotalPlans   int             `json:"total_plans"`
	Wins         int             `json:"wins"`
	Losses       int             `json:"losses"`
	Pending      int             `json:"pending"`
	WinRate      float64         `json:"win_rate"`
	ProfitFactor float64         `json:"profit_factor"`
	TotalRisked  decimal.Decimal `json:"total_risked"`
}

// GetStats computes win rate and profit factor over a lookback window.
// Profit factor uses each plan's risk distance times its reward ratio:
// a win banks RR x risk, a loss costs the risk amount.
func GetStats(ctx context.Context, symbol string, lookbackDays int) (*TradeStats, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	cutoff := time.Now().AddDate(0, 0, -lookbackDays)

	query := `
		SELECT status, entry_price, stop_price, take_profit_price, risk_amount
		FROM trade_plans
		WHERE ($1 = '' OR symbol = $1) AND created_at >= $2`

	rows, err := DB.QueryContext(ctx, query, symbol, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stats: %w", err)
	}
	defer rows.Close()

	stats := &TradeStats{TotalRisked: decimal.Zero}
	grossProfit := decimal.Zero
	grossLoss := decimal.Zero

	for rows.Next() {
		var status string
		var entry, stop, tp, riskAmt string
		if err := rows.Scan(&status, &entry, &stop, &tp, &riskAmt); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}

		risk, _ := decimal.NewFromString(riskAmt)
		entryD, _ := decimal.NewFromString(entry)
		stopD, _ := decimal.NewFromString(stop)
		tpD, _ := decimal.NewFromString(tp)

		stats.TotalPlans++
		stats.TotalRisked = stats.TotalRisked.Add(risk)

		switch status {
		case StatusWin:
			stats.Wins++
			stopDist := entryD.Sub(stopD).Abs()
			if !stopDist.IsZero() {
				rr := tpD.Sub(entryD).Abs().Div(stopDist)
				grossProfit = grossProfit.Add(risk.Mul(rr))
			}
		case StatusLoss:
			stats.Losses++
			grossLoss = grossLoss.Add(risk)
		default:
			stats.Pending++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	closed := stats.Wins + stats.Losses
	if closed > 0 {
		stats.WinRate = float64(stats.Wins) / float64(closed) * 100
	}
	if grossLoss.IsPositive() {
		stats.ProfitFactor = grossProfit.Div(grossLoss).InexactFloat64()
	}
	// no losses yet leaves ProfitFactor at 0 rather than infinity

	return stats, nil
}
