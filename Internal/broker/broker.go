// Package broker holds the external collaborator surfaces the strategy
// core pulls from: the market-data feed, broker account state, and the
// execution backend a TradePlan is handed to. Two implementations
// exist: the Alpaca-backed live set (alpaca.go) and an in-memory paper
// executor (paper.go).
package broker

import (
	"errors"
	"fmt"

	"github.com/noddlecat/noddletrader/Internal/types"
)

var (
	// ErrConnection wraps transport failures talking to the broker;
	// the cycle aborts and retries on the next poll.
	ErrConnection = errors.New("broker connection failed")
	// ErrSymbolUnavailable means the broker has no data for the symbol.
	ErrSymbolUnavailable = errors.New("symbol unavailable")
)

// MarketData supplies already-materialized candle windows and quotes.
// Candles come back ascending by open time.
type MarketData interface {
	GetCandles(symbol, timeframe string, count int) ([]types.Candle, error)
	GetLastPrice(symbol string) (float64, error)
}

// AccountState exposes the equity snapshot and open-position report.
type AccountState interface {
	GetEquity() (float64, error)
	HasOpenPosition(symbol string) (bool, error)
}

// Executor receives the finished TradePlan. Once Execute returns nil
// the plan is committed; retry and cancel semantics belong to the
// executor, not the core.
type Executor interface {
	Execute(plan *types.TradePlan) error
}

// ValidateCandles checks feed integrity: ascending unique open times
// and OHLC consistency. A window that fails here aborts the cycle the
// same way a collaborator failure does.
func ValidateCandles(candles []types.Candle) error {
	for i, c := range candles {
		if c.High < c.Low {
			return fmt.Errorf("candle %d: high %.5f below low %.5f", i, c.High, c.Low)
		}
		if c.High < c.Open || c.High < c.Close || c.Low > c.Open || c.Low > c.Close {
			return fmt.Errorf("candle %d: open/close outside high-low range", i)
		}
		if i > 0 && !c.OpenTime.After(candles[i-1].OpenTime) {
			return fmt.Errorf("candle %d: open time %s not after previous %s",
				i, c.OpenTime, candles[i-1].OpenTime)
		}
	}
	return nil
}
