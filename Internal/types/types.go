package types

import "time"

// Candle is a single OHLC bar on a fixed timeframe.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
}

// Body returns the absolute size of the candle body.
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns the high-to-low extent of the candle.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Direction of a gap or trade.
type Direction string

const (
	DirectionBullish Direction = "BULLISH"
	DirectionBearish Direction = "BEARISH"
)

// Bias is the higher-timeframe directional assessment.
type Bias string

const (
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
	BiasNeutral Bias = "NEUTRAL"
)

// Matches reports whether a gap direction agrees with the bias.
func (b Bias) Matches(d Direction) bool {
	return (b == BiasBullish && d == DirectionBullish) ||
		(b == BiasBearish && d == DirectionBearish)
}

// FairValueGap is a three-candle price imbalance. Top and Bottom come
// from the outer candles of the pattern; MiddleLow and MiddleHigh are
// kept from the middle candle as the stop reference. FormedAt is the
// middle candle's open time, CompletedAt the third candle's; only
// candles after CompletedAt can mitigate (the pattern's own candles
// always touch the gap edge). Everything is immutable after creation
// except the mitigation fields, which flip exactly once.
type FairValueGap struct {
	Direction   Direction `json:"direction"`
	Top         float64   `json:"top"`
	Bottom      float64   `json:"bottom"`
	MiddleLow   float64   `json:"middle_low"`
	MiddleHigh  float64   `json:"middle_high"`
	FormedAt    time.Time `json:"formed_at"`
	CompletedAt time.Time `json:"completed_at"`
	Mitigated   bool      `json:"mitigated"`
	MitigatedAt time.Time `json:"mitigated_at,omitempty"`
}

// Size returns the gap width (Top > Bottom always holds).
func (g FairValueGap) Size() float64 {
	return g.Top - g.Bottom
}

// TradeSignal is a confirmed entry opportunity: bias and a freshly
// mitigated gap agreed in direction.
type TradeSignal struct {
	Direction  Direction
	EntryPrice float64
	StopPrice  float64
	Gap        *FairValueGap
}

// TradePlan is the sized, ready-to-submit output of one analysis cycle.
type TradePlan struct {
	Symbol           string    `json:"symbol"`
	Direction        Direction `json:"direction"`
	EntryPrice       float64   `json:"entry_price"`
	StopPrice        float64   `json:"stop_price"`
	TakeProfitPrice  float64   `json:"take_profit_price"`
	LotSize          float64   `json:"lot_size"`
	RiskAmount       float64   `json:"risk_amount"`
	StopDistancePips float64   `json:"stop_distance_pips"`
	CreatedAt        time.Time `json:"created_at"`
}
