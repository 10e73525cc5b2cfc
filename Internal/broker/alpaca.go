package broker

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"github.com/noddlecat/noddletrader/Internal/types"
	"github.com/noddlecat/noddletrader/Internal/utils/retry"
)

const (
	defaultTradeURL = "https://paper-api.alpaca.markets"
	defaultDataURL  = "https://data.alpaca.markets"
)

// AlpacaFeed pulls candle windows and quotes from the Alpaca data API.
type AlpacaFeed struct {
	apiKey    string
	secretKey string
	dataURL   string
	client    *http.Client
	retryCfg  retry.Config
}

func NewAlpacaFeed() *AlpacaFeed {
	dataURL := os.Getenv("ALPACA_DATA_URL")
	if dataURL == "" {
		dataURL = defaultDataURL
	}
	return &AlpacaFeed{
		apiKey:    os.Getenv("ALPACA_API_KEY"),
		secretKey: os.Getenv("ALPACA_API_SECRET"),
		dataURL:   dataURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		retryCfg:  retry.DefaultConfig(),
	}
}

type wireBar struct {
	Timestamp string  `json:"t"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
}

// GetCandles fetches the most recent count bars for the timeframe,
// returned ascending by open time as the strategy core expects.
func (f *AlpacaFeed) GetCandles(symbol, timeframe string, count int) ([]types.Candle, error) {
	start := time.Now().UTC().Add(-timeframeDuration(timeframe) * time.Duration(count+2))
	apiURL := fmt.Sprintf("%s/v2/stocks/%s/bars?timeframe=%s&limit=%d&start=%s",
		f.dataURL, url.PathEscape(symbol), timeframe, count, start.Format(time.RFC3339))

	var bars []wireBar
	err := retry.WithBackoff(func() error {
		req, err := http.NewRequest("GET", apiURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("APCA-API-KEY-ID", f.apiKey)
		req.Header.Set("APCA-API-SECRET-KEY", f.secretKey)

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConnection, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %s (%s)", ErrSymbolUnavailable, symbol, resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: bars request returned %s", ErrConnection, resp.Status)
		}

		var r struct {
			Bars []wireBar `json:"bars"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
			return fmt.Errorf("%w: decode bars: %v", ErrConnection, err)
		}
		bars = r.Bars
		return nil
	}, f.retryCfg)
	if err != nil {
		return nil, err
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s %s", ErrSymbolUnavailable, symbol, timeframe)
	}

	candles := make([]types.Candle, 0, len(bars))
	for _, b := range bars {
		ts, err := time.Parse(time.RFC3339, b.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: bad bar timestamp %q", ErrConnection, b.Timestamp)
		}
		candles = append(candles, types.Candle{
			OpenTime: ts,
			Open:     b.Open,
			High:     b.High,
			Low:      b.Low,
			Close:    b.Close,
		})
	}
	if len(candles) > count {
		candles = candles[len(candles)-count:]
	}
	return candles, nil
}

// GetLastPrice returns the latest quote ask price for the symbol.
func (f *AlpacaFeed) GetLastPrice(symbol string) (float64, error) {
	apiURL := fmt.Sprintf("%s/v2/stocks/%s/quotes/latest", f.dataURL, url.PathEscape(symbol))

	var price float64
	err := retry.WithBackoff(func() error {
		req, err := http.NewRequest("GET", apiURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("APCA-API-KEY-ID", f.apiKey)
		req.Header.Set("APCA-API-SECRET-KEY", f.secretKey)

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConnection, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrSymbolUnavailable, symbol)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: quote request returned %s", ErrConnection, resp.Status)
		}

		var r struct {
			Quote struct {
				AskPrice float64 `json:"ap"`
			} `json:"quote"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
			return fmt.Errorf("%w: decode quote: %v", ErrConnection, err)
		}
		price = r.Quote.AskPrice
		return nil
	}, f.retryCfg)
	if err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: empty quote for %s", ErrSymbolUnavailable, symbol)
	}
	return price, nil
}

// AlpacaAccount reads equity and position state from the trading API.
type AlpacaAccount struct {
	client *alpaca.Client
}

func NewAlpacaAccount(client *alpaca.Client) *AlpacaAccount {
	return &AlpacaAccount{client: client}
}

func (a *AlpacaAccount) GetEquity() (float64, error) {
	account, err := a.client.GetAccount()
	if err != nil {
		return 0, fmt.Errorf("%w: get account: %v", ErrConnection, err)
	}
	equity, _ := account.Equity.Float64()
	return equity, nil
}

func (a *AlpacaAccount) HasOpenPosition(symbol string) (bool, error) {
	positions, err := a.client.GetPositions()
	if err != nil {
		return false, fmt.Errorf("%w: get positions: %v", ErrConnection, err)
	}
	for _, p := range positions {
		if p.Symbol == symbol {
			return true, nil
		}
	}
	return false, nil
}

// AlpacaExecutor submits a TradePlan as a bracket market order.
type AlpacaExecutor struct {
	client *alpaca.Client
}

func NewAlpacaExecutor(client *alpaca.Client) *AlpacaExecutor {
	return &AlpacaExecutor{client: client}
}

func (e *AlpacaExecutor) Execute(plan *types.TradePlan) error {
	if plan == nil {
		return fmt.Errorf("trade plan is nil")
	}

	side := alpaca.Buy
	if plan.Direction == types.DirectionBearish {
		side = alpaca.Sell
	}

	qty := decimal.NewFromFloat(plan.LotSize)
	takeProfit := decimal.NewFromFloat(plan.TakeProfitPrice)
	stopLoss := decimal.NewFromFloat(plan.StopPrice)

	order, err := e.client.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      plan.Symbol,
		Qty:         &qty,
		Side:        side,
		Type:        alpaca.Market,
		TimeInForce: alpaca.GTC,
		OrderClass:  alpaca.Bracket,
		TakeProfit:  &alpaca.TakeProfit{LimitPrice: &takeProfit},
		StopLoss:    &alpaca.StopLoss{StopPrice: &stopLoss},
	})
	if err != nil {
		return fmt.Errorf("%w: place order for %s: %v", ErrConnection, plan.Symbol, err)
	}

	log.Printf("✅ Order submitted: %s %s lot %.2f | ID: %s | Status: %s\n",
		plan.Symbol, plan.Direction, plan.LotSize, order.ID, order.Status)
	return nil
}

// NewAlpacaClient builds the trading-API client from environment
// credentials, mirroring the data feed's configuration.
func NewAlpacaClient() *alpaca.Client {
	baseURL := os.Getenv("ALPACA_BASE_URL")
	if baseURL == "" {
		baseURL = defaultTradeURL
	}
	return alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    os.Getenv("ALPACA_API_KEY"),
		APISecret: os.Getenv("ALPACA_API_SECRET"),
		BaseURL:   baseURL,
	})
}

func timeframeDuration(tf string) time.Duration {
	switch tf {
	case "1Min":
		return time.Minute
	case "5Min":
		return 5 * time.Minute
	case "15Min":
		return 15 * time.Minute
	case "30Min":
		return 30 * time.Minute
	case "1Hour":
		return time.Hour
	case "4Hour":
		return 4 * time.Hour
	case "1Day":
		return 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
