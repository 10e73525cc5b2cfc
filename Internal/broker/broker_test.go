package broker

import (
	"testing"
	"time"

	"github.com/noddlecat/noddletrader/Internal/types"
)

func TestValidateCandles(t *testing.T) {
	base := time.Date(2025, 6, 2, 13, 0, 0, 0, time.UTC)
	at := func(i int, o, h, l, c float64) types.Candle {
		return types.Candle{
			OpenTime: base.Add(time.Duration(i) * time.Minute),
			Open:     o,
			High:     h,
			Low:      l,
			Close:    c,
		}
	}

	tests := []struct {
		name    string
		candles []types.Candle
		wantErr bool
	}{
		{
			name: "valid ascending window",
			candles: []types.Candle{
				at(0, 1.1000, 1.1005, 1.0995, 1.1002),
				at(1, 1.1002, 1.1008, 1.0999, 1.1006),
			},
		},
		{
			name:    "empty window",
			candles: nil,
		},
		{
			name: "high below low",
			candles: []types.Candle{
				at(0, 1.1000, 1.0990, 1.0995, 1.1000),
			},
			wantErr: true,
		},
		{
			name: "close above high",
			candles: []types.Candle{
				at(0, 1.1000, 1.1005, 1.0995, 1.1010),
			},
			wantErr: true,
		},
		{
			name: "duplicate open time",
			candles: []types.Candle{
				at(0, 1.1000, 1.1005, 1.0995, 1.1002),
				at(0, 1.1002, 1.1008, 1.0999, 1.1006),
			},
			wantErr: true,
		},
		{
			name: "descending open times",
			candles: []types.Candle{
				at(1, 1.1000, 1.1005, 1.0995, 1.1002),
				at(0, 1.1002, 1.1008, 1.0999, 1.1006),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCandles(tt.candles)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCandles() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
