package sessions

import (
	"fmt"
	"time"

	"github.com/noddlecat/noddletrader/Internal/types"
)

// trading session windows in their local exchange time
type window struct {
	location  string
	openHour  int
	openMin   int
	closeHour int
	closeMin  int
}

var sessionWindows = map[string]window{
	"NY":     {location: "America/New_York", openHour: 9, openMin: 30, closeHour: 16, closeMin: 0},
	"LONDON": {location: "Europe/London", openHour: 8, openMin: 0, closeHour: 16, closeMin: 30},
	"TOKYO":  {location: "Asia/Tokyo", openHour: 9, openMin: 0, closeHour: 18, closeMin: 0},
}

// Filter keeps only candles whose open time falls inside the named
// trading session. Unknown session names are a configuration error.
func Filter(candles []types.Candle, session string) ([]types.Candle, error) {
	w, ok := sessionWindows[session]
	if !ok {
		return nil, fmt.Errorf("unknown trading session %q", session)
	}

	loc, err := time.LoadLocation(w.location)
	if err != nil {
		return nil, fmt.Errorf("load session timezone: %w", err)
	}

	filtered := make([]types.Candle, 0, len(candles))
	for _, c := range candles {
		local := c.OpenTime.In(loc)
		minutes := local.Hour()*60 + local.Minute()
		open := w.openHour*60 + w.openMin
		close := w.closeHour*60 + w.closeMin
		if minutes >= open && minutes <= close {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// Known reports whether the session name is recognized.
func Known(session string) bool {
	_, ok := sessionWindows[session]
	return ok
}
