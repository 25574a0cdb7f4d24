package market

import "time"

// Side of a position or trade.
type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// Bar is one OHLCV record plus the annotations added by the indicator and
// signal stages. Timestamps are timezone-naive wall-clock values; the series
// is ordered ascending by Time and timestamp uniqueness is assumed.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64

	// Annotations. EMA is filled by the indicator stage, Signal by the
	// detector: +1 long, -1 short, 0 none.
	EMA    float64
	Signal int
}

// Bearish reports whether the bar closed below its open.
func (b Bar) Bearish() bool { return b.Close < b.Open }

// Bullish reports whether the bar closed above its open.
func (b Bar) Bullish() bool { return b.Close > b.Open }
