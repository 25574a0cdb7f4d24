package indicators

import (
	"fmt"

	"trailbt/market"
)

// EMA is a streaming exponential moving average over close prices using the
// recursive definition: the first value is the first close, and each later
// value is alpha*close + (1-alpha)*prev with alpha = 2/(span+1). There is no
// warmup period and no bias adjustment after the first value.
type EMA struct {
	span   int
	alpha  float64
	value  float64
	primed bool
}

// NewEMA creates a streaming EMA with the given smoothing span.
func NewEMA(span int) *EMA {
	return &EMA{
		span:  span,
		alpha: 2.0 / float64(span+1),
	}
}

func (e *EMA) Name() string {
	return fmt.Sprintf("EMA(%d)", e.span)
}

func (e *EMA) Reset() {
	e.value = 0
	e.primed = false
}

// Update feeds one close price and returns the new EMA value.
func (e *EMA) Update(close float64) float64 {
	if !e.primed {
		e.value = close
		e.primed = true
		return e.value
	}
	e.value = e.alpha*close + (1-e.alpha)*e.value
	return e.value
}

// Ready reports whether at least one value has been observed.
func (e *EMA) Ready() bool { return e.primed }

// Value returns the current EMA, or 0 before the first update.
func (e *EMA) Value() float64 { return e.value }

// Apply annotates every bar's EMA field in place with a span-period EMA of
// the close series. Single pass, deterministic.
func Apply(bars []market.Bar, span int) {
	ema := NewEMA(span)
	for i := range bars {
		bars[i].EMA = ema.Update(bars[i].Close)
	}
}
