// Package signal scans an indicator-annotated bar series for 3-bar reversal
// patterns and marks each bar with a directional signal.
package signal

import "trailbt/market"

const lookback = 3

// window is a fixed-depth ring buffer over the most recent lookback bars,
// giving O(1) amortized access instead of re-slicing per index.
type window struct {
	bars [lookback]market.Bar
	head int
	n    int
}

func (w *window) push(b market.Bar) {
	w.bars[w.head] = b
	w.head = (w.head + 1) % lookback
	if w.n < lookback {
		w.n++
	}
}

func (w *window) full() bool { return w.n == lookback }

// all reports whether pred holds for every bar in the window.
func (w *window) all(pred func(market.Bar) bool) bool {
	for i := 0; i < w.n; i++ {
		if !pred(w.bars[i]) {
			return false
		}
	}
	return true
}

// Annotate sets the Signal field on every bar.
//
// A bar gets +1 when the 3 preceding bars each closed below their open and
// below their EMA, and the bar itself closes above its EMA. It gets -1 in
// the mirrored case. Anything else, including the first 3 bars, gets 0.
// Each bar is judged purely on its local window; no state carries between
// calls.
func Annotate(bars []market.Bar) {
	var w window
	for i := range bars {
		bars[i].Signal = 0
		if w.full() {
			cur := &bars[i]
			switch {
			case w.all(bearishBelowEMA) && cur.Close > cur.EMA:
				cur.Signal = +1
			case w.all(bullishAboveEMA) && cur.Close < cur.EMA:
				cur.Signal = -1
			}
		}
		w.push(bars[i])
	}
}

func bearishBelowEMA(b market.Bar) bool { return b.Bearish() && b.Close < b.EMA }

func bullishAboveEMA(b market.Bar) bool { return b.Bullish() && b.Close > b.EMA }
