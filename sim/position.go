package sim

import (
	"time"

	"trailbt/market"
)

// position is the single open position the simulator may hold. It exists
// only between entry and exit and is owned exclusively by the Simulator.
type position struct {
	entryTime  time.Time
	entryPrice float64
	side       market.Side
	quantity   float64

	// Favorable excursion trackers for the trailing stop: running high for
	// longs, running low for shorts. Both start at the entry price.
	maxPrice float64
	minPrice float64
}

func openPosition(b market.Bar, side market.Side, qty float64) *position {
	return &position{
		entryTime:  b.Time,
		entryPrice: b.Close,
		side:       side,
		quantity:   qty,
		maxPrice:   b.Close,
		minPrice:   b.Close,
	}
}
