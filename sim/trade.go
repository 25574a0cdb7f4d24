package sim

import (
	"time"

	"trailbt/market"
)

// Exit reasons recorded on the ledger.
const (
	ExitTP = "TP"
	ExitSL = "SL"
)

// Trade is one completed round trip. Records are immutable once appended to
// the ledger. SLPrice and TPPrice are the thresholds in force at exit time,
// so with a trailing stop SLPrice reflects the ratcheted level.
type Trade struct {
	Seq        int
	EntryTime  time.Time
	ExitTime   time.Time
	Side       market.Side
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	SLPrice    float64
	TPPrice    float64
	ExitReason string
	PnL        float64
	CumPnL     float64
	Balance    float64 // account balance after this trade
}
