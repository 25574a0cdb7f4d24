// Package journal persists backtest artifacts: the trade ledger and the
// metrics summary, to CSV files or a SQLite database.
package journal

import (
	"time"

	"trailbt/analytics"
	"trailbt/market"
	"trailbt/sim"
)

// Journal is a sink for one run's ledger and metrics.
type Journal interface {
	WriteTrades(trades []sim.Trade) error
	WriteMetrics(m analytics.Metrics) error
	Close() error
}

// Run is the per-run row stored by the SQLite journal alongside the ledger.
type Run struct {
	ID           string
	Created      time.Time
	Dataset      string
	Config       []byte // config snapshot, JSON
	TotalTrades  int
	TotalPnL     float64
	WinRate      float64
	MaxDrawdown  float64
	Sharpe       *float64
	FinalBalance float64
}

// Timestamp layout used in CSV artifacts, naive wall-clock.
const timeLayout = "2006-01-02 15:04:05"

func formatTime(t time.Time) string { return t.Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func sideFromString(s string) market.Side {
	if s == string(market.Short) {
		return market.Short
	}
	return market.Long
}
