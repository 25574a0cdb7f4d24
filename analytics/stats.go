// Package analytics reduces a trade ledger to summary performance metrics.
package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"trailbt/sim"
)

// Minute bars: annualization factor for the Sharpe-like ratio.
const annualizationPeriods = 252 * 24 * 60

// Metrics is the aggregate record derived from one full ledger. SharpeRatio
// is nil when the return series has zero (or undefined) deviation; that is a
// reported condition, not an error.
type Metrics struct {
	TotalTrades      int      `json:"total_trades"`
	WinRate          float64  `json:"win_rate"`
	AvgWin           float64  `json:"avg_win"`
	AvgLoss          float64  `json:"avg_loss"`
	TotalPnL         float64  `json:"total_pnl"`
	ProfitPercentage float64  `json:"profit_percentage"`
	MaxDrawdown      float64  `json:"max_drawdown"`
	SharpeRatio      *float64 `json:"sharpe_ratio"`
	BestTrade        float64  `json:"best_trade"`
	WorstTrade       float64  `json:"worst_trade"`
}

// Analyze computes metrics over a complete ledger. An empty ledger yields
// the zero Metrics value.
func Analyze(trades []sim.Trade, startingBalance float64) Metrics {
	if len(trades) == 0 {
		return Metrics{}
	}

	var (
		wins, losses []float64
		totalPnL     float64
		winning      int
		maxDrawdown  float64
	)
	returns := make([]float64, len(trades))
	best := math.Inf(-1)
	worst := math.Inf(1)
	cumBalance := startingBalance
	// The peak is the running maximum of the balance series itself, so a
	// ledger that opens at its low point has zero drawdown.
	peak := math.Inf(-1)

	for i, t := range trades {
		totalPnL += t.PnL
		returns[i] = t.PnL / startingBalance

		switch {
		case t.PnL > 0:
			winning++
			wins = append(wins, t.PnL)
		case t.PnL < 0:
			losses = append(losses, t.PnL)
		}

		if t.PnL > best {
			best = t.PnL
		}
		if t.PnL < worst {
			worst = t.PnL
		}

		// Drawdown over the balance series against its running peak.
		cumBalance += t.PnL
		if cumBalance > peak {
			peak = cumBalance
		}
		if dd := peak - cumBalance; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}

	m := Metrics{
		TotalTrades:      len(trades),
		WinRate:          float64(winning) / float64(len(trades)),
		AvgWin:           stat.Mean(wins, nil),
		AvgLoss:          stat.Mean(losses, nil),
		TotalPnL:         totalPnL,
		ProfitPercentage: totalPnL / startingBalance * 100,
		MaxDrawdown:      maxDrawdown,
		BestTrade:        best,
		WorstTrade:       worst,
	}
	if len(wins) == 0 {
		m.AvgWin = 0
	}
	if len(losses) == 0 {
		m.AvgLoss = 0
	}

	// Sample standard deviation; nil when there is no variance to
	// normalize by.
	std := stat.StdDev(returns, nil)
	if std != 0 && !math.IsNaN(std) {
		sharpe := stat.Mean(returns, nil) / std * math.Sqrt(annualizationPeriods)
		m.SharpeRatio = &sharpe
	}

	return m
}
