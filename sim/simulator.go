// Package sim walks an annotated bar series and simulates a single-position
// trend-reversal strategy: at most one open position at any time, take-profit
// checked before stop-loss, optional trailing stop, fixed transaction costs.
package sim

import (
	"trailbt/config"
	"trailbt/market"
)

// Simulator is the trade state machine. States are flat, long-open and
// short-open; the run ends when the bar series is exhausted, never on a
// terminal condition.
type Simulator struct {
	cfg *config.Config

	balance float64
	cumPnL  float64
	pos     *position
	trades  []Trade
}

// New creates a simulator starting flat with the configured balance.
func New(cfg *config.Config) *Simulator {
	return &Simulator{
		cfg:     cfg,
		balance: cfg.StartingBalance,
	}
}

// Balance returns the current account balance.
func (s *Simulator) Balance() float64 { return s.balance }

// Run processes every bar in order and returns the trade ledger. Exits are
// evaluated before entries, so a bar that closes a position and carries a
// signal opens a fresh one at that bar's close. Fewer than 4 bars simply
// yields no trades.
func (s *Simulator) Run(bars []market.Bar) []Trade {
	for i := range bars {
		bar := bars[i]

		// Margin- and risk-based sizing caps are computed from the live
		// balance each bar but stay informational: the opened quantity is
		// fixed at one contract. Do not apply the caps without a product
		// decision.
		_ = maxContractsMargin(s.balance, s.cfg.ContractMargin)
		_ = maxContractsRisk(s.balance, s.cfg.RiskPercentage, s.cfg.SLTicks, s.cfg.TickValue)
		qty := 1.0

		if s.pos != nil {
			if !s.step(bar) {
				continue
			}
		}

		if s.pos == nil && bar.Signal != 0 && qty >= 1 {
			side := market.Long
			if bar.Signal < 0 {
				side = market.Short
			}
			s.pos = openPosition(bar, side, qty)
		}
	}
	return s.trades
}

// step evaluates exit conditions for the open position against one bar.
// It returns false when the position stays open, which also skips entry
// evaluation for that bar.
func (s *Simulator) step(bar market.Bar) bool {
	p := s.pos
	tick := s.cfg.TickSize

	var tp, sl, exitPrice float64
	var reason string

	if p.side == market.Long {
		tp = p.entryPrice + s.cfg.TPTicks*tick
		sl = p.entryPrice - s.cfg.SLTicks*tick

		if s.cfg.TrailingStop {
			if bar.High > p.maxPrice {
				p.maxPrice = bar.High
			}
			// The stop only ever ratchets toward the price.
			if trail := p.maxPrice - s.cfg.TrailingStopTicks*tick; trail > sl {
				sl = trail
			}
		}

		// TP before SL: accepted tie-break for intrabar path ambiguity.
		switch {
		case bar.High >= tp:
			exitPrice, reason = tp, ExitTP
		case bar.Low <= sl:
			exitPrice, reason = sl, ExitSL
		default:
			return false
		}
	} else {
		tp = p.entryPrice - s.cfg.TPTicks*tick
		sl = p.entryPrice + s.cfg.SLTicks*tick

		if s.cfg.TrailingStop {
			if bar.Low < p.minPrice {
				p.minPrice = bar.Low
			}
			if trail := p.minPrice + s.cfg.TrailingStopTicks*tick; trail < sl {
				sl = trail
			}
		}

		switch {
		case bar.Low <= tp:
			exitPrice, reason = tp, ExitTP
		case bar.High >= sl:
			exitPrice, reason = sl, ExitSL
		default:
			return false
		}
	}

	s.close(bar, exitPrice, sl, tp, reason)
	return true
}

func (s *Simulator) close(bar market.Bar, exitPrice, sl, tp float64, reason string) {
	p := s.pos

	pnl := (exitPrice - p.entryPrice) * p.quantity * s.cfg.TickValue / s.cfg.TickSize
	if p.side == market.Short {
		pnl = -pnl
	}

	// Round-trip cost: one commission plus slippage on both legs.
	pnl -= s.cfg.CommissionPerTrade + s.cfg.SlippageTicks*s.cfg.TickValue*2

	s.balance += pnl
	s.cumPnL += pnl

	s.trades = append(s.trades, Trade{
		Seq:        len(s.trades) + 1,
		EntryTime:  p.entryTime,
		ExitTime:   bar.Time,
		Side:       p.side,
		EntryPrice: p.entryPrice,
		ExitPrice:  exitPrice,
		Quantity:   p.quantity,
		SLPrice:    sl,
		TPPrice:    tp,
		ExitReason: reason,
		PnL:        pnl,
		CumPnL:     s.cumPnL,
		Balance:    s.balance,
	})
	s.pos = nil
}
