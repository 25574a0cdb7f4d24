package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"trailbt/analytics"
	"trailbt/market"
	"trailbt/sim"
)

// Ledger column order. The first nine are the contractual output columns;
// the rest are internal fields kept so the ledger reads back losslessly.
var tradeHeader = []string{
	"entry_time", "position", "entry_price", "sl_price", "tp_price",
	"exit_time", "exit_reason", "pnl", "cumulative_pnl",
	"exit_price", "quantity", "balance_after_trade",
}

var metricsHeader = []string{
	"total_trades", "win_rate", "avg_win", "avg_loss", "total_pnl",
	"profit_percentage", "max_drawdown", "sharpe_ratio",
	"best_trade", "worst_trade",
}

// CSVJournal writes the ledger and the one-row metrics table to two files.
type CSVJournal struct {
	tradesPath  string
	metricsPath string
}

func NewCSV(tradesPath, metricsPath string) *CSVJournal {
	return &CSVJournal{tradesPath: tradesPath, metricsPath: metricsPath}
}

func (j *CSVJournal) WriteTrades(trades []sim.Trade) error {
	f, err := os.Create(j.tradesPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		rec := []string{
			formatTime(t.EntryTime),
			string(t.Side),
			f64(t.EntryPrice),
			f64(t.SLPrice),
			f64(t.TPPrice),
			formatTime(t.ExitTime),
			t.ExitReason,
			f64(t.PnL),
			f64(t.CumPnL),
			f64(t.ExitPrice),
			f64(t.Quantity),
			f64(t.Balance),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) WriteMetrics(m analytics.Metrics) error {
	f, err := os.Create(j.metricsPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(metricsHeader); err != nil {
		return err
	}

	sharpe := ""
	if m.SharpeRatio != nil {
		sharpe = f64(*m.SharpeRatio)
	}
	rec := []string{
		strconv.Itoa(m.TotalTrades),
		f64(m.WinRate),
		f64(m.AvgWin),
		f64(m.AvgLoss),
		f64(m.TotalPnL),
		f64(m.ProfitPercentage),
		f64(m.MaxDrawdown),
		sharpe,
		f64(m.BestTrade),
		f64(m.WorstTrade),
	}
	if err := w.Write(rec); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) Close() error { return nil }

// ReadTrades loads a ledger CSV written by WriteTrades. Sequence numbers are
// restored from row order.
func ReadTrades(path string) ([]sim.Trade, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read ledger header: %w", err)
	}
	if len(header) != len(tradeHeader) {
		return nil, fmt.Errorf("unexpected ledger header %v", header)
	}

	var trades []sim.Trade
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		var t sim.Trade
		t.Seq = len(trades) + 1
		if t.EntryTime, err = parseTime(rec[0]); err != nil {
			return nil, err
		}
		t.Side = market.Side(rec[1])
		if t.EntryPrice, err = strconv.ParseFloat(rec[2], 64); err != nil {
			return nil, err
		}
		if t.SLPrice, err = strconv.ParseFloat(rec[3], 64); err != nil {
			return nil, err
		}
		if t.TPPrice, err = strconv.ParseFloat(rec[4], 64); err != nil {
			return nil, err
		}
		if t.ExitTime, err = parseTime(rec[5]); err != nil {
			return nil, err
		}
		t.ExitReason = rec[6]
		if t.PnL, err = strconv.ParseFloat(rec[7], 64); err != nil {
			return nil, err
		}
		if t.CumPnL, err = strconv.ParseFloat(rec[8], 64); err != nil {
			return nil, err
		}
		if t.ExitPrice, err = strconv.ParseFloat(rec[9], 64); err != nil {
			return nil, err
		}
		if t.Quantity, err = strconv.ParseFloat(rec[10], 64); err != nil {
			return nil, err
		}
		if t.Balance, err = strconv.ParseFloat(rec[11], 64); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// ReadMetrics loads the one-row metrics CSV written by WriteMetrics.
func ReadMetrics(path string) (analytics.Metrics, error) {
	var m analytics.Metrics

	f, err := os.Open(path)
	if err != nil {
		return m, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil {
		return m, fmt.Errorf("read metrics header: %w", err)
	}
	rec, err := r.Read()
	if err != nil {
		return m, fmt.Errorf("read metrics row: %w", err)
	}

	if m.TotalTrades, err = strconv.Atoi(rec[0]); err != nil {
		return m, err
	}
	if m.WinRate, err = strconv.ParseFloat(rec[1], 64); err != nil {
		return m, err
	}
	if m.AvgWin, err = strconv.ParseFloat(rec[2], 64); err != nil {
		return m, err
	}
	if m.AvgLoss, err = strconv.ParseFloat(rec[3], 64); err != nil {
		return m, err
	}
	if m.TotalPnL, err = strconv.ParseFloat(rec[4], 64); err != nil {
		return m, err
	}
	if m.ProfitPercentage, err = strconv.ParseFloat(rec[5], 64); err != nil {
		return m, err
	}
	if m.MaxDrawdown, err = strconv.ParseFloat(rec[6], 64); err != nil {
		return m, err
	}
	if rec[7] != "" {
		v, err := strconv.ParseFloat(rec[7], 64)
		if err != nil {
			return m, err
		}
		m.SharpeRatio = &v
	}
	if m.BestTrade, err = strconv.ParseFloat(rec[8], 64); err != nil {
		return m, err
	}
	if m.WorstTrade, err = strconv.ParseFloat(rec[9], 64); err != nil {
		return m, err
	}
	return m, nil
}

// f64 renders a float with the shortest representation that parses back to
// the identical value, keeping ledger round-trips lossless.
func f64(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
