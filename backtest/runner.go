// Package backtest wires the pipeline: load bars, compute the EMA, detect
// signals, simulate trades, analyze performance, then persist the ledger,
// metrics and charts.
package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trailbt/analytics"
	"trailbt/chart"
	"trailbt/config"
	"trailbt/indicators"
	"trailbt/internal/id"
	"trailbt/journal"
	"trailbt/market"
	"trailbt/sim"
	"trailbt/signal"
)

// Result is the in-memory output of one run; the same data is also written
// to the configured artifacts.
type Result struct {
	RunID        string
	Trades       []sim.Trade
	Metrics      analytics.Metrics
	FinalBalance float64
	ChartFiles   []string
}

// Runner executes one backtest per call. Stages run once, in order, with no
// retries: any stage failure aborts the run. Callers needing a time bound
// wrap the context.
type Runner struct {
	cfg *config.Config
	log *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, log: logger}
}

// Run backtests the OHLCV file at dataPath and returns the trade ledger and
// metrics, writing the ledger, metrics and chart artifacts as a side effect.
func (r *Runner) Run(ctx context.Context, dataPath string) (*Result, error) {
	runID := id.NewRunID()
	log := r.log.With(zap.String("run_id", runID))

	bars, err := market.Load(dataPath)
	if err != nil {
		return nil, fmt.Errorf("load data: %w", err)
	}
	log.Info("loaded bars", zap.String("file", dataPath), zap.Int("bars", len(bars)))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	indicators.Apply(bars, r.cfg.EMASpan)
	signal.Annotate(bars)

	signals := 0
	for _, b := range bars {
		if b.Signal != 0 {
			signals++
		}
	}
	log.Info("annotated series", zap.Int("ema_span", r.cfg.EMASpan), zap.Int("signals", signals))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	simulator := sim.New(r.cfg)
	trades := simulator.Run(bars)
	metrics := analytics.Analyze(trades, r.cfg.StartingBalance)
	log.Info("simulation complete",
		zap.Int("trades", len(trades)),
		zap.Float64("final_balance", simulator.Balance()),
		zap.Float64("total_pnl", metrics.TotalPnL),
	)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := r.persist(runID, dataPath, trades, metrics, simulator.Balance()); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:        runID,
		Trades:       trades,
		Metrics:      metrics,
		FinalBalance: simulator.Balance(),
	}

	if r.cfg.Output.Charts {
		renderer := chart.NewRenderer(r.cfg.Output.ChartDir, r.cfg.Output.MonthsPerChart, r.cfg.EMASpan)
		files, err := renderer.Render(bars, trades)
		if err != nil {
			return nil, fmt.Errorf("render charts: %w", err)
		}
		log.Info("charts rendered", zap.Int("files", len(files)), zap.String("dir", r.cfg.Output.ChartDir))
		res.ChartFiles = files
	}

	return res, nil
}

// persist writes the CSV artifacts and, when configured, mirrors the run
// into the SQLite journal.
func (r *Runner) persist(runID, dataset string, trades []sim.Trade, metrics analytics.Metrics, finalBalance float64) error {
	csvJournal := journal.NewCSV(r.cfg.Output.TradesFile, r.cfg.Output.MetricsFile)
	if err := csvJournal.WriteTrades(trades); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := csvJournal.WriteMetrics(metrics); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}

	if r.cfg.Output.Journal != "sqlite" {
		return nil
	}

	db, err := journal.NewSQLite(r.cfg.Output.DBPath, runID)
	if err != nil {
		return fmt.Errorf("open sqlite journal: %w", err)
	}
	defer db.Close()

	if err := db.WriteTrades(trades); err != nil {
		return fmt.Errorf("journal ledger: %w", err)
	}

	cfgJSON, err := json.Marshal(r.cfg)
	if err != nil {
		return err
	}
	run := journal.Run{
		ID:           runID,
		Created:      time.Now().UTC(),
		Dataset:      dataset,
		Config:       cfgJSON,
		TotalTrades:  metrics.TotalTrades,
		TotalPnL:     metrics.TotalPnL,
		WinRate:      metrics.WinRate,
		MaxDrawdown:  metrics.MaxDrawdown,
		Sharpe:       metrics.SharpeRatio,
		FinalBalance: finalBalance,
	}
	if err := db.RecordRun(run); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}
