package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"trailbt/backtest"
	appconfig "trailbt/config"
	cliconfig "trailbt/internal/cli/config"
)

// New builds the backtest subcommand: trailbt backtest [flags] <data-file>
func New(rc *cliconfig.RootConfig) *cobra.Command {
	var (
		balance       float64
		tpTicks       float64
		slTicks       float64
		trailing      bool
		trailingTicks float64
		tradesFile    string
		metricsFile   string
		chartDir      string
		noCharts      bool
	)

	cmd := &cobra.Command{
		Use:   "backtest <data-file>",
		Short: "Run the trend-reversal backtest on an OHLCV CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(rc.ConfigPath)
			if err != nil {
				return err
			}

			// Flags override file values only when set.
			flags := cmd.Flags()
			if flags.Changed("balance") {
				cfg.StartingBalance = balance
			}
			if flags.Changed("tp-ticks") {
				cfg.TPTicks = tpTicks
			}
			if flags.Changed("sl-ticks") {
				cfg.SLTicks = slTicks
			}
			if flags.Changed("trailing-stop") {
				cfg.TrailingStop = trailing
			}
			if flags.Changed("trailing-stop-ticks") {
				cfg.TrailingStopTicks = trailingTicks
			}
			if flags.Changed("trades-file") {
				cfg.Output.TradesFile = tradesFile
			}
			if flags.Changed("metrics-file") {
				cfg.Output.MetricsFile = metricsFile
			}
			if flags.Changed("chart-dir") {
				cfg.Output.ChartDir = chartDir
			}
			if noCharts {
				cfg.Output.Charts = false
			}

			logger, err := newLogger(rc.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			res, err := backtest.New(cfg, logger).Run(context.Background(), args[0])
			if err != nil {
				return err
			}

			// Headline metrics on stdout as JSON, matching the run contract.
			out, err := json.MarshalIndent(res.Metrics, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(out))
			return nil
		},
	}

	cmd.Flags().Float64Var(&balance, "balance", 100000, "Starting account balance")
	cmd.Flags().Float64Var(&tpTicks, "tp-ticks", 20, "Take-profit distance in ticks")
	cmd.Flags().Float64Var(&slTicks, "sl-ticks", 20, "Stop-loss distance in ticks")
	cmd.Flags().BoolVar(&trailing, "trailing-stop", false, "Enable the trailing stop")
	cmd.Flags().Float64Var(&trailingTicks, "trailing-stop-ticks", 5, "Trailing-stop distance in ticks")
	cmd.Flags().StringVar(&tradesFile, "trades-file", "trades.csv", "Trade ledger output path")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "metrics.csv", "Metrics output path")
	cmd.Flags().StringVar(&chartDir, "chart-dir", "plots", "Chart output directory")
	cmd.Flags().BoolVar(&noCharts, "no-charts", false, "Skip chart rendering")

	return cmd
}

func resolveConfig(path string) (*appconfig.Config, error) {
	if path == "" {
		return appconfig.Default(), nil
	}
	return appconfig.LoadFromFile(path)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("bad log level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
