package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete parameter set for one backtest run. It is resolved
// once (defaults, then file, then flag overrides) and never mutated after
// the run starts.
type Config struct {
	StartingBalance    float64 `json:"starting_balance" yaml:"starting_balance"`
	RiskPercentage     float64 `json:"risk_percentage" yaml:"risk_percentage"`
	TickSize           float64 `json:"tick_size" yaml:"tick_size"`
	TickValue          float64 `json:"tick_value" yaml:"tick_value"`
	CommissionPerTrade float64 `json:"commission_per_trade" yaml:"commission_per_trade"`
	SlippageTicks      float64 `json:"slippage_ticks" yaml:"slippage_ticks"`
	TPTicks            float64 `json:"tp_ticks" yaml:"tp_ticks"`
	SLTicks            float64 `json:"sl_ticks" yaml:"sl_ticks"`
	TrailingStop       bool    `json:"trailing_stop" yaml:"trailing_stop"`
	TrailingStopTicks  float64 `json:"trailing_stop_ticks" yaml:"trailing_stop_ticks"`
	ContractMargin     float64 `json:"contract_margin" yaml:"contract_margin"`

	EMASpan int `json:"ema_span" yaml:"ema_span"`

	Output OutputConfig `json:"output" yaml:"output"`
}

// OutputConfig controls where run artifacts land.
type OutputConfig struct {
	TradesFile     string `json:"trades_file" yaml:"trades_file"`
	MetricsFile    string `json:"metrics_file" yaml:"metrics_file"`
	ChartDir       string `json:"chart_dir" yaml:"chart_dir"`
	Charts         bool   `json:"charts" yaml:"charts"`
	MonthsPerChart int    `json:"months_per_chart" yaml:"months_per_chart"`

	// Journal selects the ledger sink: "csv" or "sqlite".
	Journal string `json:"journal" yaml:"journal"`
	DBPath  string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// Default returns the canonical run configuration. Keys absent from a config
// file keep these values.
func Default() *Config {
	return &Config{
		StartingBalance:    100000,
		RiskPercentage:     0.01,
		TickSize:           0.25,
		TickValue:          5,
		CommissionPerTrade: 5,
		SlippageTicks:      1,
		TPTicks:            20,
		SLTicks:            20,
		TrailingStop:       false,
		TrailingStopTicks:  5,
		ContractMargin:     13000,
		EMASpan:            9,
		Output: OutputConfig{
			TradesFile:     "trades.csv",
			MetricsFile:    "metrics.csv",
			ChartDir:       "plots",
			Charts:         true,
			MonthsPerChart: 3,
			Journal:        "csv",
			DBPath:         "trailbt.sqlite",
		},
	}
}

// LoadFromFile loads a configuration from a YAML or JSON file on top of the
// defaults, so partial files are fine.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes the configuration as YAML (.yaml/.yml) or indented JSON.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the output plumbing. Simulation parameters are deliberately
// left unchecked: absent keys already took defaults, and the run contract
// accepts whatever tick geometry the caller supplies.
func (c *Config) Validate() error {
	switch c.Output.Journal {
	case "csv", "sqlite":
	default:
		return fmt.Errorf("output.journal must be 'csv' or 'sqlite', got %q", c.Output.Journal)
	}
	if c.Output.Journal == "sqlite" && c.Output.DBPath == "" {
		return fmt.Errorf("output.db_path required for sqlite journal")
	}
	if c.Output.TradesFile == "" || c.Output.MetricsFile == "" {
		return fmt.Errorf("output.trades_file and output.metrics_file are required")
	}
	if c.Output.Charts && c.Output.MonthsPerChart <= 0 {
		return fmt.Errorf("output.months_per_chart must be positive")
	}
	if c.EMASpan <= 0 {
		return fmt.Errorf("ema_span must be positive")
	}
	return nil
}
