package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailbt/config"
	"trailbt/indicators"
	"trailbt/market"
	"trailbt/signal"
)

func minuteBars(t *testing.T, rows [][4]float64) []market.Bar {
	t.Helper()
	base := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	bars := make([]market.Bar, len(rows))
	for i, r := range rows {
		bars[i] = market.Bar{
			Time: base.Add(time.Duration(i) * time.Minute),
			Open: r[0], High: r[1], Low: r[2], Close: r[3],
			Volume: 100,
		}
	}
	return bars
}

// annotate runs the real indicator and signal stages over the bars.
func annotate(bars []market.Bar, span int) {
	indicators.Apply(bars, span)
	signal.Annotate(bars)
}

// reversalBars builds a seed bar, a 3-bar bearish run under the EMA, and a
// recovery close back above it. Because the EMA seeds at the first close, the
// earliest bar that can complete the pattern is index 4; the long signal
// fires there and the entry is that bar's close (103).
func reversalBars(t *testing.T) []market.Bar {
	bars := minuteBars(t, [][4]float64{
		{106, 106.5, 103.5, 104},
		{104, 104.2, 101.5, 102},
		{102, 102.3, 99.5, 100},
		{100, 100.2, 97.5, 98},
		{98, 103.5, 97.9, 103},
	})
	annotate(bars, 9)
	return bars
}

func TestLongOpensOnReversalSignal(t *testing.T) {
	bars := reversalBars(t)
	require.Equal(t, +1, bars[4].Signal, "fixture must produce a long signal")

	s := New(config.Default())
	trades := s.Run(bars)

	assert.Empty(t, trades, "no exit bar yet, position still open")
	require.NotNil(t, s.pos)
	assert.Equal(t, market.Long, s.pos.side)
	assert.Equal(t, bars[4].Close, s.pos.entryPrice)
	assert.Equal(t, bars[4].Time, s.pos.entryTime)
	assert.Equal(t, 1.0, s.pos.quantity)
}

func TestTakeProfitExitExactPrice(t *testing.T) {
	bars := reversalBars(t)
	entry := bars[4].Close
	tp := entry + 20*0.25 // tp_ticks * tick_size = +5

	// A later bar trades through the TP level.
	exitBar := market.Bar{
		Time: bars[4].Time.Add(time.Minute),
		Open: entry, High: tp + 2, Low: entry - 0.5, Close: tp + 1,
	}
	bars = append(bars, exitBar)

	cfg := config.Default()
	s := New(cfg)
	trades := s.Run(bars)

	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, ExitTP, tr.ExitReason)
	assert.Equal(t, tp, tr.ExitPrice)
	assert.Equal(t, exitBar.Time, tr.ExitTime)
	assert.Equal(t, market.Long, tr.Side)

	// 20 ticks * $5 minus $5 commission and 2x1 tick slippage ($10).
	wantPnL := 20*5.0 - (5.0 + 1*5.0*2)
	assert.InDelta(t, wantPnL, tr.PnL, 1e-9)
	assert.InDelta(t, cfg.StartingBalance+wantPnL, tr.Balance, 1e-9)
}

func TestStopLossExitExactPrice(t *testing.T) {
	bars := reversalBars(t)
	entry := bars[4].Close
	sl := entry - 20*0.25

	bars = append(bars, market.Bar{
		Time: bars[4].Time.Add(time.Minute),
		Open: entry, High: entry + 0.5, Low: sl - 3, Close: sl - 1,
	})

	s := New(config.Default())
	trades := s.Run(bars)

	require.Len(t, trades, 1)
	assert.Equal(t, ExitSL, trades[0].ExitReason)
	assert.Equal(t, sl, trades[0].ExitPrice)
}

func TestTPWinsWhenBothHitSameBar(t *testing.T) {
	bars := reversalBars(t)
	entry := bars[4].Close
	tp := entry + 5
	sl := entry - 5

	// Wide bar sweeps both thresholds; TP takes precedence.
	bars = append(bars, market.Bar{
		Time: bars[4].Time.Add(time.Minute),
		Open: entry, High: tp + 1, Low: sl - 1, Close: entry,
	})

	s := New(config.Default())
	trades := s.Run(bars)

	require.Len(t, trades, 1)
	assert.Equal(t, ExitTP, trades[0].ExitReason)
	assert.Equal(t, tp, trades[0].ExitPrice)
}

func TestShortSideMirrored(t *testing.T) {
	bars := minuteBars(t, [][4]float64{
		{104, 104.5, 99.5, 100},
		{101, 103.2, 100.8, 103},
		{103, 104.7, 102.8, 104.5},
		{104.5, 105.7, 104.2, 105.5},
		{105.5, 105.8, 100.5, 101},
	})
	annotate(bars, 9)
	require.Equal(t, -1, bars[4].Signal)

	entry := bars[4].Close
	tp := entry - 5
	bars = append(bars, market.Bar{
		Time: bars[4].Time.Add(time.Minute),
		Open: entry, High: entry + 0.2, Low: tp - 1, Close: tp,
	})

	s := New(config.Default())
	trades := s.Run(bars)

	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, market.Short, tr.Side)
	assert.Equal(t, ExitTP, tr.ExitReason)
	assert.Equal(t, tp, tr.ExitPrice)
	assert.True(t, tr.PnL > 0)
}

func TestTrailingStopRatchet(t *testing.T) {
	cfg := config.Default()
	cfg.TrailingStop = true
	cfg.TrailingStopTicks = 4 // trail distance = 1.0
	cfg.TPTicks = 400         // keep TP out of reach

	bars := reversalBars(t)
	entry := bars[4].Close // 103
	t0 := bars[4].Time
	bars = append(bars,
		market.Bar{Time: t0.Add(1 * time.Minute), Open: entry, High: 104, Low: 103.2, Close: 103.8},
		market.Bar{Time: t0.Add(2 * time.Minute), Open: 103.8, High: 106, Low: 105.2, Close: 105.8},
		market.Bar{Time: t0.Add(3 * time.Minute), Open: 105.8, High: 105.9, Low: 104, Close: 104.5},
	)

	s := New(cfg)
	trades := s.Run(bars)

	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, ExitSL, tr.ExitReason)
	// Favorable excursion peaked at 106, so the stop ratcheted to 105 and
	// the retrace bar filled there, locking in a profit.
	assert.InDelta(t, entry+2, tr.ExitPrice, 1e-9)
	assert.InDelta(t, entry+2, tr.SLPrice, 1e-9)
	assert.True(t, tr.PnL > 0, "trailing exit above entry should profit")
}

func TestTrailingStopNeverWidens(t *testing.T) {
	cfg := config.Default()
	cfg.TrailingStop = true
	cfg.TrailingStopTicks = 4 // trail distance = 1.0
	cfg.TPTicks = 400

	bars := reversalBars(t)
	entry := bars[4].Close // 103
	t0 := bars[4].Time

	// Price spikes to 107 then drifts lower. The excursion tracker keeps
	// the spike high, so the stop holds at 106 instead of following the
	// falling highs back down.
	bars = append(bars,
		market.Bar{Time: t0.Add(1 * time.Minute), Open: entry, High: 107, Low: 106.5, Close: 106.8},
		market.Bar{Time: t0.Add(2 * time.Minute), Open: 106.8, High: 106.9, Low: 106.2, Close: 106.4},
		market.Bar{Time: t0.Add(3 * time.Minute), Open: 106.4, High: 106.5, Low: 105.5, Close: 105.8},
	)

	s := New(cfg)
	trades := s.Run(bars)

	require.Len(t, trades, 1)
	assert.Equal(t, ExitSL, trades[0].ExitReason)
	assert.InDelta(t, entry+3, trades[0].ExitPrice, 1e-9)
}

// A bar that exits a trade can also carry a signal; the exit settles first
// and the fresh entry opens on the same bar's close.
func TestExitThenFreshEntrySameBar(t *testing.T) {
	cfg := config.Default()
	base := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

	bars := []market.Bar{
		{Time: base, Open: 99, High: 100.5, Low: 98.5, Close: 100, Signal: +1},
		{Time: base.Add(time.Minute), Open: 100, High: 106, Low: 99.5, Close: 100, Signal: -1},
		{Time: base.Add(2 * time.Minute), Open: 100, High: 105.5, Low: 99.9, Close: 105},
	}

	s := New(cfg)
	trades := s.Run(bars)

	require.Len(t, trades, 2)
	assert.Equal(t, ExitTP, trades[0].ExitReason) // long out at 105
	assert.Equal(t, market.Short, trades[1].Side)
	assert.Equal(t, bars[1].Time, trades[1].EntryTime)
	assert.Equal(t, ExitSL, trades[1].ExitReason) // short stopped at 105
}

func TestBalanceInvariant(t *testing.T) {
	cfg := config.Default()
	base := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

	// Hand-annotated signals: a winning long then a losing short.
	bars := []market.Bar{
		{Time: base, Open: 99, High: 100.5, Low: 98.5, Close: 100, Signal: +1},
		{Time: base.Add(time.Minute), Open: 100, High: 106, Low: 99.5, Close: 104},
		{Time: base.Add(2 * time.Minute), Open: 104, High: 104.5, Low: 103.5, Close: 104, Signal: -1},
		{Time: base.Add(3 * time.Minute), Open: 104, High: 110, Low: 103.9, Close: 109.5},
	}

	s := New(cfg)
	trades := s.Run(bars)
	require.Len(t, trades, 2)

	sum := 0.0
	for _, tr := range trades {
		sum += tr.PnL
	}
	final := cfg.StartingBalance + sum
	assert.InDelta(t, final, s.Balance(), 1e-9)
	assert.InDelta(t, final, trades[len(trades)-1].Balance, 1e-9)
	assert.InDelta(t, sum, trades[len(trades)-1].CumPnL, 1e-9)
}

func TestNoEntryWhileOpen(t *testing.T) {
	bars := reversalBars(t)
	entry := bars[4].Close

	// Hold the position through a bar that carries a fresh signal; nothing
	// reopens or stacks.
	bars = append(bars, market.Bar{Time: bars[4].Time.Add(time.Minute),
		Open: entry, High: entry + 1, Low: entry - 1, Close: entry, Signal: +1})

	s := New(config.Default())
	trades := s.Run(bars)

	assert.Empty(t, trades)
	require.NotNil(t, s.pos)
	assert.Equal(t, bars[4].Time, s.pos.entryTime, "existing position kept")
}

func TestQuantityAlwaysOneContract(t *testing.T) {
	cfg := config.Default()
	cfg.StartingBalance = 10_000_000 // margin/risk caps far above 1

	bars := reversalBars(t)
	entry := bars[4].Close
	bars = append(bars, market.Bar{Time: bars[4].Time.Add(time.Minute),
		Open: entry, High: entry + 6, Low: entry - 0.1, Close: entry + 5.5})

	trades := New(cfg).Run(bars)
	require.Len(t, trades, 1)
	assert.Equal(t, 1.0, trades[0].Quantity)
}

func TestFewerThanFourBarsNoTrades(t *testing.T) {
	bars := minuteBars(t, [][4]float64{
		{102, 102.5, 99.5, 100},
		{100, 100.5, 98.5, 99},
		{99, 99.5, 97.5, 98},
	})
	annotate(bars, 9)

	s := New(config.Default())
	assert.Empty(t, s.Run(bars))
	assert.Equal(t, config.Default().StartingBalance, s.Balance())
}

func TestDeterminism(t *testing.T) {
	build := func() []market.Bar {
		bars := reversalBars(t)
		entry := bars[4].Close
		return append(bars, market.Bar{Time: bars[4].Time.Add(time.Minute),
			Open: entry, High: entry + 6, Low: entry - 0.1, Close: entry + 5})
	}

	a := New(config.Default()).Run(build())
	b := New(config.Default()).Run(build())
	assert.Equal(t, a, b)
}

func TestSizingCaps(t *testing.T) {
	assert.Equal(t, 7.0, maxContractsMargin(100000, 13000))
	assert.Equal(t, 0.0, maxContractsMargin(100000, 0))
	// 1% of 100k = $1000 risk; 20 ticks * $5 = $100 per contract.
	assert.Equal(t, 10.0, maxContractsRisk(100000, 0.01, 20, 5))
	assert.Equal(t, 0.0, maxContractsRisk(100000, 0.01, 0, 5))
}
