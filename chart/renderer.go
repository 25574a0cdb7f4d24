// Package chart renders windowed candlestick reports for a backtest run:
// one standalone HTML file per calendar window, overlaying price, the EMA
// line, and entry/exit markers for trades entered in that window.
package chart

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"trailbt/market"
	"trailbt/sim"
)

const (
	fileTimeLayout = "2006-01-02"
	axisTimeLayout = "2006-01-02 15:04"
)

// Renderer partitions the bar range into fixed-width calendar windows and
// writes one chart per window. Purely a reporting side effect; it never
// influences simulation results.
type Renderer struct {
	Dir             string
	MonthsPerWindow int
	EMASpan         int
}

func NewRenderer(dir string, monthsPerWindow, emaSpan int) *Renderer {
	return &Renderer{Dir: dir, MonthsPerWindow: monthsPerWindow, EMASpan: emaSpan}
}

// Render writes the chart files and returns their paths in order. Output
// names are zero-padded by window index. An empty bar series renders
// nothing.
func (r *Renderer) Render(bars []market.Bar, trades []sim.Trade) ([]string, error) {
	if len(bars) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(r.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create chart dir: %w", err)
	}

	start := bars[0].Time
	end := bars[len(bars)-1].Time

	var files []string
	idx := 1
	for cur := start; cur.Before(end); cur = cur.AddDate(0, r.MonthsPerWindow, 0) {
		next := cur.AddDate(0, r.MonthsPerWindow, 0)

		var wbars []market.Bar
		for _, b := range bars {
			if !b.Time.Before(cur) && b.Time.Before(next) {
				wbars = append(wbars, b)
			}
		}
		var wtrades []sim.Trade
		for _, t := range trades {
			if !t.EntryTime.Before(cur) && t.EntryTime.Before(next) {
				wtrades = append(wtrades, t)
			}
		}

		path := filepath.Join(r.Dir, fmt.Sprintf("strategy_candles_%03d.html", idx))
		title := fmt.Sprintf("Strategy Backtest (%s to %s)",
			cur.Format(fileTimeLayout), next.Format(fileTimeLayout))
		if err := r.renderWindow(path, title, wbars, wtrades); err != nil {
			return files, err
		}
		files = append(files, path)
		idx++
	}
	return files, nil
}

func (r *Renderer) renderWindow(path, title string, bars []market.Bar, trades []sim.Trade) error {
	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time", SplitNumber: 20}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Price", Scale: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Start: 0, End: 100}),
	)

	x := make([]string, len(bars))
	candles := make([]opts.KlineData, len(bars))
	emaLine := make([]opts.LineData, len(bars))
	for i, b := range bars {
		x[i] = b.Time.Format(axisTimeLayout)
		candles[i] = opts.KlineData{Value: [4]float64{b.Open, b.Close, b.Low, b.High}}
		emaLine[i] = opts.LineData{Value: b.EMA}
	}

	kline.SetXAxis(x).AddSeries("Candles", candles,
		charts.WithMarkPointNameCoordItemOpts(tradeMarkers(trades)...),
	)

	line := charts.NewLine()
	line.SetXAxis(x).AddSeries(fmt.Sprintf("EMA%d", r.EMASpan), emaLine,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}),
	)
	kline.Overlap(line)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return kline.Render(f)
}

// tradeMarkers builds entry and exit markpoints: entries as pins colored by
// side, exits as smaller blue circles.
func tradeMarkers(trades []sim.Trade) []opts.MarkPointNameCoordItem {
	items := make([]opts.MarkPointNameCoordItem, 0, 2*len(trades))
	for _, t := range trades {
		entryColor := "#2e7d32"
		if t.Side == market.Short {
			entryColor = "#c62828"
		}
		items = append(items, opts.MarkPointNameCoordItem{
			Name:       fmt.Sprintf("entry (%s)", t.Side),
			Coordinate: []interface{}{t.EntryTime.Format(axisTimeLayout), t.EntryPrice},
			Symbol:     "pin",
			SymbolSize: 24,
			ItemStyle:  &opts.ItemStyle{Color: entryColor},
		})
		items = append(items, opts.MarkPointNameCoordItem{
			Name:       fmt.Sprintf("exit (%s)", t.ExitReason),
			Coordinate: []interface{}{t.ExitTime.Format(axisTimeLayout), t.ExitPrice},
			Symbol:     "circle",
			SymbolSize: 12,
			ItemStyle:  &opts.ItemStyle{Color: "#1565c0"},
		})
	}
	return items
}
