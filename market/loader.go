package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/xyproto/unzip"
)

// ErrMissingColumn is returned when the input file lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// ErrBadTimestamp is returned when a timestamp cell cannot be parsed.
var ErrBadTimestamp = errors.New("unparseable timestamp")

// Column names accepted for the timestamp, checked in order.
var timestampColumns = []string{"date_time", "datetime", "timestamp", "time"}

var requiredColumns = []string{"open", "high", "low", "close", "volume"}

// Timestamp layouts tried in order. Zoned layouts are accepted and then
// flattened to naive wall-clock time.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Load reads an OHLCV CSV file and returns its bars sorted ascending by
// timestamp. Plain .csv is read directly; .xz and .zip inputs are
// decompressed transparently. No resampling or gap filling is done.
func Load(path string) ([]Bar, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xz":
		return loadXZ(path)
	case ".zip":
		return loadZip(path)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open data file: %w", err)
		}
		defer f.Close()
		return ReadBars(f)
	}
}

func loadXZ(path string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	r, err := xz.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open xz stream: %w", err)
	}
	return ReadBars(r)
}

func loadZip(path string) ([]Bar, error) {
	dir, err := os.MkdirTemp("", "trailbt-unzip-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	if err := unzip.Extract(path, dir); err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}

	var csvPath string
	err = filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if csvPath == "" && !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".csv") {
			csvPath = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if csvPath == "" {
		return nil, fmt.Errorf("archive %s contains no CSV file", path)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadBars(f)
}

// ReadBars parses OHLCV CSV content from r. The header must contain a
// timestamp column (date_time, datetime, timestamp or time) and the
// open/high/low/close/volume columns; otherwise ErrMissingColumn is returned.
func ReadBars(r io.Reader) ([]Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	tsCol := -1
	for _, name := range timestampColumns {
		if i, ok := cols[name]; ok {
			tsCol = i
			break
		}
	}
	if tsCol < 0 {
		return nil, fmt.Errorf("%w: no timestamp column (want one of %s)",
			ErrMissingColumn, strings.Join(timestampColumns, ", "))
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	var bars []Bar
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line++

		ts, err := parseNaiveTime(rec[tsCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		var b Bar
		b.Time = ts
		if b.Open, err = field(rec, cols, "open", line); err != nil {
			return nil, err
		}
		if b.High, err = field(rec, cols, "high", line); err != nil {
			return nil, err
		}
		if b.Low, err = field(rec, cols, "low", line); err != nil {
			return nil, err
		}
		if b.Close, err = field(rec, cols, "close", line); err != nil {
			return nil, err
		}
		if b.Volume, err = field(rec, cols, "volume", line); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func field(rec []string, cols map[string]int, name string, line int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[cols[name]]), 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: bad %s value %q: %w", line, name, rec[cols[name]], err)
	}
	return v, nil
}

// parseNaiveTime parses a timestamp and drops any timezone information,
// keeping the wall-clock reading.
func parseNaiveTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		y, mo, d := t.Date()
		h, mi, sec := t.Clock()
		return time.Date(y, mo, d, h, mi, sec, t.Nanosecond(), time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
}
