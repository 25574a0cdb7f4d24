package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"trailbt/analytics"
	"trailbt/sim"
)

// SQLiteJournal stores ledgers keyed by run ID, so one database accumulates
// the history of many backtests.
type SQLiteJournal struct {
	db    *sql.DB
	runID string
}

func NewSQLite(path, runID string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteJournal{db: db, runID: runID}, nil
}

func (j *SQLiteJournal) WriteTrades(trades []sim.Trade) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO trades
		(run_id, seq, entry_time, exit_time, position, entry_price, exit_price,
		 quantity, sl_price, tp_price, exit_reason, pnl, cumulative_pnl, balance_after_trade)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, t := range trades {
		_, err := stmt.Exec(
			j.runID, t.Seq, t.EntryTime, t.ExitTime, string(t.Side),
			t.EntryPrice, t.ExitPrice, t.Quantity, t.SLPrice, t.TPPrice,
			t.ExitReason, t.PnL, t.CumPnL, t.Balance,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert trade %d: %w", t.Seq, err)
		}
	}
	return tx.Commit()
}

// WriteMetrics is a no-op for SQLite; headline metrics land on the run row
// via RecordRun.
func (j *SQLiteJournal) WriteMetrics(m analytics.Metrics) error { return nil }

// RecordRun stores the per-run summary row.
func (j *SQLiteJournal) RecordRun(r Run) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, created, dataset, config, total_trades, total_pnl,
		 win_rate, max_drawdown, sharpe_ratio, final_balance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Created, r.Dataset, string(r.Config), r.TotalTrades,
		r.TotalPnL, r.WinRate, r.MaxDrawdown, r.Sharpe, r.FinalBalance,
	)
	return err
}

// ListTrades returns the ledger stored for a run, ordered by sequence.
func (j *SQLiteJournal) ListTrades(runID string) ([]sim.Trade, error) {
	rows, err := j.db.Query(`
		SELECT seq, entry_time, exit_time, position, entry_price, exit_price,
		       quantity, sl_price, tp_price, exit_reason, pnl, cumulative_pnl,
		       balance_after_trade
		FROM trades WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []sim.Trade
	for rows.Next() {
		var t sim.Trade
		var side string
		err := rows.Scan(&t.Seq, &t.EntryTime, &t.ExitTime, &side,
			&t.EntryPrice, &t.ExitPrice, &t.Quantity, &t.SLPrice, &t.TPPrice,
			&t.ExitReason, &t.PnL, &t.CumPnL, &t.Balance)
		if err != nil {
			return nil, err
		}
		t.Side = sideFromString(side)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (j *SQLiteJournal) Close() error { return j.db.Close() }
