// Package journal persists every trading decision to a local SQLite
// database for post-hoc review.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "github.com/mattn/go-sqlite3"

	"trade_bot/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	cycle_at       INTEGER NOT NULL,
	symbol         TEXT    NOT NULL,
	recommendation TEXT    NOT NULL,
	side           TEXT    NOT NULL,
	requested_qty  TEXT    NOT NULL,
	submitted_qty  TEXT    NOT NULL,
	blocked        INTEGER NOT NULL DEFAULT 0,
	reason         TEXT    NOT NULL DEFAULT '',
	order_id       TEXT    NOT NULL DEFAULT '',
	status         TEXT    NOT NULL DEFAULT '',
	dry_run        INTEGER NOT NULL DEFAULT 0,
	error          TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_decisions_symbol ON decisions(symbol, cycle_at);
`

// Entry is one recorded decision for one symbol in one cycle.
type Entry struct {
	CycleAt        time.Time
	Symbol         string
	Recommendation string
	Side           core.Side
	RequestedQty   decimal.Decimal
	SubmittedQty   decimal.Decimal
	Blocked        bool
	Reason         string
	OrderID        string
	Status         string
	DryRun         bool
	Error          string
}

// Journal is an append-only decision log backed by SQLite.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Enable WAL mode so a crash mid-cycle cannot corrupt the log
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Record appends a decision entry.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	query := `INSERT INTO decisions
		(cycle_at, symbol, recommendation, side, requested_qty, submitted_qty,
		 blocked, reason, order_id, status, dry_run, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := j.db.ExecContext(ctx, query,
		e.CycleAt.UnixNano(), e.Symbol, e.Recommendation, e.Side.String(),
		e.RequestedQty.String(), e.SubmittedQty.String(),
		boolToInt(e.Blocked), e.Reason, e.OrderID, e.Status,
		boolToInt(e.DryRun), e.Error)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	return nil
}

// Recent returns the latest entries for a symbol, newest first. An empty
// symbol matches all symbols.
func (j *Journal) Recent(ctx context.Context, symbol string, limit int) ([]Entry, error) {
	query := `SELECT cycle_at, symbol, recommendation, side, requested_qty,
		submitted_qty, blocked, reason, order_id, status, dry_run, error
		FROM decisions WHERE (? = '' OR symbol = ?)
		ORDER BY cycle_at DESC, id DESC LIMIT ?`

	rows, err := j.db.QueryContext(ctx, query, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                  Entry
			cycleNanos         int64
			side               string
			requested, submitted string
			blocked, dryRun    int
		)
		if err := rows.Scan(&cycleNanos, &e.Symbol, &e.Recommendation, &side,
			&requested, &submitted, &blocked, &e.Reason, &e.OrderID,
			&e.Status, &dryRun, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		e.CycleAt = time.Unix(0, cycleNanos)
		e.Side = parseSide(side)
		if e.RequestedQty, err = decimal.NewFromString(requested); err != nil {
			return nil, fmt.Errorf("corrupt requested_qty %q: %w", requested, err)
		}
		if e.SubmittedQty, err = decimal.NewFromString(submitted); err != nil {
			return nil, fmt.Errorf("corrupt submitted_qty %q: %w", submitted, err)
		}
		e.Blocked = blocked != 0
		e.DryRun = dryRun != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseSide(s string) core.Side {
	switch s {
	case "BUY":
		return core.SideBuy
	case "SELL":
		return core.SideSell
	default:
		return core.SideNothing
	}
}
