package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"nocscan/internal/platform/store/pg"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// sqlExecer is the subset of *sql.DB and *sql.Tx the sqlite adapter calls
type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// liteQuerier runs statements against a sqlite db or tx and traces each one
type liteQuerier struct {
	q sqlExecer
	span
}

func (a liteQuerier) Exec(ctx context.Context, query string, args ...any) (CommandTag, error) {
	start := time.Now()
	res, err := a.q.ExecContext(ctx, query, args...)
	a.emit(ctx, query, args, start, err)
	if err != nil {
		return nil, err
	}
	n, _ := res.RowsAffected()
	return liteTag{verb: verbOf(query), n: n}, nil
}

func (a liteQuerier) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := a.q.QueryContext(ctx, query, args...)
	a.emit(ctx, query, args, start, err)
	if err != nil {
		return nil, err
	}
	return &liteRows{r: rs}, nil
}

func (a liteQuerier) QueryRow(ctx context.Context, query string, args ...any) Row {
	start := time.Now()
	r := a.q.QueryRowContext(ctx, query, args...)
	return tracedRow{r: r, after: func(scanErr error) {
		a.emit(ctx, query, args, start, scanErr)
	}}
}

// liteAdapter implements TxRunner over modernc sqlite
type liteAdapter struct {
	liteQuerier
	db *sql.DB
}

func newLiteAdapter(cfg SQLiteConfig, tracer pg.QueryTracer) (*liteAdapter, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite: empty path")
	}
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer keeps sqlite from returning SQLITE_BUSY under worker fan-out
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds())); err != nil {
		_ = db.Close()
		return nil, err
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &liteAdapter{liteQuerier: liteQuerier{q: db, span: newSpan(tracer, -1)}, db: db}, nil
}

func (a *liteAdapter) Ping(ctx context.Context) error {
	if a == nil || a.db == nil {
		return errors.New("sqlite: nil adapter")
	}
	return a.db.PingContext(ctx)
}

func (a *liteAdapter) Close() error { return a.db.Close() }

func (a *liteAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(liteQuerier{q: tx, span: a.span}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type liteRows struct{ r *sql.Rows }

func (x *liteRows) Next() bool            { return x.r.Next() }
func (x *liteRows) Scan(dst ...any) error { return x.r.Scan(dst...) }
func (x *liteRows) Err() error            { return x.r.Err() }
func (x *liteRows) Close()                { _ = x.r.Close() }
func (x *liteRows) Columns() []string {
	cols, _ := x.r.Columns()
	return cols
}

// liteTag mimics the pg command tag text ("UPDATE 1") so callers can log either
type liteTag struct {
	verb string
	n    int64
}

func (t liteTag) String() string      { return fmt.Sprintf("%s %d", t.verb, t.n) }
func (t liteTag) RowsAffected() int64 { return t.n }

func verbOf(query string) string {
	f := strings.Fields(query)
	if len(f) == 0 {
		return ""
	}
	return strings.ToUpper(f[0])
}
