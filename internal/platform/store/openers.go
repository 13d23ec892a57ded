package store

import (
	"context"
	"fmt"
	"time"

	chx "nocscan/internal/platform/store/ch"
	"nocscan/internal/platform/store/pg"
)

// openPG opens pg and wraps it with our sql adapter
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, tracer, nil)
	if err != nil {
		return nil, err
	}

	attempts := cfg.PG.ConnectRetries
	if attempts <= 0 {
		attempts = 20
	}
	timeout := cfg.PG.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	// ping the pool directly so boot retries do not show up as traced SQL
	if err := pingWithBackoff(ctx, attempts, timeout, p.Pool.Ping); err != nil {
		p.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return newPGAdapter(p), nil
}

// openLite opens the sqlite file; sqlite is local so a single ping is enough
func openLite(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.Lite.LogSQL {
		tracer = pg.Tracer(s.Log.With().Str("driver", "sqlite").Logger())
	}
	a, err := newLiteAdapter(cfg.Lite, tracer)
	if err != nil {
		return nil, err
	}
	if err := a.Ping(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return a, nil
}

func openCH(ctx context.Context, cfg Config, _ *Store) (Clickhouse, error) {
	role := cfg.CH.Role
	if role == "" {
		role = cfg.AppName
	}
	c, err := chx.Open(ctx, chx.Config{URL: cfg.CH.URL, Role: role})
	if err != nil {
		return nil, err
	}
	return newCHAdapter(c), nil
}

// pingWithBackoff retries ping with exponential backoff until it succeeds,
// attempts run out, or ctx ends
func pingWithBackoff(ctx context.Context, attempts int, timeout time.Duration, ping func(context.Context) error) error {
	const (
		backoffStart   = 150 * time.Millisecond
		backoffCeiling = 2 * time.Second
	)

	var lastErr error
	backoff := backoffStart
	for i := 0; i < attempts; i++ {
		toCtx, cancel := context.WithTimeout(ctx, timeout)
		lastErr = ping(toCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, backoffCeiling)
	}
	return fmt.Errorf("ping failed after %d attempts: %w", attempts, lastErr)
}
