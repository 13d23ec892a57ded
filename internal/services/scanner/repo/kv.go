// Package repo provides the scanner persistence backends
package repo

import (
	"context"
	"strings"
	"sync"

	perr "nocscan/internal/platform/errors"
	"nocscan/internal/platform/store"
	"nocscan/internal/services/scanner/domain"
)

// Backend names accepted by NewKV
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendPG     = "pg"
)

// Memory is a process-local KV; entries do not survive a restart
type Memory struct {
	mu sync.RWMutex
	m  map[string]string
}

var _ domain.KV = (*Memory)(nil)

// NewMemory returns an empty Memory
func NewMemory() *Memory { return &Memory{m: make(map[string]string)} }

// Get returns the stored value
func (k *Memory) Get(_ context.Context, key string) (string, bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.m[key]
	return v, ok, nil
}

// Set stores value under key
func (k *Memory) Set(_ context.Context, key, value string) error {
	k.mu.Lock()
	k.m[key] = value
	k.mu.Unlock()
	return nil
}

// dialect holds the statements that differ between postgres and sqlite
type dialect struct {
	name   string
	schema string
	get    string
	upsert string
}

var (
	pgDialect = dialect{
		name: BackendPG,
		schema: `
			CREATE TABLE IF NOT EXISTS scanner_kv (
				key        TEXT PRIMARY KEY,
				value      TEXT NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
		get: `SELECT value FROM scanner_kv WHERE key = $1`,
		upsert: `
			INSERT INTO scanner_kv (key, value, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE
			SET value = excluded.value, updated_at = excluded.updated_at`,
	}
	sqliteDialect = dialect{
		name: BackendSQLite,
		schema: `
			CREATE TABLE IF NOT EXISTS scanner_kv (
				key        TEXT PRIMARY KEY,
				value      TEXT NOT NULL,
				updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		get: `SELECT value FROM scanner_kv WHERE key = ?`,
		upsert: `
			INSERT INTO scanner_kv (key, value, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (key) DO UPDATE
			SET value = excluded.value, updated_at = excluded.updated_at`,
	}
)

// SQL is a KV over one of the store's sql seams
type SQL struct {
	q store.TxRunner
	d dialect
}

var _ domain.KV = (*SQL)(nil)

// NewPG binds a KV to the postgres seam
func NewPG(q store.TxRunner) *SQL { return &SQL{q: q, d: pgDialect} }

// NewSQLite binds a KV to the sqlite seam
func NewSQLite(q store.TxRunner) *SQL { return &SQL{q: q, d: sqliteDialect} }

// Ensure creates the kv table when missing
func (k *SQL) Ensure(ctx context.Context) error {
	if _, err := k.q.Exec(ctx, k.d.schema); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeDB, "%s: ensure scanner_kv", k.d.name)
	}
	return nil
}

// Get reads one key; a missing key is not an error
func (k *SQL) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := store.Scalar[string](ctx, k.q, k.d.get, key)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, perr.Wrapf(err, perr.ErrorCodeDB, "%s: get %q", k.d.name, key)
	}
	return v, true, nil
}

// Set upserts one key
func (k *SQL) Set(ctx context.Context, key, value string) error {
	if _, err := k.q.Exec(ctx, k.d.upsert, key, value); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeDB, "%s: set %q", k.d.name, key)
	}
	return nil
}

// NewKV picks a backend by name. SQL backends need their seam open on st
// and get their table created
func NewKV(ctx context.Context, backend string, st *store.Store) (domain.KV, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		if st == nil || st.Lite == nil {
			return nil, perr.InvalidArgf("kv backend %q needs SERVICE_SQLITE_ENABLED", backend)
		}
		kv := NewSQLite(st.Lite)
		return kv, kv.Ensure(ctx)
	case BackendPG:
		if st == nil || st.PG == nil {
			return nil, perr.InvalidArgf("kv backend %q needs SERVICE_PGSQL_ENABLED", backend)
		}
		kv := NewPG(st.PG)
		return kv, kv.Ensure(ctx)
	default:
		return nil, perr.InvalidArgf("unknown kv backend %q", backend)
	}
}
