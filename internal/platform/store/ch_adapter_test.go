package store

import (
	"context"
	"errors"
	"testing"

	"nocscan/internal/platform/store/ch"
)

type fakeCH struct {
	inserted [][]any
	table    string
	rows     ch.Rows
	err      error
	closed   bool
}

func (f *fakeCH) Insert(_ context.Context, table string, data [][]any) error {
	f.table, f.inserted = table, data
	return f.err
}
func (f *fakeCH) Query(context.Context, string, ...any) (ch.Rows, error) { return f.rows, f.err }
func (f *fakeCH) Ping(context.Context) error                             { return f.err }
func (f *fakeCH) Close() error                                           { f.closed = true; return nil }

type fakeCHRows struct{ n int }

func (r *fakeCHRows) Next() bool             { r.n--; return r.n >= 0 }
func (r *fakeCHRows) Scan(dest ...any) error { return nil }
func (r *fakeCHRows) Err() error             { return nil }
func (r *fakeCHRows) Close() error           { return nil }
func (r *fakeCHRows) Columns() []string      { return []string{"encounter_id"} }

func TestCHAdapter_InsertShape(t *testing.T) {
	t.Parallel()

	f := &fakeCH{}
	a := &clickhouseAdapter{inner: f}

	if err := a.Insert(context.Background(), "sightings", []string{"nope"}); !errors.Is(err, ErrCHShape) {
		t.Fatalf("wrong shape should fail, got %v", err)
	}
	rows := [][]any{{"ash", "enc-1"}}
	if err := a.Insert(context.Background(), "sightings", rows); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if f.table != "sightings" || len(f.inserted) != 1 {
		t.Fatalf("insert not delegated: %s %v", f.table, f.inserted)
	}
}

func TestCHAdapter_QueryPingClose(t *testing.T) {
	t.Parallel()

	f := &fakeCH{rows: &fakeCHRows{n: 2}}
	a := &clickhouseAdapter{inner: f}

	rs, err := a.Query(context.Background(), "SELECT encounter_id FROM sightings")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	n := 0
	for rs.Next() {
		n++
	}
	rs.Close()
	if n != 2 || rs.Columns()[0] != "encounter_id" {
		t.Fatalf("rows mismatch n=%d", n)
	}
	if err := a.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	_ = a.Close()
	if !f.closed {
		t.Fatalf("Close not delegated")
	}

	bad := &clickhouseAdapter{inner: &fakeCH{err: errors.New("down")}}
	if _, err := bad.Query(context.Background(), "x"); err == nil {
		t.Fatalf("expected query error")
	}
}
