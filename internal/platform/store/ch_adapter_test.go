package store

import (
	"context"
	"errors"
	"testing"

	"tedingest/internal/platform/store/ch"
)

var _ ch.Rows = (*fakeCHRows)(nil)

type fakeCHRows struct {
	n      int
	closed bool
}

func (r *fakeCHRows) Next() bool             { r.n++; return r.n == 1 }
func (r *fakeCHRows) Scan(dest ...any) error { *(dest[0].(*string)) = "ted_runs"; return nil }
func (r *fakeCHRows) Err() error             { return nil }
func (r *fakeCHRows) Close() error           { r.closed = true; return nil }
func (r *fakeCHRows) Columns() []string      { return []string{"name"} }

type fakeCH struct {
	inserted [][]any
	table    string
	queryErr error
	pingErr  error
	closed   bool
	rows     *fakeCHRows
	execs    []string
}

func (f *fakeCH) Insert(_ context.Context, table string, rows [][]any) error {
	f.table = table
	f.inserted = append(f.inserted, rows...)
	return nil
}

func (f *fakeCH) Query(context.Context, string, ...any) (ch.Rows, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	f.rows = &fakeCHRows{}
	return f.rows, nil
}

func (f *fakeCH) Exec(_ context.Context, sql string, _ ...any) error {
	f.execs = append(f.execs, sql)
	return nil
}

func (f *fakeCH) Ping(context.Context) error { return f.pingErr }
func (f *fakeCH) Close() error               { f.closed = true; return nil }

func TestCHAdapterInsert(t *testing.T) {
	t.Parallel()

	f := &fakeCH{}
	a := newCHAdapter(f)
	if err := a.Insert(context.Background(), "ted_runs", nil); err != nil || f.table != "" {
		t.Fatalf("empty insert should be a no-op: %v %q", err, f.table)
	}
	if err := a.Insert(context.Background(), "ted_runs", [][]any{{"run-1", uint32(3)}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if f.table != "ted_runs" || len(f.inserted) != 1 {
		t.Fatalf("inserted %v into %q", f.inserted, f.table)
	}
}

func TestCHAdapterQuery(t *testing.T) {
	t.Parallel()

	f := &fakeCH{}
	a := newCHAdapter(f)
	rs, err := a.Query(context.Background(), "SHOW TABLES")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	var name string
	if !rs.Next() || rs.Scan(&name) != nil || name != "ted_runs" || rs.Columns()[0] != "name" {
		t.Fatalf("row = %q", name)
	}
	rs.Close()
	if !f.rows.closed {
		t.Fatalf("Close not delegated")
	}

	boom := errors.New("boom")
	if _, err := newCHAdapter(&fakeCH{queryErr: boom}).Query(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestCHAdapterExec(t *testing.T) {
	t.Parallel()

	f := &fakeCH{}
	if err := newCHAdapter(f).Exec(context.Background(), "CREATE TABLE t (x UInt8) ENGINE = Memory"); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if len(f.execs) != 1 {
		t.Fatalf("execs = %v", f.execs)
	}
}
