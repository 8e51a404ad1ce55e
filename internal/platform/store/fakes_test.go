package store

import (
	"context"
	"errors"
	"fmt"
)

type fakeTag int64

func (t fakeTag) String() string      { return fmt.Sprintf("INSERT 0 %d", int64(t)) }
func (t fakeTag) RowsAffected() int64 { return int64(t) }

// fakeRows iterates over fixed values; each row is scanned positionally
type fakeRows struct {
	data   [][]any
	i      int
	err    error
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.i >= len(r.data) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.i-1]
	if len(dest) != len(row) {
		return errors.New("scan arity")
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *int64:
			*p = row[i].(int64)
		default:
			return fmt.Errorf("unsupported dest %T", d)
		}
	}
	return nil
}

func (r *fakeRows) Err() error        { return r.err }
func (r *fakeRows) Close()            { r.closed = true }
func (r *fakeRows) Columns() []string { return nil }

type fakeRow struct {
	v   any
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	switch p := dest[0].(type) {
	case *int64:
		*p = r.v.(int64)
	case *string:
		*p = r.v.(string)
	}
	return nil
}

// fakeQuerier records calls and answers from canned values
type fakeQuerier struct {
	execSQL  []string
	execTag  CommandTag
	execErr  error
	rows     *fakeRows
	queryErr error
	row      fakeRow
	pingErr  error
	pingable bool
	txErr    error
	closed   bool
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, _ ...any) (CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	return f.execTag, f.execErr
}

func (f *fakeQuerier) Query(context.Context, string, ...any) (Rows, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func (f *fakeQuerier) QueryRow(context.Context, string, ...any) Row { return f.row }

func (f *fakeQuerier) Tx(_ context.Context, fn func(q RowQuerier) error) error {
	if f.txErr != nil {
		return f.txErr
	}
	return fn(f)
}

func (f *fakeQuerier) Close() error { f.closed = true; return nil }

// pingQuerier adds Ping to fakeQuerier
type pingQuerier struct{ *fakeQuerier }

func (p pingQuerier) Ping(context.Context) error { return p.pingErr }
