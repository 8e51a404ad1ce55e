package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tedingest/internal/core/notice"
	"tedingest/internal/modkit/repokit"
	"tedingest/internal/platform/store"
)

type fakeTag int64

func (t fakeTag) String() string      { return fmt.Sprintf("INSERT 0 %d", int64(t)) }
func (t fakeTag) RowsAffected() int64 { return int64(t) }

type scalarRow struct {
	v   int64
	err error
}

func (r scalarRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.v
	return nil
}

type execCall struct {
	sql  string
	args []any
}

// fakeDB is a TxRunner that records Execs. Exec number failAt (1-based)
// returns failErr, or errExec when unset; every other Exec affects one row
// per args/width.
type fakeDB struct {
	calls   []execCall
	width   int
	failAt  int
	failErr error
	txs     int
	count   int64
}

var errExec = errors.New("exec failed")

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (store.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if f.failAt > 0 && len(f.calls) == f.failAt {
		if f.failErr != nil {
			return nil, f.failErr
		}
		return nil, errExec
	}
	w := f.width
	if w == 0 {
		w = len(StagingColumns)
	}
	return fakeTag(len(args) / w), nil
}

func (f *fakeDB) Query(context.Context, string, ...any) (store.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) store.Row {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return scalarRow{v: f.count}
}

func (f *fakeDB) Tx(_ context.Context, fn func(q store.RowQuerier) error) error {
	f.txs++
	return fn(f)
}

var _ repokit.TxRunner = (*fakeDB)(nil)

func notices(n int) []notice.Notice {
	out := make([]notice.Notice, n)
	pub := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)
	for i := range out {
		native := fmt.Sprintf("%d-2025", 600000+i)
		tb := notice.Source + "|" + native
		out[i] = notice.Notice{TBID: &tb, NativeID: &native, Source: notice.Source, PublishedAt: &pub}
	}
	return out
}
