package repokit

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"tedingest/internal/platform/store"
)

// fakeTx records statements; Tx hands itself to fn
type fakeTx struct {
	txs   int
	stmts []string
	err   error
}

func (f *fakeTx) Exec(_ context.Context, sql string, _ ...any) (store.CommandTag, error) {
	f.stmts = append(f.stmts, sql)
	return nil, f.err
}

func (f *fakeTx) Query(_ context.Context, sql string, _ ...any) (store.Rows, error) {
	f.stmts = append(f.stmts, sql)
	return nil, nil
}

func (f *fakeTx) QueryRow(_ context.Context, sql string, _ ...any) store.Row {
	f.stmts = append(f.stmts, sql)
	return nil
}

func (f *fakeTx) Tx(_ context.Context, fn func(q Queryer) error) error {
	f.txs++
	return fn(f)
}

func TestWithBeginHooks(t *testing.T) {
	ctx := context.Background()
	inner := &fakeTx{}
	if got := WithBeginHooks(inner); got != TxRunner(inner) {
		t.Fatalf("no hooks should return inner")
	}

	db := WithBeginHooks(inner, StatementTimeout(30*time.Second))
	err := db.Tx(ctx, func(q Queryer) error {
		_, err := q.Exec(ctx, "INSERT INTO tb.ted_staging_std VALUES ($1)", 1)
		return err
	})
	if err != nil {
		t.Fatalf("Tx: %v", err)
	}
	want := []string{"SET LOCAL statement_timeout = 30000", "INSERT INTO tb.ted_staging_std VALUES ($1)"}
	if inner.txs != 1 || !reflect.DeepEqual(inner.stmts, want) {
		t.Fatalf("txs=%d stmts=%v", inner.txs, inner.stmts)
	}

	// outside Tx the wrapper only delegates
	inner.stmts = nil
	_, _ = db.Exec(ctx, "SELECT 1")
	_, _ = db.Query(ctx, "SELECT 2")
	_ = db.QueryRow(ctx, "SELECT 3")
	if !reflect.DeepEqual(inner.stmts, []string{"SELECT 1", "SELECT 2", "SELECT 3"}) {
		t.Fatalf("delegated stmts = %v", inner.stmts)
	}
}

func TestBeginHookErrorSkipsFn(t *testing.T) {
	boom := errors.New("boom")
	inner := &fakeTx{err: boom}
	ran := false
	err := WithBeginHooks(inner, StatementTimeout(time.Second)).Tx(context.Background(), func(Queryer) error {
		ran = true
		return nil
	})
	if !errors.Is(err, boom) || ran {
		t.Fatalf("err=%v ran=%v", err, ran)
	}
}

type counter struct{ q Queryer }

func TestBinders(t *testing.T) {
	b := BindFunc[counter](func(q Queryer) counter { return counter{q: q} })
	q := &fakeTx{}
	if got := MustBind[counter](b, q); got.q != Queryer(q) {
		t.Fatalf("bound to wrong queryer")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("MustBind(nil) did not panic")
		}
	}()
	MustBind[counter](b, nil)
}

type guardFunc func(context.Context) error

func (g guardFunc) Guard(ctx context.Context) error { return g(ctx) }

func TestMustGuard(t *testing.T) {
	var hadDeadline bool
	MustGuard(context.Background(), guardFunc(func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	}))
	if !hadDeadline {
		t.Fatalf("MustGuard should bound an open ended ctx")
	}

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !strings.Contains(err.Error(), "pg: down") {
			t.Fatalf("panic = %v", r)
		}
	}()
	MustGuard(context.Background(), guardFunc(func(context.Context) error { return errors.New("pg: down") }))
}
