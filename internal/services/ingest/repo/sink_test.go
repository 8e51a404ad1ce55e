package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"tedingest/internal/services/ingest/domain"
)

func TestPrepareStampsAndDedupes(t *testing.T) {
	ns := notices(3)
	dup := ns[0]
	title := "newer"
	dup.Title = &title
	ns = append(ns, dup)
	ns = append(ns, notices(1)[0])
	ns[4].TBID = nil

	out, rejected := Prepare("run-1", ns)
	if len(out) != 3 || rejected != 1 {
		t.Fatalf("len = %d rejected = %d, want 3 and 1", len(out), rejected)
	}
	if out[0].Title == nil || *out[0].Title != "newer" {
		t.Fatalf("last duplicate should win, got %v", out[0].Title)
	}
	for _, n := range out {
		if n.RunID != "run-1" {
			t.Fatalf("run id not stamped: %+v", n)
		}
	}
	if ns[0].RunID != "" {
		t.Fatalf("input mutated")
	}
}

func TestPGSinkBatches(t *testing.T) {
	db := &fakeDB{}
	s := NewPGSink(db, nil, 0)
	res, err := s.WriteNotices(context.Background(), "run-1", notices(250))
	if err != nil {
		t.Fatalf("WriteNotices: %v", err)
	}
	if res.Written != 250 || res.Failed != 0 {
		t.Fatalf("result = %+v", res)
	}
	if len(db.calls) != 3 || db.txs != 3 {
		t.Fatalf("calls = %d txs = %d, want 3 each", len(db.calls), db.txs)
	}
	if len(db.calls[2].args) != 50*len(StagingColumns) {
		t.Fatalf("last batch args = %d", len(db.calls[2].args))
	}
}

func TestPGSinkStopsOnFailedBatch(t *testing.T) {
	db := &fakeDB{failAt: 2}
	s := NewPGSink(db, nil, 100)
	res, err := s.WriteNotices(context.Background(), "run-1", notices(350))
	if !errors.Is(err, errExec) {
		t.Fatalf("err = %v, want errExec", err)
	}
	if res.Written != 100 || res.Failed != 250 {
		t.Fatalf("result = %+v", res)
	}
	if len(db.calls) != 2 {
		t.Fatalf("later batches ran: %d calls", len(db.calls))
	}
}

func TestPGSinkRetriesDeadlockOnce(t *testing.T) {
	db := &fakeDB{failAt: 1, failErr: &pgconn.PgError{Code: "40P01"}}
	s := NewPGSink(db, nil, 100)
	res, err := s.WriteNotices(context.Background(), "run-1", notices(150))
	if err != nil || res.Written != 150 || res.Failed != 0 {
		t.Fatalf("result = %+v, %v", res, err)
	}
	if db.txs != 3 || len(db.calls) != 3 {
		t.Fatalf("txs = %d calls = %d, want 3 each", db.txs, len(db.calls))
	}
}

func TestPGSinkSkipsIneligible(t *testing.T) {
	ns := notices(4)
	ns[0].PublishedAt = nil
	ns[1].NativeID = nil
	db := &fakeDB{}
	res, err := NewPGSink(db, nil, 0).WriteNotices(context.Background(), "run-1", ns)
	if err != nil || res.Written != 2 || res.Failed != 2 {
		t.Fatalf("result = %+v, %v", res, err)
	}
	if len(db.calls) != 1 || len(db.calls[0].args) != 2*len(StagingColumns) {
		t.Fatalf("calls = %d", len(db.calls))
	}
	args := db.calls[0].args
	if args[0].(*string) != ns[2].TBID || args[len(StagingColumns)].(*string) != ns[3].TBID {
		t.Fatalf("written rows are not the eligible ones: %v, %v", args[0], args[len(StagingColumns)])
	}

	db = &fakeDB{}
	res, err = NewPGSink(db, nil, 0).WriteNotices(context.Background(), "run-1", ns[:2])
	if err != nil || res.Written != 0 || res.Failed != 2 || len(db.calls) != 0 {
		t.Fatalf("all ineligible = %+v, %v, calls %d", res, err, len(db.calls))
	}
}

func TestPGSinkRawDuplicateKeys(t *testing.T) {
	db := &fakeDB{width: len(rawColumns)}
	s := NewPGSink(db, nil, 0)
	docs := []domain.RawDoc{
		{Source: "TED", SourceID: "608908-2025", XML: []byte("<a>first</a>"), SHA256: "h1"},
		{Source: "TED", SourceID: "612001-2025", XML: []byte("<b/>"), SHA256: "h2"},
		{Source: "TED", SourceID: "608908-2025", XML: []byte("<a>second</a>"), SHA256: "h3"},
	}
	n, err := s.WriteRaw(context.Background(), docs)
	if err != nil || n != 2 {
		t.Fatalf("WriteRaw = %d, %v", n, err)
	}
	if len(db.calls) != 1 {
		t.Fatalf("calls = %d", len(db.calls))
	}
	args := db.calls[0].args
	if len(args) != 2*len(rawColumns) {
		t.Fatalf("args = %d, want one row per key", len(args))
	}
	if args[1] != "608908-2025" || args[2] != "<a>second</a>" || args[3] != "h3" {
		t.Fatalf("first row = %v, want the last duplicate in first-seen position", args[:4])
	}
}

func TestDedupeRaw(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, nil},
		{"distinct", []string{"a", "b"}, []string{"a", "b"}},
		{"repeat", []string{"a", "b", "a", "a"}, []string{"a", "b"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var docs []domain.RawDoc
			for _, id := range tc.in {
				docs = append(docs, domain.RawDoc{Source: "TED", SourceID: id})
			}
			out := DedupeRaw(docs)
			if len(out) != len(tc.want) {
				t.Fatalf("len = %d, want %d", len(out), len(tc.want))
			}
			for i, d := range out {
				if d.SourceID != tc.want[i] {
					t.Fatalf("out[%d] = %s, want %s", i, d.SourceID, tc.want[i])
				}
			}
		})
	}
}

func TestPGSinkBatchCapped(t *testing.T) {
	s := NewPGSink(&fakeDB{}, nil, 1_000_000)
	if s.Batch != MaxBatch(len(StagingColumns)) {
		t.Fatalf("batch = %d", s.Batch)
	}
}

func TestPGSinkRawCountAndRecord(t *testing.T) {
	db := &fakeDB{width: len(rawColumns), count: 7}
	s := NewPGSink(db, nil, 2)
	docs := make([]domain.RawDoc, 5)
	for i := range docs {
		docs[i] = domain.RawDoc{Source: "TED", SourceID: string(rune('a' + i)), XML: []byte("<x/>")}
	}
	n, err := s.WriteRaw(context.Background(), docs)
	if err != nil || n != 5 || len(db.calls) != 3 {
		t.Fatalf("WriteRaw = %d, %v, calls %d", n, err, len(db.calls))
	}
	if c, err := s.CountRun(context.Background(), "run-1"); err != nil || c != 7 {
		t.Fatalf("CountRun = %d, %v", c, err)
	}
	sum := domain.NewSummary("run-1", domain.ModeUpload, "", notices(1)[0].PublishedAt.UTC())
	sum.Finish(nil)
	if err := s.RecordRun(context.Background(), *sum); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
}

func TestNewPGSinkNilDBPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	NewPGSink(nil, nil, 0)
}
