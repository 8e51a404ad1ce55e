//go:build integration_pg

package repo

import (
	"context"
	"testing"
	"time"

	"tedingest/internal/platform/store"
	"tedingest/internal/platform/store/migrate"
	"tedingest/internal/platform/store/pg/pgtest"
	"tedingest/internal/services/ingest/domain"
)

func openMigrated(t *testing.T) store.TxRunner {
	t.Helper()
	ctx := context.Background()
	dsn := pgtest.Start(t)

	m, err := migrate.Open(dsn)
	if err != nil {
		t.Fatalf("migrate.Open: %v", err)
	}
	if err := m.Up(); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	_ = m.Close()

	s, err := store.Open(ctx, store.Config{AppName: "repo-test", PG: store.PGConfig{Enabled: true, URL: dsn}})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(ctx) })
	return s.PG
}

func TestPGSinkAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	db := openMigrated(t)
	sink := NewPGSink(db, nil, 2)

	rows := notices(5)
	res, err := sink.WriteNotices(ctx, "run-1", rows)
	if err != nil || res.Written != 5 || res.Failed != 0 {
		t.Fatalf("first write = %+v, %v", res, err)
	}
	if n, err := sink.CountRun(ctx, "run-1"); err != nil || n != 5 {
		t.Fatalf("CountRun(run-1) = %d, %v", n, err)
	}

	// same notices again; the one without a publication date is rejected,
	// so it keeps its stored row and run while the rest move to run-2
	again := notices(5)
	again[0].PublishedAt = nil
	title := "Updated title"
	again[1].Title = &title
	if res, err := sink.WriteNotices(ctx, "run-2", again); err != nil || res.Written != 4 || res.Failed != 1 {
		t.Fatalf("second write = %+v, %v", res, err)
	}
	total, err := store.Scalar[int64](ctx, db, `SELECT count(*) FROM `+StagingTable)
	if err != nil || total != 5 {
		t.Fatalf("rows after rerun = %d, %v", total, err)
	}
	if n, _ := sink.CountRun(ctx, "run-1"); n != 1 {
		t.Fatalf("run-1 tags %d rows, want 1", n)
	}

	var pub time.Time
	if err := db.QueryRow(ctx, `SELECT published_at FROM `+StagingTable+` WHERE tb_id = $1`, *rows[0].TBID).Scan(&pub); err != nil {
		t.Fatalf("read published_at: %v", err)
	}
	if !pub.Equal(*rows[0].PublishedAt) {
		t.Fatalf("published_at = %v, want %v", pub, *rows[0].PublishedAt)
	}
	got, err := store.Scalar[string](ctx, db, `SELECT title FROM `+StagingTable+` WHERE tb_id = $1`, *rows[1].TBID)
	if err != nil || got != title {
		t.Fatalf("title = %q, %v", got, err)
	}
}

func TestRawAndRunsAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	db := openMigrated(t)
	sink := NewPGSink(db, nil, 0)

	docs := []domain.RawDoc{
		{Source: "TED", SourceID: "1-2025", XML: []byte("<a>\x00one</a>"), SHA256: "h1"},
		{Source: "TED", SourceID: "2-2025", XML: []byte("<a>two</a>"), SHA256: "h2"},
		{Source: "TED", SourceID: "2-2025", XML: []byte("<a>two again</a>"), SHA256: "h2"},
	}
	if n, err := sink.WriteRaw(ctx, docs); err != nil || n != 2 {
		t.Fatalf("WriteRaw = %d, %v", n, err)
	}
	docs[0].SHA256 = "h1b"
	if n, err := sink.WriteRaw(ctx, docs[:1]); err != nil || n != 1 {
		t.Fatalf("rewrite = %d, %v", n, err)
	}
	sha, err := store.Scalar[string](ctx, db, `SELECT sha256 FROM `+RawTable+` WHERE source = 'TED' AND source_id = '1-2025'`)
	if err != nil || sha != "h1b" {
		t.Fatalf("sha256 = %q, %v", sha, err)
	}
	text, err := store.Scalar[string](ctx, db, `SELECT xml_text FROM `+RawTable+` WHERE source_id = '1-2025'`)
	if err != nil || text != "<a>one</a>" {
		t.Fatalf("xml_text = %q, %v", text, err)
	}

	sum := domain.NewSummary("ted-run:auto:2025-10-10:x", domain.ModeArchive, "202500201", time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC))
	sum.Documents, sum.Written = 3, 2
	sum.Finish(nil)
	if err := sink.RecordRun(ctx, *sum); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	// recording the same run twice updates it
	if err := sink.RecordRun(ctx, *sum); err != nil {
		t.Fatalf("RecordRun again: %v", err)
	}
	n, err := store.Scalar[int64](ctx, db, `SELECT count(*) FROM `+RunsTable+` WHERE run_id = $1`, sum.RunID)
	if err != nil || n != 1 {
		t.Fatalf("runs rows = %d, %v", n, err)
	}
}
