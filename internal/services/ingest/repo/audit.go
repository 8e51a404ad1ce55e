package repo

import (
	"context"
	"encoding/json"

	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/store"
	"tedingest/internal/services/ingest/domain"
)

// AuditTable is the ClickHouse run mirror
const AuditTable = "ted_runs"

// AuditDDL creates AuditTable; run once per ClickHouse database
const AuditDDL = `
CREATE TABLE IF NOT EXISTS ted_runs (
	run_id       String,
	mode         LowCardinality(String),
	issue        String,
	target_date  String,
	status       LowCardinality(String),
	documents    UInt32,
	eligible     UInt32,
	written      UInt32,
	raw_written  UInt32,
	failed       UInt32,
	skipped      String,
	error        String,
	started_at   DateTime64(3, 'UTC'),
	finished_at  DateTime64(3, 'UTC')
)
ENGINE = ReplacingMergeTree(finished_at)
ORDER BY (run_id)`

// Audit mirrors run summaries into ClickHouse
type Audit struct {
	CH    store.Clickhouse
	Table string
}

// EnsureAuditTable applies AuditDDL
func EnsureAuditTable(ctx context.Context, ch store.Clickhouse) error {
	if err := ch.Exec(ctx, AuditDDL); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "create clickhouse run audit table")
	}
	return nil
}

// NewAudit returns an Audit writing to AuditTable
func NewAudit(ch store.Clickhouse) *Audit { return &Audit{CH: ch, Table: AuditTable} }

// RecordRun implements domain.RunRecorder
func (a *Audit) RecordRun(ctx context.Context, s domain.Summary) error {
	if a == nil || a.CH == nil {
		return nil
	}
	skipped, err := json.Marshal(s.Skipped)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode skip counts")
	}
	row := []any{
		s.RunID, string(s.Mode), s.Issue, s.Date, s.Status,
		uint32(s.Documents), uint32(s.Eligible), uint32(s.Written), uint32(s.RawWritten), uint32(s.Failed),
		string(skipped), s.Error, s.StartedAt, s.FinishedAt,
	}
	if err := a.CH.Insert(ctx, a.Table, [][]any{row}); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "clickhouse run audit")
	}
	return nil
}
