// Package repo provides the ingest sinks: Postgres upserts, the PostgREST
// variant and the ClickHouse run audit
package repo

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"tedingest/internal/core/notice"
	"tedingest/internal/modkit/repokit"
	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/store"
	"tedingest/internal/services/ingest/domain"
)

// Destination tables
const (
	StagingTable = "tb.ted_staging_std"
	RawTable     = "tb.ted_raw_xml"
	RunsTable    = "tb.ted_runs"
)

// maxParams is the Postgres bind parameter ceiling per statement
const maxParams = 65535

// StagingColumns is the insert column order for the staging table
var StagingColumns = []string{
	"tb_id", "native_id", "source", "title", "short_description",
	"buyer_name", "buyer_country", "buyer_city", "buyer_street", "language",
	"cpv_main", "deadline", "raw_deadline_date", "raw_deadline_time", "detail_url",
	"is_award", "competition_flag", "published_at", "run_id", "source_row_hash",
}

var rawColumns = []string{"source", "source_id", "xml_text", "sha256"}

var (
	upsertStagingHead = "INSERT INTO " + StagingTable + " (" + strings.Join(StagingColumns, ", ") + ") VALUES "
	upsertStagingTail = " ON CONFLICT (tb_id) DO UPDATE SET " + stagingSet() + ", updated_at = now()"

	upsertRawHead = "INSERT INTO " + RawTable + " (" + strings.Join(rawColumns, ", ") + ") VALUES "
	upsertRawTail = ` ON CONFLICT (source, source_id) DO UPDATE SET
		xml_text = EXCLUDED.xml_text,
		sha256 = EXCLUDED.sha256,
		updated_at = now()`
)

// stagingSet overwrites every column on conflict except published_at, which
// only moves when the new value is known
func stagingSet() string {
	parts := make([]string, 0, len(StagingColumns)-1)
	for _, c := range StagingColumns[1:] {
		if c == "published_at" {
			parts = append(parts, "published_at = COALESCE(EXCLUDED.published_at, "+StagingTable+".published_at)")
			continue
		}
		parts = append(parts, c+" = EXCLUDED."+c)
	}
	return strings.Join(parts, ", ")
}

// MaxBatch is the most rows of width cols one statement can carry
func MaxBatch(cols int) int { return maxParams / cols }

// placeholders renders "($1,$2),($3,$4)" for rows x cols
func placeholders(rows, cols int) string {
	var b strings.Builder
	n := 1
	for r := range rows {
		if r > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for c := range cols {
			if c > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

type (
	// PG is a Postgres binder for domain.StorageRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.StorageRepo
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

// UpsertNotices writes one batch in a single statement
func (r *queries) UpsertNotices(ctx context.Context, ns []notice.Notice) (int, error) {
	if len(ns) == 0 {
		return 0, nil
	}
	if len(ns)*len(StagingColumns) > maxParams {
		return 0, perr.InvalidArgf("staging batch of %d rows exceeds the parameter ceiling", len(ns))
	}
	args := make([]any, 0, len(ns)*len(StagingColumns))
	for _, n := range ns {
		args = append(args,
			n.TBID, n.NativeID, n.Source, n.Title, n.ShortDescription,
			n.BuyerName, n.BuyerCountry, n.BuyerCity, n.BuyerStreet, n.Language,
			n.CPVMain, n.Deadline, n.RawDeadlineDate, n.RawDeadlineTime, n.DetailURL,
			n.IsAward, n.CompetitionFlag, n.PublishedAt, n.RunID, n.SourceRowHash,
		)
	}
	sql := upsertStagingHead + placeholders(len(ns), len(StagingColumns)) + upsertStagingTail
	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, perr.FromPostgresf(err, "upsert %d staging rows", len(ns))
	}
	return int(tag.RowsAffected()), nil
}

// UpsertRaw writes one batch of original documents keyed by (source, source_id)
func (r *queries) UpsertRaw(ctx context.Context, docs []domain.RawDoc) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(docs)*len(rawColumns))
	for _, d := range docs {
		// text columns reject invalid UTF-8 and NUL
		xml := strings.ToValidUTF8(strings.ReplaceAll(string(d.XML), "\x00", ""), "\uFFFD")
		args = append(args, d.Source, d.SourceID, xml, d.SHA256)
	}
	sql := upsertRawHead + placeholders(len(docs), len(rawColumns)) + upsertRawTail
	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, perr.FromPostgresf(err, "upsert %d raw documents", len(docs))
	}
	return int(tag.RowsAffected()), nil
}

// CountRun counts staging rows last touched by runID
func (r *queries) CountRun(ctx context.Context, runID string) (int, error) {
	n, err := store.Scalar[int64](ctx, r.q, `SELECT count(*) FROM `+StagingTable+` WHERE run_id = $1`, runID)
	if err != nil {
		return 0, perr.FromPostgres(err, "count run rows")
	}
	return int(n), nil
}

// RecordRun stores a run summary (idempotent on run_id)
func (r *queries) RecordRun(ctx context.Context, s domain.Summary) error {
	skipped, err := json.Marshal(s.Skipped)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode skip counts")
	}
	var day any
	if s.Date != "" {
		day = s.Date
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO `+RunsTable+` (
			run_id, mode, issue, target_date, status,
			documents, eligible, written, raw_written, failed,
			skipped, error, started_at, finished_at
		)
		VALUES ($1, $2, NULLIF($3,''), $4::date, $5, $6, $7, $8, $9, $10, $11::jsonb, NULLIF($12,''), $13, $14)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			documents = EXCLUDED.documents,
			eligible = EXCLUDED.eligible,
			written = EXCLUDED.written,
			raw_written = EXCLUDED.raw_written,
			failed = EXCLUDED.failed,
			skipped = EXCLUDED.skipped,
			error = EXCLUDED.error,
			finished_at = EXCLUDED.finished_at
	`,
		s.RunID, string(s.Mode), s.Issue, day, s.Status,
		s.Documents, s.Eligible, s.Written, s.RawWritten, s.Failed,
		string(skipped), s.Error, s.StartedAt, s.FinishedAt,
	)
	if err != nil {
		return perr.FromPostgres(err, "record run")
	}
	return nil
}
