// Package repo provides postgres reads over the staging and run tables
package repo

import (
	"context"
	"strings"
	"time"

	"tedingest/internal/core/notice"
	"tedingest/internal/modkit/repokit"
	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/store"
	str "tedingest/internal/platform/strings"
	"tedingest/internal/services/api/notices/domain"
	ingestrepo "tedingest/internal/services/ingest/repo"
)

// Repo is the read surface of the notices API
type Repo interface {
	Get(ctx context.Context, tbID string) (notice.Notice, error)
	List(ctx context.Context, day *time.Time, award *bool, limit int) ([]notice.Notice, error)
	Run(ctx context.Context, runID string) (domain.Run, error)
	CountRun(ctx context.Context, runID string) (int, error)
}

type (
	// PG binds Repo to a Queryer
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder that can bind the repo to a Queryer or TxRunner
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

var selectNotice = "SELECT " + strings.Join(ingestrepo.StagingColumns, ", ") + " FROM " + ingestrepo.StagingTable

func scanNotice(r store.Row) (notice.Notice, error) {
	var n notice.Notice
	var runID, hash *string
	err := r.Scan(
		&n.TBID, &n.NativeID, &n.Source, &n.Title, &n.ShortDescription,
		&n.BuyerName, &n.BuyerCountry, &n.BuyerCity, &n.BuyerStreet, &n.Language,
		&n.CPVMain, &n.Deadline, &n.RawDeadlineDate, &n.RawDeadlineTime, &n.DetailURL,
		&n.IsAward, &n.CompetitionFlag, &n.PublishedAt, &runID, &hash,
	)
	n.RunID, n.SourceRowHash = str.Deref(runID), str.Deref(hash)
	return n, err
}

func (r *queries) Get(ctx context.Context, tbID string) (notice.Notice, error) {
	n, err := store.One(ctx, r.q, scanNotice, selectNotice+" WHERE tb_id = $1", tbID)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return n, perr.NotFoundf("notice %s not found", tbID)
	}
	if err != nil {
		return n, perr.FromPostgresf(err, "get notice %s", tbID)
	}
	return n, nil
}

// List returns notices newest first; day narrows to one UTC publication day
func (r *queries) List(ctx context.Context, day *time.Time, award *bool, limit int) ([]notice.Notice, error) {
	var from, to *time.Time
	if day != nil {
		f := day.UTC().Truncate(24 * time.Hour)
		t := f.Add(24 * time.Hour)
		from, to = &f, &t
	}
	const where = `
WHERE ($1::timestamptz IS NULL OR (published_at >= $1 AND published_at < $2))
AND ($3::boolean IS NULL OR is_award = $3)
ORDER BY published_at DESC NULLS LAST, tb_id
LIMIT $4`
	out, err := store.Many(ctx, r.q, scanNotice, selectNotice+where, from, to, award, limit)
	if err != nil {
		return nil, perr.FromPostgres(err, "list notices")
	}
	return out, nil
}

func (r *queries) Run(ctx context.Context, runID string) (domain.Run, error) {
	const sql = `
SELECT run_id, mode, issue, target_date, status,
	documents, eligible, written, raw_written, failed,
	skipped, error, started_at, finished_at
FROM ` + ingestrepo.RunsTable + `
WHERE run_id = $1`
	run, err := store.One(ctx, r.q, func(row store.Row) (domain.Run, error) {
		var v domain.Run
		err := row.Scan(
			&v.RunID, &v.Mode, &v.Issue, &v.TargetDate, &v.Status,
			&v.Documents, &v.Eligible, &v.Written, &v.RawWritten, &v.Failed,
			&v.Skipped, &v.Error, &v.StartedAt, &v.FinishedAt,
		)
		return v, err
	}, sql, runID)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return run, perr.NotFoundf("run %s not found", runID)
	}
	if err != nil {
		return run, perr.FromPostgresf(err, "get run %s", runID)
	}
	return run, nil
}

func (r *queries) CountRun(ctx context.Context, runID string) (int, error) {
	n, err := store.Scalar[int64](ctx, r.q, `SELECT count(*) FROM `+ingestrepo.StagingTable+` WHERE run_id = $1`, runID)
	if err != nil {
		return 0, perr.FromPostgres(err, "count run rows")
	}
	return int(n), nil
}
