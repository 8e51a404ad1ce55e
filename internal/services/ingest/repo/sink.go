package repo

import (
	"context"

	"tedingest/internal/core/notice"
	"tedingest/internal/modkit/repokit"
	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/logger"
	"tedingest/internal/services/ingest/domain"
)

// DefaultBatch is rows per staging or raw statement
const DefaultBatch = 100

// PGSink writes notices and raw documents to Postgres in batches, one
// transaction per batch. A failed batch stops the write; batches already
// committed stay committed.
type PGSink struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.StorageRepo]
	Batch  int
	log    logger.Logger
}

// NewPGSink builds a PGSink; batch <= 0 means DefaultBatch and is capped by
// the parameter ceiling
func NewPGSink(db repokit.TxRunner, b repokit.Binder[domain.StorageRepo], batch int) *PGSink {
	if db == nil {
		panic("repo.PGSink requires a non nil TxRunner")
	}
	if b == nil {
		b = NewPG()
	}
	if batch <= 0 {
		batch = DefaultBatch
	}
	batch = min(batch, MaxBatch(len(StagingColumns)))
	return &PGSink{DB: db, Binder: b, Batch: batch, log: *logger.Named("sink")}
}

// Name implements domain.Sink
func (s *PGSink) Name() string { return "pg" }

// WriteNotices upserts ns tagged with runID. On a failed batch the rows of
// that batch and every later one are reported failed.
func (s *PGSink) WriteNotices(ctx context.Context, runID string, ns []notice.Notice) (domain.SinkResult, error) {
	rows, rejected := Prepare(runID, ns)
	res := domain.SinkResult{Failed: rejected}
	if rejected > 0 {
		logger.C(ctx).Warn().Int("rejected", rejected).Msg("ineligible notices not written")
	}
	for i := 0; i < len(rows); i += s.Batch {
		end := min(i+s.Batch, len(rows))
		var n int
		err := s.tx(ctx, func(q repokit.Queryer) error {
			var e error
			n, e = repokit.MustBind(s.Binder, q).UpsertNotices(ctx, rows[i:end])
			return e
		})
		if err != nil {
			res.Failed += len(rows) - i
			logger.C(ctx).Error().Err(err).
				Int("batch_start", i).
				Int("batch_rows", end-i).
				Int("not_written", len(rows)-i).
				Msg("staging batch failed, stopping")
			return res, perr.WithOp(err, "sink.pg")
		}
		res.Written += n
	}
	return res, nil
}

// WriteRaw upserts original documents in batches. Documents sharing a
// (source, source_id) key collapse to the last one.
func (s *PGSink) WriteRaw(ctx context.Context, docs []domain.RawDoc) (int, error) {
	docs = DedupeRaw(docs)
	written := 0
	for i := 0; i < len(docs); i += s.Batch {
		end := min(i+s.Batch, len(docs))
		var n int
		err := s.tx(ctx, func(q repokit.Queryer) error {
			var e error
			n, e = repokit.MustBind(s.Binder, q).UpsertRaw(ctx, docs[i:end])
			return e
		})
		if err != nil {
			return written, perr.WithOp(err, "sink.raw")
		}
		written += n
	}
	return written, nil
}

// tx runs fn in one transaction and retries it once when Postgres reports
// contention, e.g. two runs upserting the same tb_id rows
func (s *PGSink) tx(ctx context.Context, fn func(q repokit.Queryer) error) error {
	err := s.DB.Tx(ctx, fn)
	if perr.IsRetryable(err) {
		s.log.Warn().Err(err).Msg("transaction contended, retrying once")
		err = s.DB.Tx(ctx, fn)
	}
	return err
}

// CountRun implements domain.RunCounter
func (s *PGSink) CountRun(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var e error
		n, e = repokit.MustBind(s.Binder, q).CountRun(ctx, runID)
		return e
	})
	return n, err
}

// RecordRun implements domain.RunRecorder
func (s *PGSink) RecordRun(ctx context.Context, sum domain.Summary) error {
	return s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return repokit.MustBind(s.Binder, q).RecordRun(ctx, sum)
	})
}

// Prepare stamps runID on every eligible notice and keeps the last notice
// per tb_id, since one statement cannot update the same key twice. Notices
// failing the eligibility rule are dropped and counted in rejected.
func Prepare(runID string, ns []notice.Notice) (rows []notice.Notice, rejected int) {
	idx := make(map[string]int, len(ns))
	rows = make([]notice.Notice, 0, len(ns))
	for _, n := range ns {
		if notice.CheckEligible(n) != nil {
			rejected++
			continue
		}
		n.RunID = runID
		if i, ok := idx[*n.TBID]; ok {
			rows[i] = n
			continue
		}
		idx[*n.TBID] = len(rows)
		rows = append(rows, n)
	}
	return rows, rejected
}

// DedupeRaw keeps the last document per (source, source_id), in first-seen
// order
func DedupeRaw(docs []domain.RawDoc) []domain.RawDoc {
	idx := make(map[string]int, len(docs))
	out := make([]domain.RawDoc, 0, len(docs))
	for _, d := range docs {
		key := d.Source + "|" + d.SourceID
		if i, ok := idx[key]; ok {
			out[i] = d
			continue
		}
		idx[key] = len(out)
		out = append(out, d)
	}
	return out
}
