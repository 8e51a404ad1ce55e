// Package service runs ingestion: resolve a package, stream its notices
// through the normalizer and hand the eligible records to the sink
package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"tedingest/internal/adapters/ingest/tedpkg"
	"tedingest/internal/core/notice"
	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/logger"
	"tedingest/internal/platform/metrics"
	"tedingest/internal/services/ingest/domain"
	"tedingest/internal/services/ingest/guardrails"
)

// Config holds the ingest service knobs
type Config struct {
	// Source labels raw documents loaded from disk
	Source string

	// SaveRawDocs writes the original XML next to the staging rows when the
	// sink supports it
	SaveRawDocs bool

	Timeouts guardrails.Timeouts

	// Samples caps logged documents without a native id; SampleChars caps
	// each excerpt
	Samples     int
	SampleChars int
}

// Service implements domain.RunnerPort
type Service struct {
	Resolver  domain.Resolver
	Fetch     domain.Fetcher
	Norm      domain.Normalizer
	Sink      domain.Sink
	Recorders []domain.RunRecorder
	Cfg       Config

	now func() time.Time
}

// New constructs the ingest service; recorders receive every finished run
func New(
	r domain.Resolver,
	f domain.Fetcher,
	n domain.Normalizer,
	sink domain.Sink,
	cfg Config,
	recorders ...domain.RunRecorder,
) *Service {
	if sink == nil {
		panic("ingest.Service requires a non nil Sink")
	}
	if n == nil {
		n = notice.NewNormalizer()
	}
	if cfg.Source == "" {
		cfg.Source = notice.Source
	}
	if cfg.Samples <= 0 {
		cfg.Samples = 3
	}
	if cfg.SampleChars <= 0 {
		cfg.SampleChars = 500
	}
	return &Service{
		Resolver:  r,
		Fetch:     f,
		Norm:      n,
		Sink:      sink,
		Recorders: recorders,
		Cfg:       cfg,
		now:       time.Now,
	}
}

// Resolve finds the package id for day
func (s *Service) Resolve(ctx context.Context, day time.Time) (string, error) {
	if day.IsZero() {
		return "", perr.InvalidArgf("a publication day is required")
	}
	if s.Resolver == nil {
		return "", perr.InvalidArgf("no resolver configured")
	}
	return s.Resolver.Resolve(ctx, day)
}

// Run ingests one daily package. Without req.Issue the package is resolved
// from req.Date first. The summary is returned and logged even on failure.
func (s *Service) Run(ctx context.Context, req domain.Request) (sum *domain.Summary, retErr error) {
	tos := s.Cfg.Timeouts
	runCtx, cancel := guardrails.ForRun(ctx, tos)
	defer cancel()

	sum = domain.NewSummary(domain.NewRunID(req.Issue, req.Date), domain.ModeArchive, req.Issue, req.Date)
	runCtx = logger.WithRun(runCtx, sum.RunID, req.Issue)
	defer func() { retErr = s.finish(runCtx, sum, retErr) }()

	issue := req.Issue
	if issue == "" {
		id, err := s.Resolve(runCtx, req.Date)
		if err != nil {
			return sum, err
		}
		issue = id
		sum.Issue = id
		runCtx = logger.WithRun(runCtx, sum.RunID, id)
	}
	if s.Fetch == nil {
		return sum, perr.InvalidArgf("no package fetcher configured")
	}

	acc := s.newBatch(sum, s.fallbackDay(req.Date))

	if err := func() error {
		readCtx, readCancel := guardrails.ForRead(runCtx, tos)
		defer readCancel()
		// the body streams while members are read, so the fetch budget
		// covers the whole download
		fetchCtx, fetchCancel := guardrails.ForFetch(readCtx, tos)
		defer fetchCancel()

		t0 := s.now()
		rc, err := s.Fetch.Fetch(fetchCtx, issue)
		if err != nil {
			return err
		}
		rd, err := tedpkg.NewReader(rc)
		if err != nil {
			return err
		}
		defer func() { _ = rd.Close() }()

		err = rd.Each(func(doc tedpkg.Document) error {
			return acc.add(runCtx, doc.Name, doc.Raw)
		}, func(doc tedpkg.Document, err error) {
			acc.decodeFailed(runCtx, doc.Name, err)
		})
		st := rd.Stats()
		logger.C(runCtx).Info().
			Str("issue", issue).
			Int("entries", st.Entries).
			Int("xml", st.XML).
			Int("oversized", st.Skipped).
			Int64("bytes", st.Bytes).
			Dur("took", s.now().Sub(t0)).
			Msg("package read")
		return err
	}(); err != nil {
		return sum, err
	}

	return sum, s.write(runCtx, acc)
}

// IngestDocuments runs documents from src through the same normalize and
// write path as a package. day is the published_at fallback.
func (s *Service) IngestDocuments(ctx context.Context, src domain.DocumentSource, day time.Time) (sum *domain.Summary, retErr error) {
	tos := s.Cfg.Timeouts
	runCtx, cancel := guardrails.ForRun(ctx, tos)
	defer cancel()

	sum = domain.NewSummary(domain.NewRunID("", day), domain.ModeNotices, "", day)
	runCtx = logger.WithRun(runCtx, sum.RunID, src.Name())
	defer func() { retErr = s.finish(runCtx, sum, retErr) }()

	acc := s.newBatch(sum, s.fallbackDay(day))
	err := src.Each(runCtx, func(ctx context.Context, name string, raw []byte) error {
		if err := acc.add(ctx, name, raw); err != nil {
			acc.decodeFailed(ctx, name, err)
		}
		return nil
	})
	// keep what was fetched before the source failed
	return sum, errors.Join(err, s.write(runCtx, acc))
}

// write persists an accumulated batch: raw documents first, then staging
// rows. The two writes are independent; a raw failure does not block staging.
func (s *Service) write(ctx context.Context, acc *batch) error {
	sum := acc.sum
	tos := s.Cfg.Timeouts

	var rawErr error
	if rw, ok := s.Sink.(domain.RawWriter); ok && s.Cfg.SaveRawDocs && len(acc.raw) > 0 {
		dbCtx, cancel := guardrails.ForDB(ctx, tos)
		n, err := rw.WriteRaw(dbCtx, acc.raw)
		cancel()
		sum.RawWritten = n
		metrics.RecordsWritten.WithLabelValues("ted_raw_xml").Add(float64(n))
		if err != nil {
			rawErr = err
			logger.C(ctx).Error().Err(err).Int("written", n).Int("total", len(acc.raw)).Msg("raw documents not fully written")
		}
	}

	dbCtx, cancel := guardrails.ForDB(ctx, tos)
	res, err := s.Sink.WriteNotices(dbCtx, sum.RunID, acc.notices)
	cancel()
	sum.Written, sum.Failed = res.Written, res.Failed
	metrics.RecordsWritten.WithLabelValues("ted_staging_std").Add(float64(res.Written))

	if rc, ok := s.Sink.(domain.RunCounter); ok && err == nil && res.Written > 0 {
		vCtx, vCancel := guardrails.ForDB(ctx, tos)
		n, cerr := rc.CountRun(vCtx, sum.RunID)
		vCancel()
		if cerr != nil {
			logger.C(ctx).Warn().Err(cerr).Msg("run verification failed")
		} else {
			sum.Verified = n
			logger.C(ctx).Info().Int("rows", n).Int("written", res.Written).Msg("run verified")
		}
	}
	return errors.Join(rawErr, err)
}

// finish closes the summary, reports it everywhere and maps failed rows to
// a non-nil error so the process exits non-zero
func (s *Service) finish(ctx context.Context, sum *domain.Summary, err error) error {
	sum.Finish(err)
	if err == nil && sum.Failed > 0 {
		err = perr.DBf("%d of %d records were not written", sum.Failed, sum.Eligible)
	}

	metrics.Documents.WithLabelValues("seen").Add(float64(sum.Documents))
	metrics.Documents.WithLabelValues("eligible").Add(float64(sum.Eligible))
	metrics.Documents.WithLabelValues("written").Add(float64(sum.Written))
	metrics.Documents.WithLabelValues("failed").Add(float64(sum.Failed))
	metrics.Documents.WithLabelValues("skipped").Add(float64(sum.SkippedTotal()))
	for r, n := range sum.Skipped {
		metrics.Skips.WithLabelValues(string(r)).Add(float64(n))
	}
	metrics.ObserveRun(string(sum.Mode), sum.Status, sum.Took())

	skipped := make(map[string]int, len(sum.Skipped))
	for r, n := range sum.Skipped {
		skipped[string(r)] = n
	}
	lvl := zerolog.InfoLevel
	if sum.Status == domain.StatusError {
		lvl = zerolog.ErrorLevel
	}
	logger.C(ctx).WithLevel(lvl).Err(err).
		Str("mode", string(sum.Mode)).
		Str("issue", sum.Issue).
		Str("date", sum.Date).
		Str("status", sum.Status).
		Int("documents", sum.Documents).
		Int("eligible", sum.Eligible).
		Int("written", sum.Written).
		Int("raw_written", sum.RawWritten).
		Int("failed", sum.Failed).
		Int("verified", sum.Verified).
		Interface("skipped", skipped).
		Dur("took", sum.Took()).
		Msg("run summary")

	// recorders outlive a canceled run context
	rctx := context.WithoutCancel(ctx)
	for _, r := range s.Recorders {
		if r == nil {
			continue
		}
		dbCtx, cancel := guardrails.ForDB(rctx, guardrails.Timeouts{DB: 10 * time.Second})
		if rerr := r.RecordRun(dbCtx, *sum); rerr != nil {
			logger.C(ctx).Warn().Err(rerr).Msgf("run audit %T failed", r)
		}
		cancel()
	}
	return err
}

// fallbackDay is the published_at fallback: day, or today in UTC
func (s *Service) fallbackDay(day time.Time) time.Time {
	if day.IsZero() {
		day = s.now()
	}
	y, m, d := day.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
