package service

import (
	"context"

	"tedingest/internal/adapters/ingest/tedpkg"
	"tedingest/internal/core/notice"
	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/logger"
	"tedingest/internal/services/ingest/domain"
	"tedingest/internal/services/ingest/guardrails"
)

// SaveRaw streams package issue into <root>/issue-<issue>/ without touching
// the database
func (s *Service) SaveRaw(ctx context.Context, issue, root string) (tedpkg.SaveStats, error) {
	if issue == "" {
		return tedpkg.SaveStats{}, perr.InvalidArgf("an issue id is required")
	}
	if s.Fetch == nil {
		return tedpkg.SaveStats{}, perr.InvalidArgf("no package fetcher configured")
	}
	fetchCtx, cancel := guardrails.ForFetch(ctx, s.Cfg.Timeouts)
	defer cancel()

	rc, err := s.Fetch.Fetch(fetchCtx, issue)
	if err != nil {
		return tedpkg.SaveStats{}, err
	}
	rd, err := tedpkg.NewReader(rc)
	if err != nil {
		return tedpkg.SaveStats{}, err
	}
	defer func() { _ = rd.Close() }()

	st, err := tedpkg.SaveDir(root, issue, rd)
	logger.C(ctx).Info().
		Str("issue", issue).
		Str("dir", st.Dir).
		Int("entries", st.Entries).
		Int("saved", st.Saved).
		Int("failed", st.Failed).
		Msg("raw package saved")
	return st, err
}

// UploadRaw loads a directory written by SaveRaw into the raw table. The
// source id is the derived native id, else the file name.
func (s *Service) UploadRaw(ctx context.Context, req domain.Request, root string) (sum *domain.Summary, retErr error) {
	rw, ok := s.Sink.(domain.RawWriter)
	if !ok {
		return nil, perr.InvalidArgf("sink %s cannot store raw documents", s.Sink.Name())
	}

	sum = domain.NewSummary(domain.NewRunID(req.Issue, req.Date), domain.ModeUpload, req.Issue, req.Date)
	ctx = logger.WithRun(ctx, sum.RunID, req.Issue)
	defer func() { retErr = s.finish(ctx, sum, retErr) }()

	issue := req.Issue
	if issue == "" {
		id, err := s.Resolve(ctx, req.Date)
		if err != nil {
			return sum, err
		}
		issue, sum.Issue = id, id
	}

	files, err := tedpkg.LoadDir(root, issue)
	if err != nil {
		return sum, err
	}
	fallback := s.fallbackDay(req.Date)
	docs := make([]domain.RawDoc, 0, len(files))
	for _, f := range files {
		sum.Documents++
		hash := notice.Hash(f.Raw)
		id := f.SourceID
		if n, err := s.Norm.Normalize(f.Raw, fallback, hash); err == nil && n.NativeID != nil {
			id = *n.NativeID
		}
		docs = append(docs, domain.RawDoc{Source: s.Cfg.Source, SourceID: id, XML: f.Raw, SHA256: hash})
	}
	sum.Eligible = len(docs)

	dbCtx, cancel := guardrails.ForDB(ctx, s.Cfg.Timeouts)
	defer cancel()
	n, err := rw.WriteRaw(dbCtx, docs)
	sum.RawWritten = n
	if err != nil {
		sum.Failed = len(docs) - n
	}
	return sum, err
}
