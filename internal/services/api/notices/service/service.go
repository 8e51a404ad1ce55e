// Package service contains the notices read workflows
package service

import (
	"context"
	"strings"
	"time"

	"tedingest/internal/core/notice"
	"tedingest/internal/modkit/repokit"
	perr "tedingest/internal/platform/errors"
	"tedingest/internal/services/api/notices/domain"
	"tedingest/internal/services/api/notices/repo"
)

// Service defines the notices service contract
type Service interface {
	domain.ServicePort
}

// Svc implements the notices service
type Svc struct {
	Repo repo.Repo
}

// New constructs a notices service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo]) *Svc {
	if db == nil {
		panic("notices.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("notices.Service requires a non nil Repo binder")
	}
	return &Svc{Repo: binder.Bind(db)}
}

// Get returns one notice by its composite id, e.g. TED|612001-2025
func (s *Svc) Get(ctx context.Context, tbID string) (notice.Notice, error) {
	tbID = strings.TrimSpace(tbID)
	if tbID == "" {
		return notice.Notice{}, perr.WithField(perr.InvalidArgf("tb id is required"), "tb_id")
	}
	return s.Repo.Get(ctx, tbID)
}

// List returns the newest notices matching in; one extra row is read to set More
func (s *Svc) List(ctx context.Context, in domain.ListInput) (domain.ListResult, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = domain.DefaultLimit
	}
	limit = min(limit, domain.MaxLimit)

	var day *time.Time
	if !in.Published.IsZero() {
		day = &in.Published
	}
	rows, err := s.Repo.List(ctx, day, in.Award, limit+1)
	if err != nil {
		return domain.ListResult{}, err
	}
	more := len(rows) > limit
	if more {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []notice.Notice{}
	}
	return domain.ListResult{Items: rows, Limit: limit, More: more}, nil
}

// Run returns the recorded run with the count of staging rows it still tags
func (s *Svc) Run(ctx context.Context, runID string) (domain.Run, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return domain.Run{}, perr.WithField(perr.InvalidArgf("run id is required"), "run_id")
	}
	run, err := s.Repo.Run(ctx, runID)
	if err != nil {
		return run, err
	}
	if run.Rows, err = s.Repo.CountRun(ctx, runID); err != nil {
		return run, err
	}
	return run, nil
}
