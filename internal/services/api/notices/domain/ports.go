package domain

import (
	"context"

	"tedingest/internal/core/notice"
)

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	Get(ctx context.Context, tbID string) (notice.Notice, error)
	List(ctx context.Context, in ListInput) (ListResult, error)
	Run(ctx context.Context, runID string) (Run, error)
}
