// Package domain holds the ingest run types and the ports the service drives
package domain

import (
	"context"
	"io"
	"time"

	"tedingest/internal/adapters/ingest/tedpkg"
	"tedingest/internal/core/notice"
)

// RunnerPort is what the CLI drives
type RunnerPort interface {
	Run(ctx context.Context, req Request) (*Summary, error)
	Resolve(ctx context.Context, day time.Time) (string, error)
	SaveRaw(ctx context.Context, issue, root string) (tedpkg.SaveStats, error)
	UploadRaw(ctx context.Context, req Request, root string) (*Summary, error)
	IngestDocuments(ctx context.Context, src DocumentSource, day time.Time) (*Summary, error)
}

// StorageRepo is the Postgres surface bound to one transaction
type StorageRepo interface {
	UpsertNotices(ctx context.Context, ns []notice.Notice) (int, error)
	UpsertRaw(ctx context.Context, docs []RawDoc) (int, error)
	CountRun(ctx context.Context, runID string) (int, error)
	RecordRun(ctx context.Context, s Summary) error
}

// Sink persists eligible notices. Implementations decide batching and what a
// failed batch means for the rest of the write.
type Sink interface {
	Name() string
	WriteNotices(ctx context.Context, runID string, ns []notice.Notice) (SinkResult, error)
}

// RawWriter is implemented by sinks that keep the original XML
type RawWriter interface {
	WriteRaw(ctx context.Context, docs []RawDoc) (int, error)
}

// RunCounter is implemented by sinks that can verify a run after writing
type RunCounter interface {
	CountRun(ctx context.Context, runID string) (int, error)
}

// RunRecorder stores or forwards a finished run summary
type RunRecorder interface {
	RecordRun(ctx context.Context, s Summary) error
}

// Resolver finds the package id for a publication day
type Resolver interface {
	Resolve(ctx context.Context, day time.Time) (string, error)
}

// Fetcher opens a package body by issue id
type Fetcher interface {
	Fetch(ctx context.Context, issue string) (io.ReadCloser, error)
}

// Normalizer maps one raw XML document to a notice
type Normalizer interface {
	Normalize(raw []byte, fallback time.Time, hash string) (notice.Notice, error)
}

// DocumentSource feeds documents from outside a daily package, for example a
// per-notice scan. emit must be called sequentially.
type DocumentSource interface {
	Name() string
	Each(ctx context.Context, emit func(ctx context.Context, name string, raw []byte) error) error
}
