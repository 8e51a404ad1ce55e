package domain

import (
	"time"

	"github.com/google/uuid"

	"tedingest/internal/core/notice"
)

// Mode names the producer that fed a run
type Mode string

// Run modes
const (
	ModeArchive Mode = "archive" // daily package
	ModeNotices Mode = "notices" // per-notice scan or single fetch
	ModeUpload  Mode = "upload"  // raw directory into the raw table
)

// Run statuses
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusError   = "error"
)

// DayLayout is the calendar day format used on the CLI and in run ids
const DayLayout = "2006-01-02"

// Request selects what a run ingests. Issue wins over Date when both are set;
// Date is still used as the published_at fallback.
type Request struct {
	Date  time.Time
	Issue string
}

// NewRunID returns "ted-run:<issue|auto>:<day>:<uuid>"
func NewRunID(issue string, day time.Time) string {
	i, d := "auto", "auto"
	if issue != "" {
		i = issue
	}
	if !day.IsZero() {
		d = day.UTC().Format(DayLayout)
	}
	return "ted-run:" + i + ":" + d + ":" + uuid.NewString()
}

// RawDoc is one original XML document for the raw archive table
type RawDoc struct {
	Source   string
	SourceID string
	XML      []byte
	SHA256   string
}

// SinkResult reports one staging write
type SinkResult struct {
	Written int
	Failed  int
}

// Sample is a logged excerpt of a document without a native id
type Sample struct {
	Name           string `json:"name"`
	Root           string `json:"root"`
	HasPublication bool   `json:"has_publication_id"`
	Head           string `json:"head"`
}

// Summary is the outcome of one run; it is logged, stored and published
type Summary struct {
	RunID      string                    `json:"run_id"`
	Mode       Mode                      `json:"mode"`
	Issue      string                    `json:"issue,omitempty"`
	Date       string                    `json:"date,omitempty"`
	Status     string                    `json:"status"`
	Documents  int                       `json:"documents"`
	Eligible   int                       `json:"eligible"`
	Written    int                       `json:"written"`
	RawWritten int                       `json:"raw_written"`
	Failed     int                       `json:"failed"`
	Verified   int                       `json:"verified"`
	Skipped    map[notice.SkipReason]int `json:"skipped"`
	Error      string                    `json:"error,omitempty"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
}

// NewSummary starts a summary for runID
func NewSummary(runID string, mode Mode, issue string, day time.Time) *Summary {
	s := &Summary{
		RunID:     runID,
		Mode:      mode,
		Issue:     issue,
		Skipped:   map[notice.SkipReason]int{},
		StartedAt: time.Now().UTC(),
	}
	if !day.IsZero() {
		s.Date = day.UTC().Format(DayLayout)
	}
	return s
}

// Skip counts one dropped document per reason
func (s *Summary) Skip(reasons ...notice.SkipReason) {
	for _, r := range reasons {
		s.Skipped[r]++
	}
}

// SkippedTotal is the number of skip increments across reasons
func (s *Summary) SkippedTotal() int {
	n := 0
	for _, v := range s.Skipped {
		n += v
	}
	return n
}

// Finish stamps the end time and derives Status from err and Failed
func (s *Summary) Finish(err error) {
	s.FinishedAt = time.Now().UTC()
	switch {
	case err != nil:
		s.Status = StatusError
		s.Error = err.Error()
	case s.Failed > 0:
		s.Status = StatusPartial
	default:
		s.Status = StatusOK
	}
}

// Took is the wall time of the run
func (s *Summary) Took() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
