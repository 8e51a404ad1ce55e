// Package domain holds DTOs for the notices read API
package domain

import (
	"time"

	"tedingest/internal/core/notice"
)

// DefaultLimit and MaxLimit bound list requests
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ListInput filters the staging table; dates are UTC calendar days
type ListInput struct {
	Published time.Time `query:"published" example:"2025-10-10"`
	Limit     int       `query:"limit" validate:"omitempty,min=1,max=500" example:"50"`
	Award     *bool     `query:"award" example:"false"`
}

// ListResult is one page of notices
type ListResult struct {
	Items []notice.Notice `json:"items"`
	Limit int             `json:"limit"`
	More  bool            `json:"more"`
}

// Run is a recorded ingest run plus the staging rows it still owns
type Run struct {
	RunID      string         `json:"run_id" example:"ted-run:202500201:2025-10-10:6f1c"`
	Mode       string         `json:"mode" example:"archive"`
	Issue      *string        `json:"issue,omitempty" example:"202500201"`
	TargetDate *time.Time     `json:"target_date,omitempty"`
	Status     string         `json:"status" example:"ok"`
	Documents  int            `json:"documents" example:"1200"`
	Eligible   int            `json:"eligible" example:"1100"`
	Written    int            `json:"written" example:"1100"`
	RawWritten int            `json:"raw_written" example:"1200"`
	Failed     int            `json:"failed" example:"0"`
	Skipped    map[string]int `json:"skipped"`
	Error      *string        `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`

	// Rows counts staging rows whose run_id is still this run
	Rows int `json:"rows" example:"1100"`
}
