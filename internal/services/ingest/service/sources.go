package service

import (
	"context"
	"strconv"

	"tedingest/internal/adapters/ingest/tednotice"
)

// ScanSource feeds notices found by walking ids downward for one year
type ScanSource struct {
	Scanner  *tednotice.Scanner
	Year     int
	From, To int

	Stats tednotice.ScanStats
}

// Name implements domain.DocumentSource
func (s *ScanSource) Name() string { return "scan:" + strconv.Itoa(s.Year) }

// Each implements domain.DocumentSource
func (s *ScanSource) Each(ctx context.Context, emit func(context.Context, string, []byte) error) error {
	st, err := s.Scanner.Scan(ctx, s.Year, s.From, s.To, func(ctx context.Context, h tednotice.Hit) error {
		return emit(ctx, h.ID+".xml", h.Raw)
	})
	s.Stats = st
	return err
}

// PageSource feeds the single notice linked from a detail page
type PageSource struct {
	Client *tednotice.Client
	URL    string
}

// Name implements domain.DocumentSource
func (p *PageSource) Name() string { return "page" }

// Each implements domain.DocumentSource
func (p *PageSource) Each(ctx context.Context, emit func(context.Context, string, []byte) error) error {
	xmlURL, raw, err := p.Client.FetchNotice(ctx, p.URL)
	if err != nil {
		return err
	}
	return emit(ctx, xmlURL, raw)
}
