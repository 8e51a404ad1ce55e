package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"tedingest/internal/adapters/ingest/tedhttp"
	"tedingest/internal/core/notice"
	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/logger"
	"tedingest/internal/services/ingest/domain"
)

// DefaultRESTBatch is rows per PostgREST request
const DefaultRESTBatch = 500

// RESTConfig points at a PostgREST compatible endpoint
type RESTConfig struct {
	URL     string
	Key     string
	Schema  string
	Table   string
	Batch   int
	Timeout time.Duration
}

// REST upserts staging rows through PostgREST with merge-duplicates. A batch
// refused with 429 or 5xx is retried once; a batch that still fails is
// logged and counted, and later batches still go out. Raw documents are not
// written in this mode.
type REST struct {
	cfg   RESTConfig
	http  *http.Client
	log   logger.Logger
	pause time.Duration
}

// NewREST builds a REST sink with defaults filled in
func NewREST(cfg RESTConfig) *REST {
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.Schema == "" {
		cfg.Schema = "tb"
	}
	if cfg.Table == "" {
		cfg.Table = "ted_staging_std"
	}
	if cfg.Batch <= 0 {
		cfg.Batch = DefaultRESTBatch
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &REST{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, log: *logger.Named("sink"), pause: time.Second}
}

// Name implements domain.Sink
func (s *REST) Name() string { return "rest" }

// Endpoint is the table URL requests are posted to
func (s *REST) Endpoint() string { return s.cfg.URL + "/rest/v1/" + s.cfg.Table }

// WriteNotices posts ns in batches. The error is non-nil only when the
// context ends; per-batch failures show up in SinkResult.Failed.
func (s *REST) WriteNotices(ctx context.Context, runID string, ns []notice.Notice) (domain.SinkResult, error) {
	if s.cfg.URL == "" {
		return domain.SinkResult{}, perr.InvalidArgf("rest sink: url is required")
	}
	rows, rejected := Prepare(runID, ns)
	res := domain.SinkResult{Failed: rejected}
	if rejected > 0 {
		logger.C(ctx).Warn().Int("rejected", rejected).Msg("ineligible notices not posted")
	}
	for i := 0; i < len(rows); i += s.cfg.Batch {
		if err := ctx.Err(); err != nil {
			res.Failed += len(rows) - i
			return res, err
		}
		end := min(i+s.cfg.Batch, len(rows))
		err := s.post(ctx, rows[i:end])
		if perr.Retryable(err) {
			logger.C(ctx).Warn().Err(err).Int("batch_start", i).Msg("rest batch refused, retrying once")
			if serr := tedhttp.SleepCtx(ctx, s.pause); serr == nil {
				err = s.post(ctx, rows[i:end])
			}
		}
		if err != nil {
			res.Failed += end - i
			logger.C(ctx).Error().Err(err).
				Int("batch_start", i).
				Int("batch_rows", end-i).
				Msg("rest batch failed")
			continue
		}
		res.Written += end - i
	}
	return res, nil
}

func (s *REST) post(ctx context.Context, rows []notice.Notice) error {
	body, err := json.Marshal(rows)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "rest sink: encode batch")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeInvalidArgument, "rest sink: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates")
	req.Header.Set("Accept-Profile", s.cfg.Schema)
	req.Header.Set("Content-Profile", s.cfg.Schema)
	if s.cfg.Key != "" {
		req.Header.Set("apikey", s.cfg.Key)
		req.Header.Set("Authorization", "Bearer "+s.cfg.Key)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "rest sink: post")
	}
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = tedhttp.DrainAndClose(resp.Body)
		code := perr.ErrorCodeDB
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			code = perr.ErrorCodeTooManyRequests
		case resp.StatusCode >= http.StatusInternalServerError:
			code = perr.ErrorCodeUnavailable
		}
		return perr.Newf(code, "rest sink: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return tedhttp.DrainAndClose(resp.Body)
}
