// Package tedhttp is the retrying HTTP client shared by the TED adapters
package tedhttp

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/logger"
	"tedingest/internal/platform/metrics"
)

const (
	// BaseURLDefault is the public TED site
	BaseURLDefault   = "https://ted.europa.eu"
	defaultUA        = "Mozilla/5.0 (compatible; tedingest)"
	defaultTimeout   = 60 * time.Second
	defaultMaxRetry  = 6
	defaultRetryBase = 400 * time.Millisecond
	defaultRetryCap  = 15 * time.Second
	defaultJitter    = 500 * time.Millisecond
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Retries apply to transport errors, 429 and 5xx responses.
	// Wait is min(RetryCap, RetryBase<<attempt + rand(RetryJitter)).
	MaxRetries  int
	RetryBase   time.Duration
	RetryCap    time.Duration
	RetryJitter time.Duration
}

// Client issues requests against the TED site with backoff on throttling
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
	rand  func(n int64) int64
}

// NewClient creates a Client with defaults filled in
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = BaseURLDefault
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.RetryCap <= 0 {
		o.RetryCap = defaultRetryCap
	}
	if o.RetryJitter < 0 {
		o.RetryJitter = 0
	} else if o.RetryJitter == 0 {
		o.RetryJitter = defaultJitter
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("tedhttp"),
		now:   time.Now,
		sleep: SleepCtx,
		rand:  randN,
	}
}

// BaseURL returns the configured site root without trailing slash
func (c *Client) BaseURL() string { return c.opts.BaseURL }

// URL joins path onto the site root
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.opts.BaseURL + "/" + strings.TrimLeft(path, "/")
}

// StatusError is a non-success response that was not retried (or ran out of retries)
type StatusError struct {
	Op     string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d for %s", e.Op, e.Status, e.URL)
	}
	return fmt.Sprintf("%s: unexpected status %d for %s: %s", e.Op, e.Status, e.URL, e.Body)
}

// HTTPStatus exposes the upstream status
func (e *StatusError) HTTPStatus() int { return e.Status }

func statusCode(status int) perr.ErrorCode {
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return perr.ErrorCodeNotFound
	case status == http.StatusTooManyRequests:
		return perr.ErrorCodeTooManyRequests
	case status >= 500:
		return perr.ErrorCodeUnavailable
	default:
		return perr.ErrorCodeFetch
	}
}

// Do performs method on path (absolute URL or site-relative) and returns the
// response for any 2xx or 304 status. 429 and 5xx responses and transport
// errors are retried; Retry-After is honored when present. Other statuses
// return a *StatusError wrapped with a matching error code.
// op labels logs and metrics ("probe", "package", "notice").
func (c *Client) Do(ctx context.Context, op, method, path string, hdr http.Header) (*http.Response, error) {
	url := c.URL(path)
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "%s: new request", op)
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "*/*")
		for k, vs := range hdr {
			req.Header.Del(k)
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			metrics.Upstream(op, 0)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt >= c.opts.MaxRetries {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s: %s %s", op, method, url)
			}
			wait := c.Backoff(attempt)
			c.log.Warn().Err(err).Str("op", op).Dur("retry_in", wait).Int("attempt", attempt).Msg("transport error, retrying")
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		metrics.Upstream(op, resp.StatusCode)
		c.log.Debug().
			Str("op", op).
			Str("method", method).
			Str("url", url).
			Int("status", resp.StatusCode).
			Int("attempt", attempt).
			Dur("latency", lat).
			Msg("ted http response")

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300, resp.StatusCode == http.StatusNotModified:
			return resp, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			if attempt >= c.opts.MaxRetries {
				_ = DrainAndClose(resp.Body)
				return nil, perr.Wrapf(&StatusError{Op: op, URL: url, Status: resp.StatusCode}, statusCode(resp.StatusCode), "%s: retries exhausted", op)
			}
			wait := retryAfter(resp.Header, c.now())
			if wait <= 0 {
				wait = c.Backoff(attempt)
			}
			_ = DrainAndClose(resp.Body)
			c.log.Warn().Str("op", op).Int("status", resp.StatusCode).Dur("retry_in", wait).Int("attempt", attempt).Msg("throttled, backing off")
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			_ = resp.Body.Close()
			se := &StatusError{Op: op, URL: url, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
			return nil, perr.Wrap(se, statusCode(resp.StatusCode), op)
		}
	}
}

// Backoff returns min(RetryCap, RetryBase<<attempt + rand(RetryJitter))
func (c *Client) Backoff(attempt int) time.Duration {
	if attempt > 20 {
		attempt = 20
	}
	d := c.opts.RetryBase << uint(attempt)
	if j := int64(c.opts.RetryJitter); j > 0 {
		d += time.Duration(c.rand(j))
	}
	return min(d, c.opts.RetryCap)
}

// retryAfter reads a Retry-After header in seconds or HTTP-date form
func retryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if s, err := strconv.Atoi(v); err == nil && s > 0 {
		return time.Duration(s) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

// SleepCtx waits d or until ctx is done
func SleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Jitter returns base + rand[0, spread)
func Jitter(base, spread time.Duration) time.Duration {
	if spread <= 0 {
		return base
	}
	return base + time.Duration(randN(int64(spread)))
}

// DrainAndClose discards a bounded remainder of body and closes it
func DrainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 4096))
	return rc.Close()
}

func randN(n int64) int64 {
	if n <= 0 {
		return 0
	}
	return rand.Int64N(n)
}
