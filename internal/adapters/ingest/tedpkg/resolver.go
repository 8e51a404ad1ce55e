package tedpkg

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tedingest/internal/adapters/ingest/tedhttp"
	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/logger"
)

const (
	packagePath = "/packages/daily/"

	defaultProbeFrom   = 1
	defaultProbeTo     = 400
	defaultProbeDelay  = 30 * time.Millisecond
	defaultProbeJitter = 20 * time.Millisecond
)

// IssueID formats the package id for sequence n of year (2025, 173 -> "202500173")
func IssueID(year, n int) string {
	return fmt.Sprintf("%04d%05d", year, n)
}

// PackagePath is the site path of a daily package
func PackagePath(issue string) string {
	return packagePath + issue
}

// ResolverOptions bounds the probe window
type ResolverOptions struct {
	From   int
	To     int
	Delay  time.Duration
	Jitter time.Duration
}

// Resolver finds the package id published for a given day
type Resolver struct {
	c     *tedhttp.Client
	opts  ResolverOptions
	log   logger.Logger
	sleep func(context.Context, time.Duration) error
	pause func() time.Duration
}

// NewResolver builds a Resolver over c; zero options take the defaults (1..400, ~30ms apart)
func NewResolver(c *tedhttp.Client, o ResolverOptions) *Resolver {
	if o.From <= 0 {
		o.From = defaultProbeFrom
	}
	if o.To <= 0 {
		o.To = defaultProbeTo
	}
	if o.Delay < 0 {
		o.Delay = 0
	} else if o.Delay == 0 {
		o.Delay = defaultProbeDelay
	}
	if o.Jitter < 0 {
		o.Jitter = 0
	} else if o.Jitter == 0 {
		o.Jitter = defaultProbeJitter
	}
	r := &Resolver{c: c, opts: o, log: *logger.Named("tedpkg"), sleep: tedhttp.SleepCtx}
	r.pause = func() time.Duration { return tedhttp.Jitter(r.opts.Delay, r.opts.Jitter) }
	return r
}

// Resolve probes <year>00001 upward with HEAD and returns the first id whose
// Content-Disposition names the day as "<yyyymmdd>_". Probe failures are
// skipped; an exhausted window is a NotFound error.
func (r *Resolver) Resolve(ctx context.Context, day time.Time) (string, error) {
	day = day.UTC()
	needle := day.Format("20060102") + "_"
	log := logger.C(ctx).With().Str("component", "tedpkg").Str("date", day.Format(time.DateOnly)).Logger()

	log.Info().Int("from", r.opts.From).Int("to", r.opts.To).Msg("resolving package id")
	for n := r.opts.From; n <= r.opts.To; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		id := IssueID(day.Year(), n)
		cd, ok := r.probe(ctx, id)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if ok && strings.Contains(cd, needle) {
			log.Info().
				Str("issue", id).
				Str("content_disposition", cd).
				Bool("heuristic", true).
				Int("probes", n-r.opts.From+1).
				Msg("package id resolved")
			return id, nil
		}
		if n < r.opts.To {
			if err := r.sleep(ctx, r.pause()); err != nil {
				return "", err
			}
		}
	}
	return "", perr.NotFoundf("no daily package for %s in %s..%s",
		day.Format(time.DateOnly), IssueID(day.Year(), r.opts.From), IssueID(day.Year(), r.opts.To))
}

// probe HEADs one package id and returns its Content-Disposition
func (r *Resolver) probe(ctx context.Context, id string) (string, bool) {
	resp, err := r.c.Do(ctx, "probe", http.MethodHead, PackagePath(id), nil)
	if err != nil {
		if !perr.IsCode(err, perr.ErrorCodeNotFound) {
			r.log.Debug().Err(err).Str("issue", id).Msg("probe failed")
		}
		return "", false
	}
	_ = tedhttp.DrainAndClose(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	return resp.Header.Get("Content-Disposition"), true
}
