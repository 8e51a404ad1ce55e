package tednotice

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"tedingest/internal/adapters/ingest/tedhttp"
	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/logger"
)

const (
	defaultMaxMiss     = 120
	defaultDelay       = 700 * time.Millisecond
	defaultJitter      = 400 * time.Millisecond
	defaultRatePause   = 5 * time.Second
	defaultRateJitter  = 2 * time.Second
	defaultPrefetchBuf = 4
)

// XMLFetcher is the slice of Client the scanner needs
type XMLFetcher interface {
	FetchXML(ctx context.Context, n, year int) ([]byte, error)
}

// ScanOptions tunes politeness and the stop rule
type ScanOptions struct {
	MaxMiss    int
	Delay      time.Duration
	Jitter     time.Duration
	RatePause  time.Duration
	RateJitter time.Duration
	Prefetch   int
}

// Hit is one downloaded notice
type Hit struct {
	ID  string // "<n>-<year>"
	N   int
	Raw []byte
}

// ScanStats reports a scan
type ScanStats struct {
	Probed    int
	Hits      int
	Misses    int // total, not consecutive
	Throttled int
	Last      int // last id probed
	Exhausted bool
}

// Scanner walks notice numbers downward for one year and hands every
// downloaded notice to a consumer. Fetching stays strictly sequential; the
// consumer runs alongside so a slow sink does not stall the politeness timer.
type Scanner struct {
	f     XMLFetcher
	opts  ScanOptions
	log   logger.Logger
	sleep func(context.Context, time.Duration) error
	rand  func(time.Duration, time.Duration) time.Duration
}

// NewScanner builds a Scanner; zero options take the defaults
func NewScanner(f XMLFetcher, o ScanOptions) *Scanner {
	if o.MaxMiss <= 0 {
		o.MaxMiss = defaultMaxMiss
	}
	if o.Delay <= 0 {
		o.Delay = defaultDelay
	}
	if o.Jitter <= 0 {
		o.Jitter = defaultJitter
	}
	if o.RatePause <= 0 {
		o.RatePause = defaultRatePause
	}
	if o.RateJitter <= 0 {
		o.RateJitter = defaultRateJitter
	}
	if o.Prefetch <= 0 {
		o.Prefetch = defaultPrefetchBuf
	}
	return &Scanner{
		f:     f,
		opts:  o,
		log:   *logger.Named("tednotice"),
		sleep: tedhttp.SleepCtx,
		rand:  tedhttp.Jitter,
	}
}

// Scan probes from, from-1, ... down to to (inclusive). 404 and other
// failures count as misses; a 429 pauses and retries the same id. The scan
// stops after MaxMiss consecutive misses. A consumer error stops the scan and
// is returned.
func (s *Scanner) Scan(ctx context.Context, year, from, to int, consume func(context.Context, Hit) error) (ScanStats, error) {
	if from < to {
		return ScanStats{}, perr.InvalidArgf("tednotice: scan goes downward, from %d < to %d", from, to)
	}
	var st ScanStats
	hits := make(chan Hit, s.opts.Prefetch)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(hits)
		return s.produce(gctx, year, from, to, hits, &st)
	})
	g.Go(func() error {
		for h := range hits {
			if err := consume(gctx, h); err != nil {
				return perr.WithOp(err, "tednotice.consume")
			}
		}
		return nil
	})

	err := g.Wait()
	s.log.Info().
		Int("year", year).
		Int("from", from).
		Int("last", st.Last).
		Int("probed", st.Probed).
		Int("hits", st.Hits).
		Int("misses", st.Misses).
		Int("throttled", st.Throttled).
		Bool("exhausted", st.Exhausted).
		Msg("notice scan finished")
	return st, err
}

func (s *Scanner) produce(ctx context.Context, year, from, to int, out chan<- Hit, st *ScanStats) error {
	consecutive := 0
	for n := from; n >= to; {
		if err := ctx.Err(); err != nil {
			return err
		}
		st.Probed++
		st.Last = n
		id := strconv.Itoa(n) + "-" + strconv.Itoa(year)

		raw, err := s.f.FetchXML(ctx, n, year)
		switch {
		case err == nil:
			st.Hits++
			consecutive = 0
			s.log.Debug().Str("notice", id).Int("bytes", len(raw)).Msg("notice fetched")
			select {
			case out <- Hit{ID: id, N: n, Raw: raw}:
			case <-ctx.Done():
				return ctx.Err()
			}
		case ctx.Err() != nil:
			return ctx.Err()
		case perr.IsCode(err, perr.ErrorCodeTooManyRequests):
			st.Throttled++
			pause := s.rand(s.opts.RatePause, s.opts.RateJitter)
			s.log.Warn().Str("notice", id).Dur("pause", pause).Msg("rate limited, pausing")
			if err := s.sleep(ctx, pause); err != nil {
				return err
			}
			continue
		default:
			st.Misses++
			consecutive++
			if !perr.IsCode(err, perr.ErrorCodeNotFound) {
				s.log.Warn().Err(err).Str("notice", id).Msg("notice fetch failed")
			}
		}

		if err := s.sleep(ctx, s.rand(s.opts.Delay, s.opts.Jitter)); err != nil {
			return err
		}
		if consecutive >= s.opts.MaxMiss {
			st.Exhausted = true
			s.log.Info().Int("misses", consecutive).Msg("stopping after consecutive misses")
			return nil
		}
		n--
	}
	return nil
}
