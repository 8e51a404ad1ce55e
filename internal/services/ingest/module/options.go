package module

import (
	"time"

	"tedingest/internal/adapters/ingest/tedhttp"
	"tedingest/internal/adapters/ingest/tednotice"
	"tedingest/internal/core/version"
	"tedingest/internal/platform/config"
	"tedingest/internal/services/ingest/guardrails"
	"tedingest/internal/services/ingest/repo"
)

// Sink names
const (
	SinkPG   = "pg"
	SinkREST = "rest"
)

// Options holds configuration for the ingest module
type Options struct {
	// CORE_INGEST_*
	Source    string
	Sink      string
	BatchRows int
	SaveRaw   bool
	Timeouts  guardrails.Timeouts

	// CORE_TED_*
	HTTP           tedhttp.Options
	ProbeFrom      int
	ProbeTo        int
	ProbeDelay     time.Duration
	ProbeJitter    time.Duration
	CacheDir       string
	Revalidate     bool
	RetainMaxAge   time.Duration
	RetainMaxBytes int64

	// CORE_NOTICE_*
	NoticeBaseURL string
	Scan          tednotice.ScanOptions

	// CORE_REST_*
	REST repo.RESTConfig
}

// FromConfig reads CORE_INGEST_*, CORE_TED_*, CORE_NOTICE_* and CORE_REST_*
func FromConfig(cfg config.Conf) Options {
	in := cfg.Prefix("CORE_INGEST_")
	ted := cfg.Prefix("CORE_TED_")
	nt := cfg.Prefix("CORE_NOTICE_")
	rs := cfg.Prefix("CORE_REST_")

	base := ted.MayString("BASE_URL", tedhttp.BaseURLDefault)
	return Options{
		Source:    in.MayString("SOURCE", "TED"),
		Sink:      in.MayEnum("SINK", SinkPG, SinkPG, SinkREST),
		BatchRows: in.MayInt("BATCH_ROWS", repo.DefaultBatch),
		SaveRaw:   in.MayBool("SAVE_RAW", true),
		Timeouts: guardrails.Timeouts{
			Run:   in.MayDuration("RUN_TIMEOUT", 0),
			Fetch: in.MayDuration("FETCH_TIMEOUT", 10*time.Minute),
			Read:  in.MayDuration("READ_TIMEOUT", 20*time.Minute),
			DB:    in.MayDuration("DB_TIMEOUT", 5*time.Minute),
		},

		HTTP: tedhttp.Options{
			BaseURL:    base,
			UserAgent:  ted.MayString("USER_AGENT", "Mozilla/5.0 (compatible; "+version.UserAgent()+")"),
			Timeout:    ted.MayDuration("HTTP_TIMEOUT", 0),
			MaxRetries: ted.MayInt("RETRIES", 0),
			RetryBase:  ted.MayDuration("RETRY_BASE", 0),
			RetryCap:   ted.MayDuration("RETRY_CAP", 0),
		},
		ProbeFrom:      ted.MayInt("PROBE_FROM", 0),
		ProbeTo:        ted.MayInt("PROBE_TO", 0),
		ProbeDelay:     ted.MayDuration("PROBE_DELAY", 0),
		ProbeJitter:    ted.MayDuration("PROBE_JITTER", 0),
		CacheDir:       ted.MayString("CACHE_DIR", ""),
		Revalidate:     ted.MayBool("CACHE_REVALIDATE", false),
		RetainMaxAge:   time.Duration(ted.MayInt("RETAIN_MAX_DAYS", 0)) * 24 * time.Hour,
		RetainMaxBytes: ted.MayInt64("RETAIN_MAX_BYTES", 0),

		NoticeBaseURL: nt.MayString("BASE_URL", base),
		Scan: tednotice.ScanOptions{
			MaxMiss:   nt.MayInt("MAX_MISS", 0),
			Delay:     nt.MayDuration("DELAY", 0),
			Jitter:    nt.MayDuration("JITTER", 0),
			RatePause: nt.MayDuration("RATE_PAUSE", 0),
		},

		REST: repo.RESTConfig{
			URL:    rs.MayString("URL", ""),
			Key:    rs.MayString("KEY", ""),
			Schema: rs.MayString("SCHEMA", "tb"),
			Batch:  rs.MayInt("BATCH_ROWS", repo.DefaultRESTBatch),
		},
	}
}
