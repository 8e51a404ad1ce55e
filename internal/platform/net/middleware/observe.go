package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"tedingest/internal/platform/logger"
	"tedingest/internal/platform/metrics"
	pnet "tedingest/internal/platform/net"
)

// RequestContext copies the chi request id into the logger context so
// logger.C(ctx) tags every line of the request. Mount after RequestID.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimw.GetReqID(r.Context()); id != "" {
			w.Header().Set("X-Request-ID", id)
			r = r.WithContext(pnet.WithRequest(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// captureWriter records the status and body size a handler produced
type captureWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func capture(w http.ResponseWriter) *captureWriter {
	return &captureWriter{ResponseWriter: w, status: http.StatusOK}
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	n, err := cw.ResponseWriter.Write(b)
	cw.bytes += n
	return n, err
}

// routeOf is the chi pattern that served r, e.g. /api/v1/notices/{tbID}.
// Read it after the handler ran; unrouted requests report "unmatched".
func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// Metrics counts requests and observes latency by chi route pattern
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cw := capture(w)
		start := time.Now()
		next.ServeHTTP(cw, r)

		route := routeOf(r)
		metrics.APIRequests.WithLabelValues(r.Method, route, strconv.Itoa(cw.status)).Inc()
		metrics.APIRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// AccessLogOptions configures AccessLogZerolog
type AccessLogOptions struct {
	// Slow logs requests taking at least this long at warn and counts them
	// in ted_api_slow_requests_total; 0 disables it
	Slow time.Duration
}

// AccessLogZerolog writes one line per request through logger.C, so the
// request id set by RequestContext rides along. Server errors log at error.
func AccessLogZerolog(opt AccessLogOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cw := capture(w)
			start := time.Now()
			next.ServeHTTP(cw, r)
			took := time.Since(start)

			route := routeOf(r)
			slow := opt.Slow > 0 && took >= opt.Slow
			if slow {
				metrics.APISlowRequests.WithLabelValues(r.Method, route).Inc()
			}

			log := logger.C(r.Context())
			evt := log.Info()
			switch {
			case cw.status >= http.StatusInternalServerError:
				evt = log.Error()
			case slow:
				evt = log.Warn()
			}
			evt.Str("method", r.Method).
				Str("route", route).
				Str("path", r.URL.Path).
				Int("status", cw.status).
				Int("bytes", cw.bytes).
				Dur("took", took).
				Bool("slow", slow).
				Msg("http request")
		})
	}
}
