package middleware_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/metrics"
	pnet "tedingest/internal/platform/net"
	"tedingest/internal/platform/net/middleware"
)

func TestRequestContextPropagatesID(t *testing.T) {
	var seen string
	h := middleware.RequestID()(middleware.RequestContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = pnet.RequestID(r.Context())
	})))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if seen != "abc-1" || rr.Header().Get("X-Request-ID") != "abc-1" {
		t.Fatalf("seen %q header %q", seen, rr.Header().Get("X-Request-ID"))
	}
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(middleware.Metrics)
	r.Get("/notices/{tbID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	c := metrics.APIRequests.WithLabelValues(http.MethodGet, "/notices/{tbID}", "404")
	before := testutil.ToFloat64(c)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/notices/TED-1-2025", nil))
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Fatalf("counter = %v, want %v", got, before+1)
	}
}

func TestAccessLogPassesResponseThrough(t *testing.T) {
	cases := []struct {
		name   string
		slow   time.Duration
		status int
		parts  []string
	}{
		{"created", 0, http.StatusCreated, []string{"ok"}},
		{"chunked body", 0, http.StatusOK, []string{"hi", "there"}},
		{"server error", 0, http.StatusBadGateway, []string{"upstream"}},
		{"slow marking", time.Nanosecond, http.StatusOK, []string{"slow"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				for _, p := range tc.parts {
					_, _ = io.WriteString(w, p)
				}
			})
			rr := httptest.NewRecorder()
			middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: tc.slow})(next).
				ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

			want := ""
			for _, p := range tc.parts {
				want += p
			}
			if rr.Code != tc.status || rr.Body.String() != want {
				t.Fatalf("got %d %q, want %d %q", rr.Code, rr.Body.String(), tc.status, want)
			}
		})
	}
}

func TestAccessLogCountsSlowRequests(t *testing.T) {
	r := chi.NewRouter()
	r.Use(middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: time.Nanosecond}))
	r.Get("/runs/{runID}", func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	c := metrics.APISlowRequests.WithLabelValues(http.MethodGet, "/runs/{runID}")
	before := testutil.ToFloat64(c)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/runs/ted-run-1", nil))
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Fatalf("slow counter = %v, want %v", got, before+1)
	}
}

func TestRecoverJSONWritesEnvelope(t *testing.T) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID(), middleware.RequestContext, middleware.RecoverJSON)
	r.Get("/notices/{tbID}", func(http.ResponseWriter, *http.Request) { panic("boom") })

	c := metrics.APIPanics.WithLabelValues("/notices/{tbID}")
	before := testutil.ToFloat64(c)

	req := httptest.NewRequest(http.MethodGet, "/notices/TED-1-2025", nil)
	req.Header.Set("X-Request-ID", "req-9")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	var env struct {
		StatusCode int            `json:"status_code"`
		Code       perr.ErrorCode `json:"code"`
		RequestID  string         `json:"request_id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.StatusCode != 500 || env.Code != perr.ErrorCodePanic || env.RequestID != "req-9" {
		t.Fatalf("envelope = %+v", env)
	}
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Fatalf("panic counter = %v, want %v", got, before+1)
	}
}

func TestRecoverJSONReraisesAbort(t *testing.T) {
	h := middleware.RecoverJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if v := recover(); v != http.ErrAbortHandler {
			t.Fatalf("recovered %v, want ErrAbortHandler", v)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
