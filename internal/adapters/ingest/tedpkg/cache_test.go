package tedpkg

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"tedingest/internal/adapters/ingest/tedhttp"
	perr "tedingest/internal/platform/errors"
)

func packageServer(t *testing.T, body string) (*httptest.Server, *atomic.Int32, *atomic.Int32) {
	t.Helper()
	var gets, conditional atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PackagePath("202500198") {
			http.NotFound(w, r)
			return
		}
		gets.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &gets, &conditional
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(b)
}

func TestHTTPFetcher(t *testing.T) {
	srv, _, _ := packageServer(t, "payload")
	f := NewHTTPFetcher(tedhttp.NewClient(tedhttp.Options{BaseURL: srv.URL, MaxRetries: -1}))

	rc, err := f.Fetch(context.Background(), "202500198")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := readAll(t, rc); got != "payload" {
		t.Fatalf("body = %q", got)
	}
	if _, err := f.Fetch(context.Background(), "202500199"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("missing package err = %v, want NotFound", err)
	}
	if _, err := f.Fetch(context.Background(), ""); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("empty issue err = %v", err)
	}
}

func TestCachedFetcherServesFromDisk(t *testing.T) {
	srv, gets, _ := packageServer(t, "payload")
	dir := t.TempDir()
	f := NewCachedFetcher(dir, tedhttp.NewClient(tedhttp.Options{BaseURL: srv.URL, MaxRetries: -1}))

	for i := 0; i < 2; i++ {
		rc, err := f.Fetch(context.Background(), "202500198")
		if err != nil {
			t.Fatalf("Fetch #%d: %v", i, err)
		}
		if got := readAll(t, rc); got != "payload" {
			t.Fatalf("body #%d = %q", i, got)
		}
	}
	if gets.Load() != 1 {
		t.Fatalf("upstream gets = %d, want 1", gets.Load())
	}
	meta, err := loadMeta(filepath.Join(dir, "202500198"+cacheExt+".meta"))
	if err != nil || meta.ETag != `"v1"` || meta.Size != 7 {
		t.Fatalf("meta = %+v, %v", meta, err)
	}
}

func TestCachedFetcherRevalidates(t *testing.T) {
	srv, gets, conditional := packageServer(t, "payload")
	f := NewCachedFetcher(t.TempDir(), tedhttp.NewClient(tedhttp.Options{BaseURL: srv.URL, MaxRetries: -1}), WithRevalidate(true))

	_ = readAll(t, mustFetch(t, f, "202500198"))
	if got := readAll(t, mustFetch(t, f, "202500198")); got != "payload" {
		t.Fatalf("body after 304 = %q", got)
	}
	if gets.Load() != 2 || conditional.Load() != 1 {
		t.Fatalf("gets=%d conditional=%d", gets.Load(), conditional.Load())
	}
}

func TestCachedFetcherRejectsBadIssue(t *testing.T) {
	f := NewCachedFetcher(t.TempDir(), tedhttp.NewClient(tedhttp.Options{MaxRetries: -1}))
	if _, err := f.Fetch(context.Background(), "../etc"); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}

func TestCacheRetention(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC)
	write := func(issue string, size int, fetched time.Time) {
		p := filepath.Join(dir, issue+cacheExt)
		if err := os.WriteFile(p, make([]byte, size), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := saveMeta(p+".meta", &cacheMeta{FetchedAt: fetched}); err != nil {
			t.Fatal(err)
		}
	}
	write("202500100", 10, now.Add(-40*24*time.Hour))
	write("202500190", 10, now.Add(-3*24*time.Hour))
	write("202500195", 10, now.Add(-2*24*time.Hour))
	write("202500198", 10, now.Add(-1*24*time.Hour))

	f := NewCachedFetcher(dir, nil, WithRetention(30*24*time.Hour, 20))
	f.now = func() time.Time { return now }
	if err := f.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	for issue, keep := range map[string]bool{
		"202500100": false, // too old
		"202500190": false, // oldest over the byte budget
		"202500195": true,
		"202500198": true,
	} {
		_, err := os.Stat(filepath.Join(dir, issue+cacheExt))
		if kept := err == nil; kept != keep {
			t.Fatalf("%s kept=%v want %v", issue, kept, keep)
		}
	}
}

func mustFetch(t *testing.T, f Fetcher, issue string) io.ReadCloser {
	t.Helper()
	rc, err := f.Fetch(context.Background(), issue)
	if err != nil {
		t.Fatalf("Fetch %s: %v", issue, err)
	}
	return rc
}
