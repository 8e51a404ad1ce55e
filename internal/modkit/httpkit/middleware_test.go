package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func applyStack(h http.Handler, stack []func(http.Handler) http.Handler) http.Handler {
	for i := len(stack) - 1; i >= 0; i-- {
		h = stack[i](h)
	}
	return h
}

func TestCommonStackReachesHandler(t *testing.T) {
	hit := 0
	var reqID string
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit++
		reqID = w.Header().Get("X-Request-ID")
		w.WriteHeader(http.StatusNoContent)
	})
	root := applyStack(final, CommonStack(nil))

	rr := httptest.NewRecorder()
	root.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping/", nil))
	if hit != 1 || rr.Code != http.StatusNoContent {
		t.Fatalf("hit %d code %d", hit, rr.Code)
	}
	if reqID == "" {
		t.Fatalf("request id header not set")
	}
	if rr.Header().Get("Cache-Control") == "" {
		t.Fatalf("no cache headers missing")
	}
}

func TestCommonStackCORS(t *testing.T) {
	root := applyStack(http.NotFoundHandler(), CommonStack([]string{"https://app.example"}))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://app.example")
	rr := httptest.NewRecorder()
	root.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	root.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("foreign origin allowed: %q", got)
	}
}
