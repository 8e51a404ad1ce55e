package http

import (
	stdctx "context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	phttp "tedingest/internal/platform/net/http"
)

type pinger struct{ err error }

func (p pinger) Ping(stdctx.Context) error { return p.err }

func get(t *testing.T, d Deps, path string) (int, map[string]any) {
	t.Helper()
	mux := chi.NewRouter()
	Register(phttp.AdaptChi(mux), d)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Code, env.Data
}

func TestReady(t *testing.T) {
	cases := []struct {
		name   string
		pg, ch any
		code   int
		status string
	}{
		{"all ok", pinger{}, pinger{}, 200, "ok"},
		{"clickhouse disabled", pinger{}, nil, 200, "ok"},
		{"no pinger", struct{}{}, nil, 200, "degraded"},
		{"pg down", pinger{err: errors.New("refused")}, pinger{}, 503, "fail"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := Deps{ServiceName: "ted-api", Checks: []Check{{"pg", c.pg}, {"ch", c.ch}}}
			code, data := get(t, d, "/ready")
			if code != c.code || data["status"] != c.status {
				t.Fatalf("code %d data %v", code, data)
			}
			checks := data["checks"].([]any)
			if len(checks) != 2 || checks[0].(map[string]any)["name"] != "pg" {
				t.Fatalf("checks out of order: %v", checks)
			}
		})
	}
}

type slowPinger struct{}

func (slowPinger) Ping(ctx stdctx.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestReadyTimeout(t *testing.T) {
	d := Deps{Checks: []Check{{"pg", slowPinger{}}}, ReadyTimeout: 10 * time.Millisecond}
	code, data := get(t, d, "/ready")
	if code != http.StatusServiceUnavailable || data["status"] != "fail" {
		t.Fatalf("code %d data %v", code, data)
	}
}

func TestVersionAndService(t *testing.T) {
	d := Deps{ServiceName: "ted-api", StartedAt: time.Now().Add(-time.Minute)}
	if _, data := get(t, d, "/version"); data["service"] != "ted-api" {
		t.Fatalf("version = %v", data)
	}
	if _, data := get(t, d, "/service"); data["uptime"].(float64) < 59 {
		t.Fatalf("service = %v", data)
	}
	if code, data := get(t, d, "/health"); code != 200 || data["ok"] != true {
		t.Fatalf("health = %d %v", code, data)
	}
}
