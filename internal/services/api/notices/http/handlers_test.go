package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"

	"tedingest/internal/core/notice"
	perr "tedingest/internal/platform/errors"
	phttp "tedingest/internal/platform/net/http"
	"tedingest/internal/services/api/notices/domain"
)

type fakeSvc struct{ lastList domain.ListInput }

func (f *fakeSvc) Get(_ context.Context, id string) (notice.Notice, error) {
	if id != "TED|612001-2025" {
		return notice.Notice{}, perr.NotFoundf("notice %s not found", id)
	}
	return notice.Notice{TBID: &id, Source: "TED", IsAward: true}, nil
}

func (f *fakeSvc) List(_ context.Context, in domain.ListInput) (domain.ListResult, error) {
	f.lastList = in
	id := "TED|1-2025"
	return domain.ListResult{Items: []notice.Notice{{TBID: &id}}, Limit: 1, More: true}, nil
}

func (f *fakeSvc) Run(_ context.Context, id string) (domain.Run, error) {
	return domain.Run{RunID: id, Status: "ok", Rows: 7}, nil
}

func serve(t *testing.T, s *fakeSvc, target string) (int, map[string]any) {
	t.Helper()
	mux := chi.NewRouter()
	Register(phttp.AdaptChi(mux), s)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, target, nil))
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return rec.Code, body
}

func TestRoutes(t *testing.T) {
	cases := []struct {
		name   string
		target string
		status int
	}{
		{"get notice", "/notices/" + url.PathEscape("TED|612001-2025"), 200},
		{"missing notice", "/notices/TED%7C1-1999", 404},
		{"list", "/notices?published=2025-10-10&limit=1&award=true", 200},
		{"bad date", "/notices?published=yesterday", 400},
		{"limit over max", "/notices?limit=501", 400},
		{"run", "/runs/ted-run:auto:auto:abc", 200},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			status, body := serve(t, &fakeSvc{}, c.target)
			if status != c.status || int(body["status_code"].(float64)) != c.status {
				t.Fatalf("status %d body %v", status, body)
			}
		})
	}
}

func TestListBindsQueryAndPage(t *testing.T) {
	s := &fakeSvc{}
	_, body := serve(t, s, "/notices?published=2025-10-10&limit=1&award=false")
	if s.lastList.Limit != 1 || s.lastList.Award == nil || *s.lastList.Award || s.lastList.Published.Day() != 10 {
		t.Fatalf("bound = %+v", s.lastList)
	}
	data := body["data"].(map[string]any)
	page := data["page"].(map[string]any)
	if page["more"] != true || page["returned"].(float64) != 1 {
		t.Fatalf("page = %v", page)
	}
}

func TestRunCarriesRowCount(t *testing.T) {
	_, body := serve(t, &fakeSvc{}, "/runs/r-1")
	data := body["data"].(map[string]any)
	if data["run_id"] != "r-1" || data["rows"].(float64) != 7 {
		t.Fatalf("data = %v", data)
	}
}
