package module

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"tedingest/internal/modkit"
	phttp "tedingest/internal/platform/net/http"
)

func TestMountsUnderMeta(t *testing.T) {
	m := New(modkit.Deps{})
	if m.Name() != "meta" || m.Ports() != nil {
		t.Fatalf("name %q ports %v", m.Name(), m.Ports())
	}
	mux := chi.NewRouter()
	m.MountRoutes(phttp.AdaptChi(mux))

	for _, path := range []string{"/meta/health", "/meta/ready", "/meta/version", "/meta/service"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s = %d", path, rec.Code)
		}
	}
}
