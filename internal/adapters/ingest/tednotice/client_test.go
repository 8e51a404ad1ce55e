package tednotice

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tedingest/internal/adapters/ingest/tedhttp"
	perr "tedingest/internal/platform/errors"
)

func TestNoticePath(t *testing.T) {
	if got := NoticePath(608908, 2025); got != "/en/notice/608908-2025/xml" {
		t.Fatalf("NoticePath = %q", got)
	}
}

func TestFetchXMLAndNotice(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/en/notice/608908-2025/xml", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") == "*/*" {
			t.Errorf("accept header not overridden")
		}
		_, _ = io.WriteString(w, "<ContractNotice/>")
	})
	mux.HandleFunc("/en/notice/-/detail/608908-2025", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html><a href="/en/notice/608908-2025/export.xml">XML</a></html>`)
	})
	mux.HandleFunc("/en/notice/608908-2025/export.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<Export/>")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(tedhttp.NewClient(tedhttp.Options{BaseURL: srv.URL, MaxRetries: -1}))
	ctx := context.Background()

	raw, err := c.FetchXML(ctx, 608908, 2025)
	if err != nil || string(raw) != "<ContractNotice/>" {
		t.Fatalf("FetchXML = %q, %v", raw, err)
	}
	if _, err := c.FetchXML(ctx, 1, 2025); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("missing notice err = %v", err)
	}

	xmlURL, raw, err := c.FetchNotice(ctx, "/en/notice/-/detail/608908-2025")
	if err != nil {
		t.Fatalf("FetchNotice: %v", err)
	}
	if xmlURL != srv.URL+"/en/notice/608908-2025/export.xml" || string(raw) != "<Export/>" {
		t.Fatalf("FetchNotice = %q, %q", xmlURL, raw)
	}
}

func TestFetchNoticeWithoutLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html><body>nothing here</body></html>")
	}))
	defer srv.Close()
	c := NewClient(tedhttp.NewClient(tedhttp.Options{BaseURL: srv.URL, MaxRetries: -1}))
	if _, _, err := c.FetchNotice(context.Background(), srv.URL+"/page"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}
