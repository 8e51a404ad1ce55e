package version

import (
	"strings"
	"testing"
)

func TestFor(t *testing.T) {
	bi := For("ted-api")
	if bi.Service != "ted-api" || bi.Version == "" || bi.Commit == "" || bi.Date == "" {
		t.Fatalf("info = %+v", bi)
	}
	if Info().Service != "tedingest" {
		t.Fatalf("default service = %q", Info().Service)
	}
	if !strings.HasPrefix(UserAgent(), "tedingest/") {
		t.Fatalf("ua = %q", UserAgent())
	}
}
