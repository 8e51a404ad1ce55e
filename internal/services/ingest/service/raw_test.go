package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tedingest/internal/adapters/ingest/tedpkg"
	"tedingest/internal/core/notice"
	perr "tedingest/internal/platform/errors"
	"tedingest/internal/services/ingest/domain"
)

func TestSaveRawThenUploadRaw(t *testing.T) {
	root := t.TempDir()
	sink := newMemSink()
	svc := newService(&fakeFetcher{body: threeMembers(t)}, &fakeResolver{id: "202500201"}, sink)

	st, err := svc.SaveRaw(context.Background(), "202500201", root)
	if err != nil {
		t.Fatalf("SaveRaw: %v", err)
	}
	if st.Saved != 3 || st.Entries != 5 || st.Dir != tedpkg.IssueDir(root, "202500201") {
		t.Fatalf("stats = %+v", st)
	}
	if _, err := os.Stat(filepath.Join(st.Dir, "readme.txt")); !os.IsNotExist(err) {
		t.Fatalf("non-xml member was saved")
	}

	sum, err := svc.UploadRaw(context.Background(), domain.Request{Date: runDay}, root)
	if err != nil {
		t.Fatalf("UploadRaw: %v", err)
	}
	if sum.Mode != domain.ModeUpload || sum.Documents != 3 || sum.RawWritten != 3 || sum.Issue != "202500201" {
		t.Fatalf("summary = %+v", sum)
	}
	// parsed documents are keyed by native id, the broken one by file name
	for _, key := range []string{"TED|608908-2025", "TED|612001-2025", "TED|broken"} {
		d, ok := sink.raw[key]
		if !ok {
			t.Fatalf("missing raw %s in %v", key, keys(sink.raw))
		}
		if d.SHA256 != notice.Hash(d.XML) {
			t.Fatalf("%s hash mismatch", key)
		}
	}
	if len(sink.rows) != 0 {
		t.Fatalf("upload must not write staging rows")
	}
}

func TestUploadRawErrors(t *testing.T) {
	svc := newService(nil, nil, stagingOnly{m: newMemSink()})
	if _, err := svc.UploadRaw(context.Background(), domain.Request{Issue: "202500201"}, t.TempDir()); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("staging-only sink err = %v", err)
	}

	svc = newService(nil, nil, newMemSink())
	sum, err := svc.UploadRaw(context.Background(), domain.Request{Issue: "202500201"}, t.TempDir())
	if !perr.IsCode(err, perr.ErrorCodeNotFound) || sum.Status != domain.StatusError {
		t.Fatalf("missing dir err = %v", err)
	}
}

func TestSaveRawRequiresIssue(t *testing.T) {
	svc := newService(&fakeFetcher{}, nil, newMemSink())
	if _, err := svc.SaveRaw(context.Background(), "", t.TempDir()); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}

func keys(m map[string]domain.RawDoc) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
