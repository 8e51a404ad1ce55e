package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tedingest/internal/core/notice"
	"tedingest/internal/platform/testkit"
	"tedingest/internal/services/ingest/domain"
)

var runDay = time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "..", "..", "core", "notice", "testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return b
}

// threeMembers is one contract notice, one award notice and one malformed document
func threeMembers(t *testing.T) []byte {
	return testkit.TarGz(t,
		testkit.Member{Name: "20251010", Dir: true},
		testkit.Member{Name: "20251010/00608908_2025.xml", Body: fixture(t, "contract_notice.xml")},
		testkit.Member{Name: "20251010/00612001_2025.xml", Body: fixture(t, "award_notice.xml")},
		testkit.Member{Name: "20251010/broken.xml", Body: []byte("<ContractNotice><unclosed>")},
		testkit.Member{Name: "20251010/readme.txt", Body: []byte("not a notice")},
	)
}

type fakeResolver struct {
	id    string
	err   error
	calls int
}

func (f *fakeResolver) Resolve(context.Context, time.Time) (string, error) {
	f.calls++
	return f.id, f.err
}

type fakeFetcher struct {
	body  []byte
	err   error
	asked []string
}

func (f *fakeFetcher) Fetch(_ context.Context, issue string) (io.ReadCloser, error) {
	f.asked = append(f.asked, issue)
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(bytes.NewReader(f.body)), nil
}

// memSink keeps rows by tb_id and raw docs by (source, source_id), like the
// real tables, and can fail after a number of staging rows
type memSink struct {
	mu       sync.Mutex
	rows     map[string]notice.Notice
	raw      map[string]domain.RawDoc
	failFrom int // fail every row at index >= failFrom when > 0
	writes   int
}

func newMemSink() *memSink {
	return &memSink{rows: map[string]notice.Notice{}, raw: map[string]domain.RawDoc{}}
}

var errSink = errors.New("sink down")

func (m *memSink) Name() string { return "mem" }

func (m *memSink) WriteNotices(_ context.Context, runID string, ns []notice.Notice) (domain.SinkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	var res domain.SinkResult
	for i, n := range ns {
		if m.failFrom > 0 && i >= m.failFrom {
			res.Failed = len(ns) - i
			return res, errSink
		}
		n.RunID = runID
		if old, ok := m.rows[*n.TBID]; ok && n.PublishedAt == nil {
			n.PublishedAt = old.PublishedAt
		}
		m.rows[*n.TBID] = n
		res.Written++
	}
	return res, nil
}

func (m *memSink) WriteRaw(_ context.Context, docs []domain.RawDoc) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		m.raw[d.Source+"|"+d.SourceID] = d
	}
	return len(docs), nil
}

func (m *memSink) CountRun(_ context.Context, runID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.RunID == runID {
			n++
		}
	}
	return n, nil
}

// stagingOnly has no raw or verification support, like the REST sink
type stagingOnly struct{ m *memSink }

func (s stagingOnly) Name() string { return "staging-only" }

func (s stagingOnly) WriteNotices(ctx context.Context, runID string, ns []notice.Notice) (domain.SinkResult, error) {
	return s.m.WriteNotices(ctx, runID, ns)
}

type recorder struct {
	runs []domain.Summary
	err  error
}

func (r *recorder) RecordRun(_ context.Context, s domain.Summary) error {
	r.runs = append(r.runs, s)
	return r.err
}

type sliceSource struct {
	docs map[string][]byte
	keys []string
	err  error
}

func (s *sliceSource) Name() string { return "slice" }

func (s *sliceSource) Each(ctx context.Context, emit func(context.Context, string, []byte) error) error {
	for _, k := range s.keys {
		if err := emit(ctx, k, s.docs[k]); err != nil {
			return err
		}
	}
	return s.err
}
