package tednotice

import (
	"context"
	"sync"
	"testing"
	"time"

	perr "tedingest/internal/platform/errors"
)

// fakeNotices answers FetchXML from a script keyed by notice number
type fakeNotices struct {
	mu       sync.Mutex
	have     map[int]string
	throttle map[int]int // remaining 429s per id
	calls    []int
}

func (f *fakeNotices) FetchXML(_ context.Context, n, _ int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, n)
	if f.throttle[n] > 0 {
		f.throttle[n]--
		return nil, perr.Newf(perr.ErrorCodeTooManyRequests, "429")
	}
	if body, ok := f.have[n]; ok {
		return []byte(body), nil
	}
	return nil, perr.NotFoundf("404")
}

func newTestScanner(f XMLFetcher, o ScanOptions) (*Scanner, *[]time.Duration) {
	s := NewScanner(f, o)
	var waits []time.Duration
	var mu sync.Mutex
	s.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		waits = append(waits, d)
		mu.Unlock()
		return nil
	}
	s.rand = func(base, _ time.Duration) time.Duration { return base }
	return s, &waits
}

func TestScanWalksDownwardAndStopsAfterMisses(t *testing.T) {
	f := &fakeNotices{have: map[int]string{100: "<a/>", 98: "<b/>"}}
	s, _ := newTestScanner(f, ScanOptions{MaxMiss: 3})

	var got []string
	st, err := s.Scan(context.Background(), 2025, 100, 1, func(_ context.Context, h Hit) error {
		got = append(got, h.ID+"="+string(h.Raw))
		return nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 2 || got[0] != "100-2025=<a/>" || got[1] != "98-2025=<b/>" {
		t.Fatalf("hits = %v", got)
	}
	// 100 hit, 99 miss, 98 hit, 97 96 95 misses -> stop
	if st.Probed != 6 || st.Hits != 2 || st.Misses != 4 || !st.Exhausted || st.Last != 95 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestScanRetriesSameIDAfterThrottle(t *testing.T) {
	f := &fakeNotices{have: map[int]string{10: "<x/>"}, throttle: map[int]int{10: 2}}
	s, waits := newTestScanner(f, ScanOptions{MaxMiss: 1, Delay: time.Second, RatePause: 5 * time.Second})

	st, err := s.Scan(context.Background(), 2025, 10, 10, func(context.Context, Hit) error { return nil })
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if st.Hits != 1 || st.Throttled != 2 {
		t.Fatalf("stats = %+v", st)
	}
	if len(f.calls) != 3 || f.calls[0] != 10 || f.calls[2] != 10 {
		t.Fatalf("calls = %v", f.calls)
	}
	want := []time.Duration{5 * time.Second, 5 * time.Second, time.Second}
	if len(*waits) != len(want) {
		t.Fatalf("waits = %v, want %v", *waits, want)
	}
	for i := range want {
		if (*waits)[i] != want[i] {
			t.Fatalf("waits = %v, want %v", *waits, want)
		}
	}
}

func TestScanConsumerErrorStops(t *testing.T) {
	f := &fakeNotices{have: map[int]string{5: "a", 4: "b", 3: "c"}}
	s, _ := newTestScanner(f, ScanOptions{Prefetch: 1})
	boom := perr.DBf("sink down")

	_, err := s.Scan(context.Background(), 2025, 5, 1, func(context.Context, Hit) error { return boom })
	if !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("err = %v, want DB", err)
	}
}

func TestScanRejectsUpwardRange(t *testing.T) {
	s, _ := newTestScanner(&fakeNotices{}, ScanOptions{})
	if _, err := s.Scan(context.Background(), 2025, 1, 5, nil); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}
