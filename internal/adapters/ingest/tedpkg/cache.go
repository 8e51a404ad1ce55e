package tedpkg

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"tedingest/internal/adapters/ingest/tedhttp"
	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/logger"
)

const cacheExt = ".tar.gz"

var issueName = regexp.MustCompile(`^\d{9}$`)

// CachedFetcher keeps downloaded packages on disk as <issue>.tar.gz with a
// .meta sidecar. Published packages do not change, so a cached file is served
// as is unless revalidation is enabled, in which case a conditional GET is
// sent using the stored ETag and Last-Modified.
type CachedFetcher struct {
	dir             string
	client          *tedhttp.Client
	revalidate      bool
	retainMaxAge    time.Duration
	retainMaxBytes  int64
	now             func() time.Time
	lastCleanupUnix atomic.Int64
}

type cacheMeta struct {
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	Size         int64     `json:"size,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
	LastChecked  time.Time `json:"last_checked"`
}

// CachedOption configures the fetcher
type CachedOption func(*CachedFetcher)

// WithRevalidate sends conditional GETs for cached packages
func WithRevalidate(on bool) CachedOption {
	return func(c *CachedFetcher) { c.revalidate = on }
}

// WithRetention sets age and size retention; zero disables either
func WithRetention(maxAge time.Duration, maxBytes int64) CachedOption {
	return func(c *CachedFetcher) {
		c.retainMaxAge = maxAge
		c.retainMaxBytes = maxBytes
	}
}

// NewCachedFetcher caches packages under dir
func NewCachedFetcher(dir string, client *tedhttp.Client, opts ...CachedOption) *CachedFetcher {
	_ = os.MkdirAll(dir, 0o755)
	c := &CachedFetcher{dir: dir, client: client, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch serves the package from disk or downloads and stores it first
func (c *CachedFetcher) Fetch(ctx context.Context, issue string) (io.ReadCloser, error) {
	if !issueName.MatchString(issue) {
		return nil, perr.InvalidArgf("tedpkg: bad issue id %q", issue)
	}
	path := filepath.Join(c.dir, issue+cacheExt)
	metaPath := path + ".meta"

	if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
		if c.revalidate {
			rc, err := c.conditional(ctx, issue, path, metaPath)
			if err == nil {
				c.maybeCleanup()
				return rc, nil
			}
			logger.C(ctx).Warn().Err(err).Str("issue", issue).Msg("revalidation failed, serving cached package")
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeFetch, "tedpkg: open cached package")
		}
		c.maybeCleanup()
		return f, nil
	}

	rc, err := c.download(ctx, issue, path, metaPath)
	if err != nil {
		return nil, err
	}
	c.maybeCleanup()
	return rc, nil
}

// conditional revalidates a cached package; 304 serves the local copy
func (c *CachedFetcher) conditional(ctx context.Context, issue, path, metaPath string) (io.ReadCloser, error) {
	meta, _ := loadMeta(metaPath)
	hdr := http.Header{}
	if meta != nil {
		if meta.ETag != "" {
			hdr.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			hdr.Set("If-Modified-Since", meta.LastModified)
		}
	}
	resp, err := c.client.Do(ctx, "package", http.MethodGet, PackagePath(issue), hdr)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotModified {
		_ = tedhttp.DrainAndClose(resp.Body)
		if meta == nil {
			meta = &cacheMeta{}
		}
		meta.LastChecked = c.now().UTC()
		_ = saveMeta(metaPath, meta)
		return os.Open(path)
	}
	return c.store(resp, path, metaPath)
}

func (c *CachedFetcher) download(ctx context.Context, issue, path, metaPath string) (io.ReadCloser, error) {
	resp, err := c.client.Do(ctx, "package", http.MethodGet, PackagePath(issue), nil)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) || ctx.Err() != nil {
			return nil, err
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeFetch, "tedpkg: fetch package %s", issue)
	}
	if resp.StatusCode != http.StatusOK {
		_ = tedhttp.DrainAndClose(resp.Body)
		return nil, perr.Fetchf("tedpkg: unexpected status %d for package %s", resp.StatusCode, issue)
	}
	return c.store(resp, path, metaPath)
}

// store writes the body to path atomically, records the sidecar and reopens the file
func (c *CachedFetcher) store(resp *http.Response, path, metaPath string) (io.ReadCloser, error) {
	tmp := path + ".part"
	defer func() { _ = os.Remove(tmp) }()

	out, err := os.Create(tmp)
	if err != nil {
		_ = resp.Body.Close()
		return nil, perr.Wrap(err, perr.ErrorCodeFetch, "tedpkg: create cache file")
	}
	n, werr := io.Copy(out, resp.Body)
	cerr := out.Close()
	_ = resp.Body.Close()
	if werr != nil {
		return nil, perr.Wrap(werr, perr.ErrorCodeFetch, "tedpkg: download package")
	}
	if cerr != nil {
		return nil, perr.Wrap(cerr, perr.ErrorCodeFetch, "tedpkg: close cache file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeFetch, "tedpkg: commit cache file")
	}

	now := c.now().UTC()
	_ = saveMeta(metaPath, &cacheMeta{
		ETag:         strings.TrimSpace(resp.Header.Get("ETag")),
		LastModified: strings.TrimSpace(resp.Header.Get("Last-Modified")),
		Size:         n,
		FetchedAt:    now,
		LastChecked:  now,
	})
	return os.Open(path)
}

func loadMeta(path string) (*cacheMeta, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m cacheMeta
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func saveMeta(path string, m *cacheMeta) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	tmp := path + ".part"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// maybeCleanup runs retention at most once per ten minutes
func (c *CachedFetcher) maybeCleanup() {
	if c.retainMaxAge <= 0 && c.retainMaxBytes <= 0 {
		return
	}
	now := c.now().Unix()
	last := c.lastCleanupUnix.Load()
	if last != 0 && now-last < 600 {
		return
	}
	if !c.lastCleanupUnix.CompareAndSwap(last, now) {
		return
	}
	if err := c.Cleanup(); err != nil {
		logger.Named("tedpkg").Warn().Err(err).Str("dir", c.dir).Msg("cache cleanup failed")
	}
}

// Cleanup applies age and size retention, oldest packages first
func (c *CachedFetcher) Cleanup() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	type item struct {
		path string
		size int64
		mod  time.Time
	}
	var items []item
	var total int64
	cutoff := c.now().Add(-c.retainMaxAge)

	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, cacheExt) || !issueName.MatchString(strings.TrimSuffix(name, cacheExt)) {
			continue
		}
		full := filepath.Join(c.dir, name)
		fi, err := os.Stat(full)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		mod := fi.ModTime()
		if m, err := loadMeta(full + ".meta"); err == nil && !m.FetchedAt.IsZero() {
			mod = m.FetchedAt
		}
		if c.retainMaxAge > 0 && mod.Before(cutoff) {
			_ = os.Remove(full)
			_ = os.Remove(full + ".meta")
			continue
		}
		items = append(items, item{path: full, size: fi.Size(), mod: mod})
		total += fi.Size()
	}

	if c.retainMaxBytes > 0 && total > c.retainMaxBytes {
		sort.Slice(items, func(i, j int) bool { return items[i].mod.Before(items[j].mod) })
		for _, it := range items {
			if total <= c.retainMaxBytes {
				break
			}
			_ = os.Remove(it.path)
			_ = os.Remove(it.path + ".meta")
			total -= it.size
		}
	}
	return nil
}
