package tedpkg

import (
	"context"
	"io"
	"net/http"

	"tedingest/internal/adapters/ingest/tedhttp"
	perr "tedingest/internal/platform/errors"
)

// Fetcher returns the gzip tar body of a daily package
type Fetcher interface {
	Fetch(ctx context.Context, issue string) (io.ReadCloser, error)
}

// HTTPFetcher downloads packages straight from the site
type HTTPFetcher struct {
	Client *tedhttp.Client
}

// NewHTTPFetcher wraps c
func NewHTTPFetcher(c *tedhttp.Client) *HTTPFetcher {
	return &HTTPFetcher{Client: c}
}

// Fetch GETs /packages/daily/<issue>. Any non-success status is a Fetch error
// (NotFound when the package does not exist).
func (f *HTTPFetcher) Fetch(ctx context.Context, issue string) (io.ReadCloser, error) {
	if issue == "" {
		return nil, perr.InvalidArgf("tedpkg: empty issue id")
	}
	resp, err := f.Client.Do(ctx, "package", http.MethodGet, PackagePath(issue), nil)
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
	return resp.Body, nil
}
