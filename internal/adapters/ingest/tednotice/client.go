// Package tednotice fetches single notices from the TED site: by number and
// year through the /xml export, or by detail page through its XML link
package tednotice

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"tedingest/internal/adapters/ingest/tedhttp"
	perr "tedingest/internal/platform/errors"
)

// maxBody caps a notice or page download
const maxBody = 32 * 1024 * 1024

// NoticePath is the XML export path of notice n of year
func NoticePath(n, year int) string {
	return fmt.Sprintf("/en/notice/%d-%d/xml", n, year)
}

// Client wraps a tedhttp.Client with notice level calls
type Client struct {
	http *tedhttp.Client
}

// NewClient wraps c
func NewClient(c *tedhttp.Client) *Client {
	return &Client{http: c}
}

// FetchXML downloads notice n of year. A missing notice is NotFound, a 429
// that outlived the client's retries is TooManyRequests.
func (c *Client) FetchXML(ctx context.Context, n, year int) ([]byte, error) {
	return c.get(ctx, "notice", NoticePath(n, year), "application/xml,text/xml;q=0.9,*/*;q=0.8")
}

// FetchPage downloads a notice detail page
func (c *Client) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	return c.get(ctx, "page", pageURL, "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
}

// FetchNotice loads a detail page, finds its XML link and downloads it
func (c *Client) FetchNotice(ctx context.Context, pageURL string) (xmlURL string, raw []byte, err error) {
	base, err := url.Parse(c.http.URL(pageURL))
	if err != nil {
		return "", nil, perr.InvalidArgf("tednotice: bad page url %q", pageURL)
	}
	page, err := c.FetchPage(ctx, base.String())
	if err != nil {
		return "", nil, err
	}
	xmlURL, ok, err := FindXMLLink(page, base)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, perr.NotFoundf("tednotice: no xml link on %s", base)
	}
	raw, err = c.get(ctx, "notice", xmlURL, "application/xml,text/xml;q=0.9,*/*;q=0.8")
	return xmlURL, raw, err
}

func (c *Client) get(ctx context.Context, op, path, accept string) ([]byte, error) {
	resp, err := c.http.Do(ctx, op, http.MethodGet, path, http.Header{"Accept": {accept}})
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, perr.Fetchf("tednotice: unexpected status %d for %s", resp.StatusCode, path)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeFetch, "tednotice: read %s", path)
	}
	return b, nil
}
