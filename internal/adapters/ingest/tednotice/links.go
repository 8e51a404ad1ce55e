package tednotice

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	perr "tedingest/internal/platform/errors"
)

var xmlHref = regexp.MustCompile(`(?i)\.xml(\?|$)`)

// FindXMLLink scans a notice page for its XML download. Links ending in .xml
// win; otherwise the first href mentioning both "download" and "xml" is used.
// The result is resolved against base.
func FindXMLLink(page []byte, base *url.URL) (string, bool, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", false, perr.Wrap(err, perr.ErrorCodeDecode, "tednotice: parse page")
	}
	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if h, ok := a.Attr("href"); ok && strings.TrimSpace(h) != "" {
			hrefs = append(hrefs, strings.TrimSpace(h))
		}
	})

	pick := func(match func(string) bool) (string, bool) {
		for _, h := range hrefs {
			if match(h) {
				return resolve(base, h), true
			}
		}
		return "", false
	}
	if u, ok := pick(xmlHref.MatchString); ok {
		return u, true, nil
	}
	u, ok := pick(func(h string) bool {
		l := strings.ToLower(h)
		return strings.Contains(l, "download") && strings.Contains(l, "xml")
	})
	return u, ok, nil
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
