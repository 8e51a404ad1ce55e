package tedpkg

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"io"
	"path"
	"strings"

	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/logger"
)

// maxMemberSize caps one XML member in memory; TED notices are well under 1MB
const maxMemberSize = 64 * 1024 * 1024

// Document is one XML member of a package
type Document struct {
	Name string
	Raw  []byte
}

// Stats counts what the reader has walked so far
type Stats struct {
	Entries int   // every tar header, directories included
	XML     int   // XML members returned
	Skipped int   // XML members over the size cap
	Bytes   int64 // uncompressed XML bytes returned
}

// Reader walks a gzip tar package and yields its XML members one at a time.
// Non-XML members are skipped without being buffered.
type Reader struct {
	r     io.ReadCloser
	gz    *gzip.Reader
	tr    *tar.Reader
	err   error
	stats Stats
	max   int64
}

// NewReader wraps a package body; r is closed by Close
func NewReader(r io.ReadCloser) (*Reader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		_ = r.Close()
		return nil, perr.Wrap(err, perr.ErrorCodeFetch, "tedpkg: gzip header")
	}
	return &Reader{r: r, gz: gz, tr: tar.NewReader(gz), max: maxMemberSize}, nil
}

// IsXML reports whether a member name looks like an XML notice
func IsXML(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".xml")
}

// Next returns the next XML member or io.EOF at the end of the archive.
// A corrupt stream is a Fetch error and sticks: later calls return it again.
func (rd *Reader) Next() (Document, error) {
	if rd.err != nil {
		return Document{}, rd.err
	}
	for {
		hdr, err := rd.tr.Next()
		if err == io.EOF {
			rd.err = io.EOF
			return Document{}, io.EOF
		}
		if err != nil {
			rd.err = perr.Wrap(err, perr.ErrorCodeFetch, "tedpkg: tar stream")
			return Document{}, rd.err
		}
		rd.stats.Entries++
		if !hdr.FileInfo().Mode().IsRegular() || !IsXML(hdr.Name) {
			// tar.Reader discards the unread body on the next call
			continue
		}
		if hdr.Size > rd.max {
			rd.stats.Skipped++
			logger.Named("tedpkg").Warn().Str("member", hdr.Name).Int64("size", hdr.Size).Msg("xml member over size cap, skipped")
			continue
		}
		raw, err := io.ReadAll(io.LimitReader(rd.tr, rd.max))
		if err != nil {
			rd.err = perr.Wrapf(err, perr.ErrorCodeFetch, "tedpkg: read member %s", hdr.Name)
			return Document{}, rd.err
		}
		rd.stats.XML++
		rd.stats.Bytes += int64(len(raw))
		return Document{Name: hdr.Name, Raw: raw}, nil
	}
}

// Stats returns counts so far
func (rd *Reader) Stats() Stats { return rd.stats }

// Close closes the gzip layer and the underlying body
func (rd *Reader) Close() error {
	var first error
	if rd.gz != nil {
		if err := rd.gz.Close(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			first = err
		}
	}
	if rd.r != nil {
		if err := rd.r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Each drives fn over every XML member. An fn error is passed to onErr and the
// walk continues; only stream errors stop it.
func (rd *Reader) Each(fn func(Document) error, onErr func(Document, error)) error {
	for {
		doc, err := rd.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil && onErr != nil {
			onErr(doc, err)
		}
	}
}

// BaseName is the member file name without directories
func BaseName(name string) string {
	return path.Base(strings.ReplaceAll(name, "\\", "/"))
}
