package service

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"time"

	"tedingest/internal/core/notice"
	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/logger"
	pstrings "tedingest/internal/platform/strings"
	"tedingest/internal/services/ingest/domain"
)

// batch accumulates one run's eligible records in arrival order
type batch struct {
	svc      *Service
	sum      *domain.Summary
	fallback time.Time
	notices  []notice.Notice
	raw      []domain.RawDoc
	samples  int
}

func (s *Service) newBatch(sum *domain.Summary, fallback time.Time) *batch {
	return &batch{svc: s, sum: sum, fallback: fallback}
}

// add normalizes one document. Only undecodable XML is an error; ineligible
// records are counted once and dropped.
func (b *batch) add(ctx context.Context, name string, raw []byte) error {
	b.sum.Documents++
	hash := notice.Hash(raw)
	n, err := b.svc.Norm.Normalize(raw, b.fallback, hash)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeDecode, "decode %s", name)
	}

	ok, reasons := notice.Eligible(n)
	if !ok {
		b.sum.Skip(primary(reasons))
		if n.NativeID == nil {
			b.sample(ctx, name, raw)
		}
		return nil
	}

	b.sum.Eligible++
	b.notices = append(b.notices, n)
	if b.svc.Cfg.SaveRawDocs {
		b.raw = append(b.raw, domain.RawDoc{Source: n.Source, SourceID: *n.NativeID, XML: raw, SHA256: hash})
	}
	return nil
}

// primary picks the reason a document is counted under; tb_id derives from
// native_id, so a missing native id is reported as the cause
func primary(reasons []notice.SkipReason) notice.SkipReason {
	for _, r := range reasons {
		if r == notice.SkipMissingNative {
			return r
		}
	}
	if len(reasons) == 0 {
		return notice.SkipMissingTBID
	}
	return reasons[0]
}

// decodeFailed counts a member whose processing failed and moves on
func (b *batch) decodeFailed(ctx context.Context, name string, err error) {
	b.sum.Skip(notice.SkipDecode)
	logger.C(ctx).Warn().Err(err).Str("member", name).Msg("document skipped")
}

// sample logs the first few documents without a native id
func (b *batch) sample(ctx context.Context, name string, raw []byte) {
	if b.samples >= b.svc.Cfg.Samples {
		return
	}
	b.samples++
	sm := domain.Sample{
		Name:           name,
		Root:           rootElement(raw),
		HasPublication: bytes.Contains(raw, []byte("NoticePublicationID")),
		Head:           pstrings.Truncate(string(raw), b.svc.Cfg.SampleChars),
	}
	logger.C(ctx).Warn().
		Int("sample", b.samples).
		Str("member", sm.Name).
		Str("root", sm.Root).
		Bool("has_publication_id", sm.HasPublication).
		Str("head", sm.Head).
		Msg("document without native id")
}

// rootElement is the local name of the document element, "" when unreadable
func rootElement(raw []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Strict = false
	dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local
		}
	}
}
