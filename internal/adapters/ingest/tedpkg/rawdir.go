package tedpkg

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/logger"
)

var (
	leadingDots  = regexp.MustCompile(`^\.+`)
	unsafeChars  = regexp.MustCompile(`[^a-zA-Z0-9._/-]`)
	filenameNoID = regexp.MustCompile(`^(\d{8})_(\d{4})$`)
)

// SanitizeName strips leading dots and replaces anything outside
// [A-Za-z0-9._/-] with '_'; directory components are kept
func SanitizeName(name string) string {
	return unsafeChars.ReplaceAllString(leadingDots.ReplaceAllString(name, ""), "_")
}

// IssueDir is <root>/issue-<issue>
func IssueDir(root, issue string) string {
	return filepath.Join(root, "issue-"+issue)
}

// SaveStats reports a SaveDir pass
type SaveStats struct {
	Dir     string
	Entries int
	Saved   int
	Failed  int
}

// SaveDir writes every XML member of rd into IssueDir(root, issue), flattened
// to its sanitized base name. A failed write is logged and counted; only
// stream errors abort.
func SaveDir(root, issue string, rd *Reader) (SaveStats, error) {
	dir := IssueDir(root, issue)
	st := SaveStats{Dir: dir}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return st, perr.Wrapf(err, perr.ErrorCodeUnknown, "tedpkg: create %s", dir)
	}
	log := logger.Named("tedpkg")
	err := rd.Each(func(doc Document) error {
		base := filepath.Base(SanitizeName(BaseName(doc.Name)))
		if base == "" || base == "." || base == "/" {
			return perr.InvalidArgf("unusable member name %q", doc.Name)
		}
		if err := os.WriteFile(filepath.Join(dir, base), doc.Raw, 0o644); err != nil {
			return err
		}
		st.Saved++
		return nil
	}, func(doc Document, err error) {
		st.Failed++
		log.Error().Err(err).Str("member", doc.Name).Msg("write raw xml failed")
	})
	st.Entries = rd.Stats().Entries
	return st, err
}

// RawFile is one saved XML document
type RawFile struct {
	Name     string
	SourceID string
	Raw      []byte
}

// SourceIDFromFilename maps "00608908_2025.xml" to "00608908-2025";
// other names fall back to their stem
func SourceIDFromFilename(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if m := filenameNoID.FindStringSubmatch(stem); m != nil {
		return m[1] + "-" + m[2]
	}
	return stem
}

// LoadDir reads every *.xml file in IssueDir(root, issue) in name order
func LoadDir(root, issue string) ([]RawFile, error) {
	dir := IssueDir(root, issue)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, perr.NotFoundf("raw directory not found: %s", dir)
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "tedpkg: read %s", dir)
	}
	var out []RawFile
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), ".xml") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "tedpkg: read %s", e.Name())
		}
		out = append(out, RawFile{Name: e.Name(), SourceID: SourceIDFromFilename(e.Name()), Raw: raw})
	}
	return out, nil
}
