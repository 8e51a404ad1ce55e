package testkit

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"testing"
)

// Member is one tar entry for TarGz
type Member struct {
	Name string
	Body []byte
	Dir  bool
}

// TarGz builds an in-memory gzip-compressed tar archive of the given members
func TarGz(t testing.TB, members ...Member) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, m := range members {
		hdr := &tar.Header{Name: m.Name, Mode: 0o644, Size: int64(len(m.Body)), Typeflag: tar.TypeReg}
		if m.Dir {
			hdr = &tar.Header{Name: m.Name, Mode: 0o755, Typeflag: tar.TypeDir}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header %s: %v", m.Name, err)
		}
		if !m.Dir {
			if _, err := tw.Write(m.Body); err != nil {
				t.Fatalf("tar body %s: %v", m.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}
