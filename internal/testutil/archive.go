package testutil

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// ZipEntry is one member of a fixture archive.
type ZipEntry struct {
	Name   string
	Data   []byte
	Stored bool
	Zstd   bool
}

// Zip builds an in-memory archive. Names ending in "/" become directories.
// Members default to Deflate.
func Zip(t *testing.T, entries ...ZipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	w.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())

	for _, e := range entries {
		method := zip.Deflate
		switch {
		case e.Stored, strings.HasSuffix(e.Name, "/"):
			method = zip.Store
		case e.Zstd:
			method = zstd.ZipMethodWinZip
		}
		fw, err := w.CreateHeader(&zip.FileHeader{Name: e.Name, Method: method})
		if err != nil {
			t.Fatalf("create zip entry %s: %v", e.Name, err)
		}
		if _, err := fw.Write(e.Data); err != nil {
			t.Fatalf("write zip entry %s: %v", e.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// MixedArchiveEntries returns the entries of a typical export: records named
// by convention, headerless records with opaque names, and text noise.
// It returns the entries together with the number of record entries.
func MixedArchiveEntries(series, perSeries, headerless, noise int) ([]ZipEntry, int) {
	var entries []ZipEntry
	for s := 1; s <= series; s++ {
		for i := 1; i <= perSeries; i++ {
			entries = append(entries, ZipEntry{
				Name: "export/study-A_series-S" + strconv.Itoa(s) + "_inst-I" + strconv.Itoa(i) + "_mod-CT.dcm",
				Data: MagicBuffer(200),
			})
		}
	}
	for i := 0; i < headerless; i++ {
		entries = append(entries, ZipEntry{Name: "raw/IM" + strconv.Itoa(i), Data: UIDTextBuffer()})
	}
	for i := 0; i < noise; i++ {
		entries = append(entries, ZipEntry{Name: "notes_" + strconv.Itoa(i) + ".txt", Data: []byte("not an image " + strconv.Itoa(i))})
	}
	return entries, series*perSeries + headerless
}
