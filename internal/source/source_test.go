package source

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dicom-triage/internal/archive"
	"github.com/dicom-triage/internal/testutil"
	"github.com/dicom-triage/pkg/model"
)

func fileNames(files []*model.File) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}

func TestExpand_DirectoryAndContainers(t *testing.T) {
	bundle := testutil.Zip(t,
		testutil.ZipEntry{Name: "export/", Stored: true},
		testutil.ZipEntry{Name: "export/study-A_series-S_inst-I2.dcm", Data: testutil.MagicBuffer(200)},
		testutil.ZipEntry{Name: "readme.txt", Data: []byte("notes")},
	)
	nested := testutil.Zip(t,
		testutil.ZipEntry{Name: "IM0001", Data: testutil.UIDTextBuffer(), Zstd: true},
	)
	dir := testutil.WriteTree(t, map[string][]byte{
		"study-A_series-S_inst-I1.dcm": testutil.MagicBuffer(200),
		"sub/notes.txt":                []byte("hello"),
		"sub/bundle.zip":               bundle,
		"sub/upload.bin":               nested,
	})

	out, err := NewExpander(Options{}).Expand(context.Background(), []string{dir})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Containers)
	assert.Equal(t, []string{
		"study-A_series-S_inst-I1.dcm",
		"sub/notes.txt",
		"sub/bundle.zip/export/study-A_series-S_inst-I2.dcm",
		"sub/bundle.zip/readme.txt",
		"sub/upload.bin/IM0001",
	}, fileNames(out.Files))
	assert.Empty(t, out.Skipped)

	data, err := out.Files[4].ReadAll()
	require.NoError(t, err)
	assert.Equal(t, testutil.UIDTextBuffer(), data)
}

func TestExpand_SingleFileArgument(t *testing.T) {
	dir := t.TempDir()
	p := testutil.WriteFile(t, dir, "deep/IM0001", testutil.MagicBuffer(200))

	out, err := NewExpander(Options{}).Expand(context.Background(), []string{p})
	require.NoError(t, err)
	require.Len(t, out.Files, 1)
	assert.Equal(t, "IM0001", out.Files[0].Name)
	assert.Equal(t, int64(200), out.Files[0].Size)
}

func TestExpand_ContainerSkips(t *testing.T) {
	bundle := testutil.Zip(t,
		testutil.ZipEntry{Name: "big.dcm", Data: make([]byte, 4096)},
		testutil.ZipEntry{Name: "small.dcm", Data: testutil.MagicBuffer(200)},
	)
	dir := testutil.WriteTree(t, map[string][]byte{
		"a.zip":      bundle,
		"broken.zip": []byte("PK\x03\x04 not really"),
	})

	out, err := NewExpander(Options{Archive: archive.Options{MaxEntryBytes: 1024}}).
		Expand(context.Background(), []string{dir})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.zip/small.dcm"}, fileNames(out.Files))
	require.Len(t, out.Skipped, 2)
	SortSkips(out.Skipped)
	assert.Equal(t, model.ContainerEntryName, out.Skipped[0].Name)
	assert.Equal(t, model.SkipContainerError, out.Skipped[0].Reason)
	assert.Contains(t, out.Skipped[0].Detail, "broken.zip")
	assert.Equal(t, "a.zip/big.dcm", out.Skipped[1].Name)
	assert.Equal(t, model.SkipSizeCap, out.Skipped[1].Reason)
}

func TestExpand_MissingPath(t *testing.T) {
	_, err := NewExpander(Options{}).Expand(context.Background(), []string{filepath.Join(t.TempDir(), "nope")})
	assert.Error(t, err)
}

func TestExpand_Cancelled(t *testing.T) {
	dir := testutil.WriteTree(t, map[string][]byte{"a.dcm": testutil.MagicBuffer(200)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExpander(Options{}).Expand(ctx, []string{dir})
	assert.Error(t, err)
}

func TestIsContainer(t *testing.T) {
	dir := testutil.WriteTree(t, map[string][]byte{
		"x.ZIP":   []byte("anything"),
		"magic":   []byte("PK\x03\x04rest"),
		"plain":   []byte("PK"),
		"img.dcm": testutil.MagicBuffer(140),
	})
	assert.True(t, isContainer(filepath.Join(dir, "x.ZIP")))
	assert.True(t, isContainer(filepath.Join(dir, "magic")))
	assert.False(t, isContainer(filepath.Join(dir, "plain")))
	assert.False(t, isContainer(filepath.Join(dir, "img.dcm")))
	assert.False(t, isContainer(filepath.Join(dir, "missing")))
}
