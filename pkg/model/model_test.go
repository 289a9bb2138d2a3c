package model

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipReason_Valid(t *testing.T) {
	for _, r := range []SkipReason{SkipNotRecord, SkipParseFailed, SkipContainerError, SkipSizeCap} {
		assert.True(t, r.Valid(), string(r))
	}
	assert.False(t, SkipReason("other").Valid())
}

func TestParsedIdentity_Frames(t *testing.T) {
	assert.Equal(t, 1, ParsedIdentity{}.Frames())
	assert.Equal(t, 1, ParsedIdentity{FrameCount: -3}.Frames())
	assert.Equal(t, 7, ParsedIdentity{FrameCount: 7}.Frames())
}

func TestDataset_Accessors(t *testing.T) {
	ds := Dataset{
		FieldStudyInstanceUID: []string{"1.2.3 "},
		FieldNumberOfFrames:   "4",
		FieldRows:             []int{512},
		FieldWindowCenter:     "40\\400",
		FieldRescaleSlope:     []float64{2.5},
		FieldModality:         "us",
		FieldPixelData:        [][]byte{{}, {1, 2}, {3}},
	}

	assert.Equal(t, "1.2.3", ds.String(FieldStudyInstanceUID))
	n, ok := ds.Int(FieldNumberOfFrames)
	require.True(t, ok)
	assert.Equal(t, 4, n)
	assert.Equal(t, 512, ds.IntOr(FieldRows, 0))
	assert.Equal(t, 9, ds.IntOr(FieldColumns, 9))

	wc, ok := ds.Float(FieldWindowCenter)
	require.True(t, ok)
	assert.Equal(t, 40.0, wc)
	slope, ok := ds.Float(FieldRescaleSlope)
	require.True(t, ok)
	assert.Equal(t, 2.5, slope)

	assert.Len(t, ds.Fragments(FieldPixelData), 3)
	assert.Equal(t, []byte{1, 2, 3}, ds.Bytes(FieldPixelData))
	assert.Equal(t, "", ds.String("Missing"))
}

func TestDataset_Identity(t *testing.T) {
	ds := Dataset{
		FieldStudyInstanceUID:  "1.2",
		FieldSeriesInstanceUID: "1.2.3",
		FieldSOPInstanceUID:    "1.2.3.4",
		FieldModality:          "us",
		FieldNumberOfFrames:    0,
	}
	id, ok := ds.Identity()
	require.True(t, ok)
	assert.Equal(t, "US", id.Modality)
	assert.Equal(t, 1, id.FrameCount)

	delete(ds, FieldSOPInstanceUID)
	_, ok = ds.Identity()
	assert.False(t, ok)
}

func TestDecodedPixelBuffer_Valid(t *testing.T) {
	var nilBuf *DecodedPixelBuffer
	assert.False(t, nilBuf.Valid())
	assert.False(t, (&DecodedPixelBuffer{BitsAllocated: 8}).Valid())
	assert.False(t, (&DecodedPixelBuffer{BitsAllocated: 12, Pixels8: []byte{1}}).Valid())
	assert.True(t, (&DecodedPixelBuffer{BitsAllocated: 8, Pixels8: []byte{1}}).Valid())
	assert.True(t, (&DecodedPixelBuffer{BitsAllocated: 16, Pixels16: []uint16{1}}).Valid())
}

func TestFile_Readers(t *testing.T) {
	mem := NewMemoryFile("a.dcm", []byte("abcdef"))
	prefix, err := mem.ReadPrefix(3)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(prefix))

	opened := 0
	f := NewFile("b", 6, "", func() (io.ReadCloser, error) {
		opened++
		return io.NopCloser(strings.NewReader("abcdef")), nil
	})
	all, err := f.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(all))
	prefix, err = f.ReadPrefix(2)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(prefix))
	assert.Equal(t, 2, opened)
}

func TestBuildStats_Reconciles(t *testing.T) {
	assert.True(t, BuildStats{InputFiles: 3, AcceptedFiles: 2, SkippedFiles: 1}.Reconciles())
	assert.False(t, BuildStats{InputFiles: 3, AcceptedFiles: 1, SkippedFiles: 1}.Reconciles())
}
