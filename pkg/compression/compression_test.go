package compression

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		input   string
		want    Type
		wantErr bool
	}{
		{"", TypeNone, false},
		{"none", TypeNone, false},
		{"GZIP", TypeGzip, false},
		{"gz", TypeGzip, false},
		{"zstd", TypeZstd, false},
		{"zst", TypeZstd, false},
		{"brotli", TypeNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestType_Names(t *testing.T) {
	assert.Equal(t, "none", TypeNone.String())
	assert.Equal(t, "gzip", TypeGzip.String())
	assert.Equal(t, "zstd", TypeZstd.String())
	assert.Equal(t, "", TypeNone.Extension())
	assert.Equal(t, ".gz", TypeGzip.Extension())
	assert.Equal(t, ".zst", TypeZstd.Extension())
}

func TestCompress_RoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat(`{"studyUid":"1.2.3","series":[]}`, 200))

	for _, typ := range []Type{TypeNone, TypeGzip, TypeZstd} {
		for _, level := range []Level{LevelFastest, LevelDefault, LevelBest} {
			t.Run(typ.String(), func(t *testing.T) {
				compressed, err := Compress(payload, typ, level)
				require.NoError(t, err)
				assert.Equal(t, typ, DetectType(compressed))
				if typ != TypeNone {
					assert.Less(t, len(compressed), len(payload))
				}

				out, err := AutoDecompress(compressed)
				require.NoError(t, err)
				assert.Equal(t, payload, out)
			})
		}
	}
}

func TestNewWriter_DoesNotCloseUnderlying(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, TypeZstd, LevelDefault)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	buf.WriteString("")
	out, err := AutoDecompress(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestNewWriter_UnknownType(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, Type(42), LevelDefault)
	assert.Error(t, err)
}

func TestDetectType(t *testing.T) {
	assert.Equal(t, TypeNone, DetectType(nil))
	assert.Equal(t, TypeNone, DetectType([]byte("{}")))
	assert.Equal(t, TypeGzip, DetectType([]byte{0x1f, 0x8b}))
	assert.Equal(t, TypeZstd, DetectType([]byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}))
}

func TestAutoDecompress_ShortInput(t *testing.T) {
	out, err := AutoDecompress([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(out))

	out, err = AutoDecompress(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAutoDecompress_CorruptGzip(t *testing.T) {
	_, err := AutoDecompress([]byte{0x1f, 0x8b, 0x00})
	assert.Error(t, err)
}
