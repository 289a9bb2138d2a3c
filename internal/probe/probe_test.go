package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func magicBuffer(n int) []byte {
	buf := make([]byte, n)
	copy(buf[MagicOffset:], "DICM")
	return buf
}

func TestProbe_Magic(t *testing.T) {
	buf := magicBuffer(132)
	assert.True(t, Probe(buf))
	assert.True(t, HasMagic(buf))

	for i := 0; i < 4; i++ {
		corrupt := magicBuffer(132)
		corrupt[MagicOffset+i] = 0
		assert.False(t, Probe(corrupt), "byte %d zeroed", i)
	}
}

func TestProbe_ShortAndEmpty(t *testing.T) {
	assert.False(t, Probe(nil))
	assert.False(t, Probe([]byte{}))
	assert.Equal(t, 132, MinLength)
	assert.False(t, Probe(magicBuffer(132)[:MinLength-1]))
}

func TestProbe_UIDFallback(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"transfer syntax uid", append(make([]byte, 8), []byte("1.2.840.10008.1.2.1")...), true},
		{"other registry root", []byte("xx 1.2.276.0.7230010 yy"), false},
		{"bare prefix", []byte("\x00\x001.2.840.113619\x00"), true},
		{"plain text", []byte("hello, notes file"), false},
		{"similar but different", []byte("1.2.841.10008"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Probe(tt.data))
		})
	}
}

func TestProbe_InvalidUTF8(t *testing.T) {
	data := []byte{0xff, 0xfe, 0xc3, 0x28, 0xa0, 0xa1}
	data = append(data, []byte("1.2.840.10008.5.1.4")...)
	data = append(data, 0xf0, 0x28, 0x8c)
	assert.True(t, Probe(data))

	assert.False(t, Probe([]byte{0xff, 0xfe, 0xfd, 0x80, 0x81}))
}

func TestProbe_ScanLimit(t *testing.T) {
	data := make([]byte, ScanLimit+100)
	copy(data[ScanLimit+10:], "1.2.840.10008")
	assert.False(t, Probe(data))

	copy(data[ScanLimit-20:], "1.2.840.10008")
	assert.True(t, Probe(data))
}
