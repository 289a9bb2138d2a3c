package testutil

import "encoding/binary"

// RLEFrame lays out already-compressed segments behind a standard 64-byte
// run-length header: segment count followed by segment offsets.
func RLEFrame(segments ...[]byte) []byte {
	header := make([]byte, 64)
	binary.LittleEndian.PutUint32(header[0:], uint32(len(segments)))
	off := 64
	for i, seg := range segments {
		binary.LittleEndian.PutUint32(header[4*(i+1):], uint32(off))
		off += len(seg)
	}
	frame := header
	for _, seg := range segments {
		frame = append(frame, seg...)
	}
	return frame
}

// OffsetTable encodes a basic offset table.
func OffsetTable(offsets ...uint32) []byte {
	b := make([]byte, 4*len(offsets))
	for i, o := range offsets {
		binary.LittleEndian.PutUint32(b[4*i:], o)
	}
	return b
}
