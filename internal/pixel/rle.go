package pixel

import (
	"encoding/binary"
	"sort"

	apperrors "github.com/dicom-triage/pkg/errors"
	"github.com/dicom-triage/pkg/model"
)

// RLELossless is the run-length transfer syntax handled by the built-in decoder.
const RLELossless = "1.2.840.10008.1.2.5"

const (
	rleHeaderSize  = 64
	rleMaxSegments = 15
)

// FirstFrame reassembles the first frame from encapsulated pixel fragments.
//
// Fragment 0 is the basic offset table: little-endian uint32 offsets into the
// concatenation of the remaining fragments. A single fragment is taken to be
// the frame itself. An empty, all-zero or misaligned table means the whole
// remainder is the first frame.
func FirstFrame(fragments [][]byte) []byte {
	switch len(fragments) {
	case 0:
		return nil
	case 1:
		return fragments[0]
	}

	rest := concat(fragments[1:])
	offsets := ParseOffsetTable(fragments[0])
	if len(offsets) == 0 {
		return rest
	}

	start := clamp(int(offsets[0]), len(rest))
	end := len(rest)
	if len(offsets) > 1 {
		end = clamp(int(offsets[1]), len(rest))
	}
	if end <= start {
		return rest[start:]
	}
	return rest[start:end]
}

// ParseOffsetTable decodes a basic offset table. It returns nil for a
// degenerate table: empty, shorter than one entry, not a multiple of 4 bytes,
// or containing only zero offsets.
func ParseOffsetTable(bot []byte) []uint32 {
	if len(bot) < 4 || len(bot)%4 != 0 {
		return nil
	}
	offsets := make([]uint32, len(bot)/4)
	nonZero := false
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint32(bot[i*4:])
		if offsets[i] != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		return nil
	}
	return offsets
}

// SegmentBounds reads the 64-byte RLE header of frame and returns the
// [start,end) byte range of each segment.
//
// A well-formed header stores the segment count in its first entry and the
// first segment at offset 64. Headers that do not follow that layout are
// read leniently: every non-zero offset inside the frame starts a segment.
func SegmentBounds(frame []byte) [][2]int {
	if len(frame) < rleHeaderSize {
		return nil
	}
	var header [16]uint32
	for i := range header {
		header[i] = binary.LittleEndian.Uint32(frame[i*4:])
	}

	var starts []int
	if n := int(header[0]); n >= 1 && n <= rleMaxSegments && header[1] == rleHeaderSize {
		for i := 1; i <= n; i++ {
			if off := int(header[i]); off >= rleHeaderSize && off < len(frame) {
				starts = append(starts, off)
			}
		}
	} else {
		for _, off := range header {
			if o := int(off); o >= rleHeaderSize && o < len(frame) {
				starts = append(starts, o)
			}
		}
		sort.Ints(starts)
	}

	bounds := make([][2]int, 0, len(starts))
	for i, s := range starts {
		end := len(frame)
		if i+1 < len(starts) && starts[i+1] > s {
			end = starts[i+1]
		}
		bounds = append(bounds, [2]int{s, end})
	}
	return bounds
}

// maxExpansion is the largest output-to-input ratio of a run-length segment:
// two input bytes repeat one byte 128 times.
const maxExpansion = 64

// PackBitsDecode expands a signed-byte run-length segment. Output is capped
// at limit bytes; a non-positive limit means uncapped. The initial allocation
// never exceeds what src can expand to.
func PackBitsDecode(src []byte, limit int) []byte {
	capHint := len(src) * 2
	if limit > 0 {
		capHint = min(limit, len(src)*maxExpansion)
	}
	out := make([]byte, 0, capHint)
	full := func() bool { return limit > 0 && len(out) >= limit }

	for i := 0; i < len(src) && !full(); {
		n := int(int8(src[i]))
		i++
		switch {
		case n >= 0:
			count := n + 1
			if i+count > len(src) {
				count = len(src) - i
			}
			if limit > 0 && len(out)+count > limit {
				count = limit - len(out)
			}
			out = append(out, src[i:i+count]...)
			i += n + 1
		case n > -128:
			if i >= len(src) {
				return out
			}
			count := 1 - n
			if limit > 0 && len(out)+count > limit {
				count = limit - len(out)
			}
			b := src[i]
			for k := 0; k < count; k++ {
				out = append(out, b)
			}
			i++
		}
	}
	return out
}

// PackBitsEncode compresses src with the same signed-byte run-length scheme.
func PackBitsEncode(src []byte) []byte {
	var out []byte
	for i := 0; i < len(src); {
		run := 1
		for i+run < len(src) && run < 128 && src[i+run] == src[i] {
			run++
		}
		if run >= 2 {
			out = append(out, byte(int8(1-run)), src[i])
			i += run
			continue
		}
		start := i
		for i < len(src) && i-start < 128 {
			if i+1 < len(src) && src[i+1] == src[i] {
				break
			}
			i++
		}
		if i == start {
			i++
		}
		out = append(out, byte(i-start-1))
		out = append(out, src[start:i]...)
	}
	return out
}

// rleLayout is the geometry the run-length decoder needs from a dataset.
type rleLayout struct {
	rows, cols      int
	bitsAllocated   int
	samplesPerPixel int
	frames          int
}

func layoutOf(ds model.Dataset) rleLayout {
	return rleLayout{
		rows:            ds.IntOr(model.FieldRows, 0),
		cols:            ds.IntOr(model.FieldColumns, 0),
		bitsAllocated:   ds.IntOr(model.FieldBitsAllocated, 8),
		samplesPerPixel: ds.IntOr(model.FieldSamplesPerPixel, 1),
		frames:          ds.IntOr(model.FieldNumberOfFrames, 1),
	}
}

// DecodeRLE decodes the first frame of a run-length dataset. It returns
// ErrUnsupportedLayout for multi-frame and 16-bit color inputs, and a
// DECODE_FAILED error when a segment is missing or expands to fewer than
// rows*columns bytes.
func DecodeRLE(ds model.Dataset) (*model.DecodedPixelBuffer, error) {
	l := layoutOf(ds)
	if l.frames > 1 {
		return nil, apperrors.Wrap(apperrors.CodeUnsupported, "multi-frame run-length", apperrors.ErrUnsupportedLayout)
	}
	if l.bitsAllocated == 16 && l.samplesPerPixel == 3 {
		return nil, apperrors.Wrap(apperrors.CodeUnsupported, "16-bit color run-length", apperrors.ErrUnsupportedLayout)
	}
	if l.rows <= 0 || l.cols <= 0 {
		return nil, apperrors.New(apperrors.CodeDecodeFailed, "missing image geometry")
	}

	frame := FirstFrame(ds.Fragments(model.FieldPixelData))
	bounds := SegmentBounds(frame)
	plane := l.rows * l.cols
	if plane > len(frame)*maxExpansion {
		return nil, apperrors.New(apperrors.CodeDecodeFailed, "run-length frame too small for image geometry")
	}
	segments := func(n int) ([][]byte, bool) {
		if len(bounds) < n {
			return nil, false
		}
		out := make([][]byte, n)
		for i := range out {
			b := bounds[i]
			out[i] = PackBitsDecode(frame[b[0]:b[1]], plane)
			if len(out[i]) < plane {
				return nil, false
			}
		}
		return out, true
	}

	switch {
	case l.bitsAllocated == 8 && l.samplesPerPixel == 1:
		segs, ok := segments(1)
		if !ok {
			break
		}
		return &model.DecodedPixelBuffer{
			Pixels8:         segs[0],
			BitsAllocated:   8,
			SamplesPerPixel: 1,
		}, nil

	case l.bitsAllocated == 8 && l.samplesPerPixel == 3:
		segs, ok := segments(3)
		if !ok {
			break
		}
		out := concat(segs)
		return &model.DecodedPixelBuffer{
			Pixels8:         out,
			BitsAllocated:   8,
			SamplesPerPixel: 3,
			Planar:          true,
		}, nil

	case l.bitsAllocated == 16 && l.samplesPerPixel == 1:
		segs, ok := segments(2)
		if !ok {
			break
		}
		lo, hi := segs[0], segs[1]
		out := make([]uint16, plane)
		for i := range out {
			out[i] = uint16(hi[i])<<8 | uint16(lo[i])
		}
		return &model.DecodedPixelBuffer{
			Pixels16:        out,
			BitsAllocated:   16,
			SamplesPerPixel: 1,
		}, nil

	default:
		return nil, apperrors.Wrap(apperrors.CodeUnsupported, "run-length layout", apperrors.ErrUnsupportedLayout)
	}
	return nil, apperrors.New(apperrors.CodeDecodeFailed, "missing or short run-length segments")
}

func concat(parts [][]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
