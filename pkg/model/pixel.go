package model

// DecodedPixelBuffer is the normalized output of any pixel decoder.
// Exactly one of Pixels8 and Pixels16 is populated, matching BitsAllocated.
type DecodedPixelBuffer struct {
	Pixels8         []byte
	Pixels16        []uint16
	BitsAllocated   int
	SamplesPerPixel int
	Planar          bool
}

// Valid reports whether the buffer is non-empty with 8 or 16 bits allocated.
func (b *DecodedPixelBuffer) Valid() bool {
	if b == nil {
		return false
	}
	switch b.BitsAllocated {
	case 8:
		return len(b.Pixels8) > 0
	case 16:
		return len(b.Pixels16) > 0
	default:
		return false
	}
}

// Len returns the number of samples held by the buffer.
func (b *DecodedPixelBuffer) Len() int {
	if b == nil {
		return 0
	}
	if b.BitsAllocated == 16 {
		return len(b.Pixels16)
	}
	return len(b.Pixels8)
}
