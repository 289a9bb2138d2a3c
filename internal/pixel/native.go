package pixel

import (
	"encoding/binary"

	apperrors "github.com/dicom-triage/pkg/errors"
	"github.com/dicom-triage/pkg/model"
)

// Uncompressed transfer syntaxes.
const (
	ImplicitVRLittleEndian = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"
	ExplicitVRBigEndian    = "1.2.840.10008.1.2.2"
)

// NativeDecoder reads uncompressed pixel data from the dataset's PixelData
// field. It is not registered by default; callers that render native records
// add it to their registry.
type NativeDecoder struct{}

// Decode implements Decoder.
func (NativeDecoder) Decode(_ []byte, ds model.Dataset) (*model.DecodedPixelBuffer, error) {
	ts := ds.String(model.FieldTransferSyntaxUID)
	var order binary.ByteOrder
	switch ts {
	case ImplicitVRLittleEndian, ExplicitVRLittleEndian, "":
		order = binary.LittleEndian
	case ExplicitVRBigEndian:
		order = binary.BigEndian
	default:
		return nil, nil
	}

	l := layoutOf(ds)
	if l.rows <= 0 || l.cols <= 0 {
		return nil, apperrors.New(apperrors.CodeDecodeFailed, "missing image geometry")
	}
	data := ds.Bytes(model.FieldPixelData)
	samples := l.rows * l.cols * l.samplesPerPixel
	planar := ds.IntOr(model.FieldPlanarConfiguration, 0) == 1

	switch l.bitsAllocated {
	case 8:
		if len(data) < samples {
			return nil, apperrors.New(apperrors.CodeDecodeFailed, "short 8-bit pixel data")
		}
		return &model.DecodedPixelBuffer{
			Pixels8:         data[:samples],
			BitsAllocated:   8,
			SamplesPerPixel: l.samplesPerPixel,
			Planar:          planar,
		}, nil
	case 16:
		if len(data) < samples*2 {
			return nil, apperrors.New(apperrors.CodeDecodeFailed, "short 16-bit pixel data")
		}
		out := make([]uint16, samples)
		for i := range out {
			out[i] = order.Uint16(data[i*2:])
		}
		return &model.DecodedPixelBuffer{
			Pixels16:        out,
			BitsAllocated:   16,
			SamplesPerPixel: l.samplesPerPixel,
			Planar:          planar,
		}, nil
	default:
		return nil, apperrors.Wrap(apperrors.CodeUnsupported, "native bit depth", apperrors.ErrUnsupportedLayout)
	}
}
