package thumbnail

import (
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/dicom-triage/pkg/model"
)

// window maps stored values to display intensities.
type window struct {
	slope, intercept float64
	lo, hi           float64
	invert           bool
}

func (w window) apply(v float64) uint8 {
	v = v*w.slope + w.intercept
	var out float64
	if w.hi <= w.lo {
		out = 0
	} else {
		out = (v - w.lo) / (w.hi - w.lo) * 255
	}
	out = math.Max(0, math.Min(255, out))
	if w.invert {
		out = 255 - out
	}
	return uint8(out + 0.5)
}

// toImage converts a decoded buffer into an image of rows x cols. It returns
// nil when the buffer does not hold a full first frame.
func toImage(buf *model.DecodedPixelBuffer, ds model.Dataset) image.Image {
	rows := ds.IntOr(model.FieldRows, 0)
	cols := ds.IntOr(model.FieldColumns, 0)
	if !buf.Valid() || rows <= 0 || cols <= 0 {
		return nil
	}
	plane := rows * cols
	spp := buf.SamplesPerPixel
	if spp <= 0 {
		spp = 1
	}
	if buf.Len() < plane*spp {
		return nil
	}
	if spp == 3 {
		return colorImage(buf, ds, rows, cols)
	}
	return grayImage(buf, ds, rows, cols)
}

func grayImage(buf *model.DecodedPixelBuffer, ds model.Dataset, rows, cols int) image.Image {
	plane := rows * cols
	signed := ds.IntOr(model.FieldPixelRepresentation, 0) == 1
	values := make([]float64, plane)
	for i := range values {
		switch {
		case buf.BitsAllocated == 8:
			values[i] = float64(buf.Pixels8[i])
		case signed:
			values[i] = float64(int16(buf.Pixels16[i]))
		default:
			values[i] = float64(buf.Pixels16[i])
		}
	}

	w := window{slope: 1, invert: strings.TrimSpace(ds.String(model.FieldPhotometricInterpretation)) == "MONOCHROME1"}
	if s, ok := ds.Float(model.FieldRescaleSlope); ok && s != 0 {
		w.slope = s
	}
	if b, ok := ds.Float(model.FieldRescaleIntercept); ok {
		w.intercept = b
	}
	center, hasCenter := ds.Float(model.FieldWindowCenter)
	width, hasWidth := ds.Float(model.FieldWindowWidth)
	switch {
	case hasCenter && hasWidth && width > 0:
		w.lo, w.hi = center-width/2, center+width/2
	case buf.BitsAllocated == 16:
		w.lo, w.hi = math.Inf(1), math.Inf(-1)
		for _, v := range values {
			v = v*w.slope + w.intercept
			w.lo = math.Min(w.lo, v)
			w.hi = math.Max(w.hi, v)
		}
	default:
		w.lo, w.hi = 0, 255
		w.slope, w.intercept = 1, 0
	}

	img := image.NewGray(image.Rect(0, 0, cols, rows))
	for i, v := range values {
		img.Pix[(i/cols)*img.Stride+i%cols] = w.apply(v)
	}
	return img
}

func colorImage(buf *model.DecodedPixelBuffer, ds model.Dataset, rows, cols int) image.Image {
	plane := rows * cols
	sample := func(i int) uint8 {
		if buf.BitsAllocated == 16 {
			return uint8(buf.Pixels16[i] >> 8)
		}
		return buf.Pixels8[i]
	}
	at := func(px, c int) uint8 {
		if buf.Planar {
			return sample(c*plane + px)
		}
		return sample(px*3 + c)
	}
	ybr := strings.HasPrefix(strings.TrimSpace(ds.String(model.FieldPhotometricInterpretation)), "YBR_FULL")

	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for px := 0; px < plane; px++ {
		r, g, b := at(px, 0), at(px, 1), at(px, 2)
		if ybr {
			r, g, b = color.YCbCrToRGB(r, g, b)
		}
		o := (px/cols)*img.Stride + (px%cols)*4
		img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = r, g, b, 0xff
	}
	return img
}
