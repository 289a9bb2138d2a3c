package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Naturalized field names produced by the deep-parse collaborator.
const (
	FieldStudyInstanceUID          = "StudyInstanceUID"
	FieldSeriesInstanceUID         = "SeriesInstanceUID"
	FieldSOPInstanceUID            = "SOPInstanceUID"
	FieldPatientID                 = "PatientID"
	FieldPatientName               = "PatientName"
	FieldModality                  = "Modality"
	FieldNumberOfFrames            = "NumberOfFrames"
	FieldTransferSyntaxUID         = "TransferSyntaxUID"
	FieldRows                      = "Rows"
	FieldColumns                   = "Columns"
	FieldBitsAllocated             = "BitsAllocated"
	FieldSamplesPerPixel           = "SamplesPerPixel"
	FieldPlanarConfiguration       = "PlanarConfiguration"
	FieldPhotometricInterpretation = "PhotometricInterpretation"
	FieldPixelRepresentation       = "PixelRepresentation"
	FieldWindowCenter              = "WindowCenter"
	FieldWindowWidth               = "WindowWidth"
	FieldRescaleSlope              = "RescaleSlope"
	FieldRescaleIntercept          = "RescaleIntercept"
	FieldPixelData                 = "PixelData"
)

// Dataset is a flat, named-field view of a parsed record.
//
// Values are whatever the parser produced: strings, numbers, slices of
// either (multi-valued fields), raw bytes, or [][]byte for fragmented
// pixel data. The accessors below normalize those shapes.
type Dataset map[string]any

// String returns the first value of key as a trimmed string.
func (d Dataset) String(key string) string {
	v, ok := d[key]
	if !ok || v == nil {
		return ""
	}
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case []string:
		if len(x) == 0 {
			return ""
		}
		s = x[0]
	case []byte:
		s = string(x)
	case fmt.Stringer:
		s = x.String()
	case int, int64, uint16, uint32, float64:
		s = fmt.Sprint(x)
	case []int:
		if len(x) == 0 {
			return ""
		}
		s = strconv.Itoa(x[0])
	default:
		return ""
	}
	return strings.Trim(s, " \x00")
}

// Int returns the first value of key as an int.
func (d Dataset) Int(key string) (int, bool) {
	v, ok := d[key]
	if !ok || v == nil {
		return 0, false
	}
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case int32:
		return int(x), true
	case uint16:
		return int(x), true
	case uint32:
		return int(x), true
	case float64:
		return int(x), true
	case []int:
		if len(x) > 0 {
			return x[0], true
		}
	case []uint16:
		if len(x) > 0 {
			return int(x[0]), true
		}
	case []int64:
		if len(x) > 0 {
			return int(x[0]), true
		}
	case string, []string:
		f, ok := d.Float(key)
		if ok {
			return int(f), true
		}
	}
	return 0, false
}

// Float returns the first value of key as a float64. Backslash-separated
// multi-value strings yield their first element.
func (d Dataset) Float(key string) (float64, bool) {
	v, ok := d[key]
	if !ok || v == nil {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case []float64:
		if len(x) > 0 {
			return x[0], true
		}
		return 0, false
	case string, []string:
		s := d.String(key)
		if i := strings.IndexByte(s, '\\'); i >= 0 {
			s = s[:i]
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	n, ok := d.Int(key)
	return float64(n), ok
}

// IntOr returns the int value of key, or def if absent or unparsable.
func (d Dataset) IntOr(key string, def int) int {
	if n, ok := d.Int(key); ok {
		return n
	}
	return def
}

// Fragments returns key as a fragment list. A plain byte slice is a single fragment.
func (d Dataset) Fragments(key string) [][]byte {
	switch x := d[key].(type) {
	case [][]byte:
		return x
	case []byte:
		if len(x) == 0 {
			return nil
		}
		return [][]byte{x}
	default:
		return nil
	}
}

// Bytes returns key as contiguous bytes, concatenating fragments when needed.
func (d Dataset) Bytes(key string) []byte {
	switch x := d[key].(type) {
	case []byte:
		return x
	case [][]byte:
		n := 0
		for _, f := range x {
			n += len(f)
		}
		out := make([]byte, 0, n)
		for _, f := range x {
			out = append(out, f...)
		}
		return out
	default:
		return nil
	}
}

// Identity extracts the hierarchy identity from the dataset's named fields.
func (d Dataset) Identity() (ParsedIdentity, bool) {
	id := ParsedIdentity{
		Study:      d.String(FieldStudyInstanceUID),
		Series:     d.String(FieldSeriesInstanceUID),
		Instance:   d.String(FieldSOPInstanceUID),
		FrameCount: d.IntOr(FieldNumberOfFrames, 1),
		Modality:   strings.ToUpper(d.String(FieldModality)),
	}
	if id.FrameCount < 1 {
		id.FrameCount = 1
	}
	return id, id.Complete()
}
