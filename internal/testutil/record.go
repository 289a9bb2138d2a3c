package testutil

import (
	"bytes"
	"encoding/binary"
	"sort"
	"strconv"
)

// Tag is a (group, element) pair.
type Tag struct {
	Group, Element uint16
}

// Tags used by the fixture builder.
var (
	TagMetaGroupLength      = Tag{0x0002, 0x0000}
	TagMetaVersion          = Tag{0x0002, 0x0001}
	TagMediaSOPClassUID     = Tag{0x0002, 0x0002}
	TagMediaSOPInstanceUID  = Tag{0x0002, 0x0003}
	TagTransferSyntaxUID    = Tag{0x0002, 0x0010}
	TagSOPClassUID          = Tag{0x0008, 0x0016}
	TagSOPInstanceUID       = Tag{0x0008, 0x0018}
	TagModality             = Tag{0x0008, 0x0060}
	TagPatientName          = Tag{0x0010, 0x0010}
	TagPatientID            = Tag{0x0010, 0x0020}
	TagStudyInstanceUID     = Tag{0x0020, 0x000D}
	TagSeriesInstanceUID    = Tag{0x0020, 0x000E}
	TagSamplesPerPixel      = Tag{0x0028, 0x0002}
	TagPhotometric          = Tag{0x0028, 0x0004}
	TagNumberOfFrames       = Tag{0x0028, 0x0008}
	TagRows                 = Tag{0x0028, 0x0010}
	TagColumns              = Tag{0x0028, 0x0011}
	TagBitsAllocated        = Tag{0x0028, 0x0100}
	TagBitsStored           = Tag{0x0028, 0x0101}
	TagHighBit              = Tag{0x0028, 0x0102}
	TagPixelRepresentation  = Tag{0x0028, 0x0103}
	TagPixelData            = Tag{0x7FE0, 0x0010}
)

const secondaryCaptureClassUID = "1.2.840.10008.5.1.4.1.1.7"

// Transfer syntaxes used by fixtures.
const (
	ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"
	RLELossless            = "1.2.840.10008.1.2.5"
)

// Element is one explicit-VR little-endian data element. Encapsulated
// elements carry Fragments instead of Value and are written with undefined length.
type Element struct {
	Tag       Tag
	VR        string
	Value     []byte
	Fragments [][]byte
}

// Str builds a string element, padded to even length.
func Str(tag Tag, vr, s string) Element {
	b := []byte(s)
	if len(b)%2 == 1 {
		pad := byte(' ')
		if vr == "UI" {
			pad = 0
		}
		b = append(b, pad)
	}
	return Element{Tag: tag, VR: vr, Value: b}
}

// US builds an unsigned short element.
func US(tag Tag, v uint16) Element {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return Element{Tag: tag, VR: "US", Value: b}
}

// Encapsulated builds a fragmented pixel data element. fragments[0] is the offset table.
func Encapsulated(fragments ...[]byte) Element {
	return Element{Tag: TagPixelData, VR: "OB", Fragments: fragments}
}

func longVR(vr string) bool {
	switch vr {
	case "OB", "OW", "OF", "OD", "OL", "OV", "SQ", "UT", "UN", "UC", "UR":
		return true
	}
	return false
}

func writeElement(buf *bytes.Buffer, e Element) {
	le := binary.LittleEndian
	_ = binary.Write(buf, le, e.Tag.Group)
	_ = binary.Write(buf, le, e.Tag.Element)
	buf.WriteString(e.VR)

	if e.Fragments != nil {
		buf.Write([]byte{0, 0})
		_ = binary.Write(buf, le, uint32(0xFFFFFFFF))
		for _, f := range e.Fragments {
			_ = binary.Write(buf, le, uint16(0xFFFE))
			_ = binary.Write(buf, le, uint16(0xE000))
			_ = binary.Write(buf, le, uint32(len(f)))
			buf.Write(f)
		}
		_ = binary.Write(buf, le, uint16(0xFFFE))
		_ = binary.Write(buf, le, uint16(0xE0DD))
		_ = binary.Write(buf, le, uint32(0))
		return
	}

	if longVR(e.VR) {
		buf.Write([]byte{0, 0})
		_ = binary.Write(buf, le, uint32(len(e.Value)))
	} else {
		_ = binary.Write(buf, le, uint16(len(e.Value)))
	}
	buf.Write(e.Value)
}

// Part10 encodes a complete file: preamble, meta group for transferSyntax,
// and the dataset elements sorted by tag.
func Part10(transferSyntax, sopInstanceUID string, elems ...Element) []byte {
	var meta bytes.Buffer
	writeElement(&meta, Element{Tag: TagMetaVersion, VR: "OB", Value: []byte{0, 1}})
	writeElement(&meta, Str(TagMediaSOPClassUID, "UI", secondaryCaptureClassUID))
	writeElement(&meta, Str(TagMediaSOPInstanceUID, "UI", sopInstanceUID))
	writeElement(&meta, Str(TagTransferSyntaxUID, "UI", transferSyntax))

	var out bytes.Buffer
	out.Write(make([]byte, 128))
	out.WriteString("DICM")
	groupLen := make([]byte, 4)
	binary.LittleEndian.PutUint32(groupLen, uint32(meta.Len()))
	writeElement(&out, Element{Tag: TagMetaGroupLength, VR: "UL", Value: groupLen})
	out.Write(meta.Bytes())

	sorted := append([]Element(nil), elems...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Tag, sorted[j].Tag
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Element < b.Element
	})
	for _, e := range sorted {
		writeElement(&out, e)
	}
	return out.Bytes()
}

// Record describes a synthetic record at the level tests care about.
type Record struct {
	Study, Series, Instance string
	PatientID, PatientName  string
	Modality                string
	Frames                  int
	TransferSyntax          string
	Rows, Columns           int
	BitsAllocated           int
	SamplesPerPixel         int
	Photometric             string
	PixelData               []byte
	Fragments               [][]byte
}

// Bytes encodes r as a Part 10 file.
func (r Record) Bytes() []byte {
	ts := r.TransferSyntax
	if ts == "" {
		ts = ExplicitVRLittleEndian
	}
	elems := []Element{
		Str(TagSOPClassUID, "UI", secondaryCaptureClassUID),
		Str(TagSOPInstanceUID, "UI", r.Instance),
		Str(TagStudyInstanceUID, "UI", r.Study),
		Str(TagSeriesInstanceUID, "UI", r.Series),
	}
	if r.Modality != "" {
		elems = append(elems, Str(TagModality, "CS", r.Modality))
	}
	if r.PatientName != "" {
		elems = append(elems, Str(TagPatientName, "PN", r.PatientName))
	}
	if r.PatientID != "" {
		elems = append(elems, Str(TagPatientID, "LO", r.PatientID))
	}
	if r.Frames > 1 {
		elems = append(elems, Str(TagNumberOfFrames, "IS", strconv.Itoa(r.Frames)))
	}
	if r.Rows > 0 && r.Columns > 0 {
		bits := r.BitsAllocated
		if bits == 0 {
			bits = 8
		}
		spp := r.SamplesPerPixel
		if spp == 0 {
			spp = 1
		}
		pi := r.Photometric
		if pi == "" {
			pi = "MONOCHROME2"
			if spp == 3 {
				pi = "RGB"
			}
		}
		elems = append(elems,
			US(TagSamplesPerPixel, uint16(spp)),
			Str(TagPhotometric, "CS", pi),
			US(TagRows, uint16(r.Rows)),
			US(TagColumns, uint16(r.Columns)),
			US(TagBitsAllocated, uint16(bits)),
			US(TagBitsStored, uint16(bits)),
			US(TagHighBit, uint16(bits-1)),
			US(TagPixelRepresentation, 0),
		)
		switch {
		case r.Fragments != nil:
			elems = append(elems, Encapsulated(r.Fragments...))
		case r.PixelData != nil:
			vr := "OB"
			if bits == 16 {
				vr = "OW"
			}
			data := r.PixelData
			if len(data)%2 == 1 {
				data = append(append([]byte(nil), data...), 0)
			}
			elems = append(elems, Element{Tag: TagPixelData, VR: vr, Value: data})
		}
	}
	return Part10(ts, r.Instance, elems...)
}
