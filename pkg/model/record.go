// Package model defines the core data structures shared by the ingestion pipeline.
package model

// SkipReason classifies why an input was excluded from the manifest.
type SkipReason string

const (
	SkipNotRecord      SkipReason = "not-a-record"    // byte/content heuristics failed
	SkipParseFailed    SkipReason = "parse-failed"    // identity extraction or member decompression failed
	SkipContainerError SkipReason = "container-error" // the archive itself is unreadable
	SkipSizeCap        SkipReason = "size-cap"        // member exceeded the configured byte ceiling
)

// ContainerEntryName is the SkipRecord name used for whole-archive failures.
const ContainerEntryName = "<container>"

// Valid reports whether r is one of the known skip reasons.
func (r SkipReason) Valid() bool {
	switch r {
	case SkipNotRecord, SkipParseFailed, SkipContainerError, SkipSizeCap:
		return true
	default:
		return false
	}
}

// RawEntry is an archive member or loose file before classification.
type RawEntry struct {
	Name  string
	Bytes []byte
}

// SkipRecord is emitted whenever an entry is excluded.
type SkipRecord struct {
	Name   string     `json:"name"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// ParsedIdentity is the minimal identity tuple needed to place a file in the hierarchy.
type ParsedIdentity struct {
	Study      string `json:"study"`
	Series     string `json:"series"`
	Instance   string `json:"instance"`
	FrameCount int    `json:"frameCount,omitempty"`
	Modality   string `json:"modality,omitempty"`
}

// Complete reports whether all three UIDs are present.
func (p ParsedIdentity) Complete() bool {
	return p.Study != "" && p.Series != "" && p.Instance != ""
}

// Frames returns the frame count, never less than 1.
func (p ParsedIdentity) Frames() int {
	if p.FrameCount < 1 {
		return 1
	}
	return p.FrameCount
}
