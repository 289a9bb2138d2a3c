// Package filename parses record identity encoded in file names of the form
// study-<UID>_series-<UID>_inst-<UID>[_frames-<N>][_mod-<MOD>][.<ext>].
package filename

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/dicom-triage/pkg/model"
)

var namePattern = regexp.MustCompile(
	`(?i)^study-([A-Z0-9._]+)_series-([A-Z0-9._]+)_inst-([A-Z0-9._]+)` +
		`(?:_frames-(\d+))?(?:_mod-([A-Z0-9]+))?$`)

// RecordSuffix is the conventional file suffix for records.
const RecordSuffix = ".dcm"

// ParseName extracts identity from name. Directory components are ignored.
func ParseName(name string) (model.ParsedIdentity, bool) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if HasRecordSuffix(base) {
		base = base[:len(base)-len(RecordSuffix)]
	}
	m := namePattern.FindStringSubmatch(base)
	if m == nil {
		return model.ParsedIdentity{}, false
	}

	id := model.ParsedIdentity{
		Study:      m[1],
		Series:     m[2],
		Instance:   m[3],
		FrameCount: 1,
		Modality:   strings.ToUpper(m[5]),
	}
	if m[4] != "" {
		n, err := strconv.Atoi(m[4])
		if err != nil || n < 1 {
			return model.ParsedIdentity{}, false
		}
		id.FrameCount = n
	}
	return id, true
}

// Format renders an identity in the naming convention, including the
// record suffix. It is the inverse of ParseName for identities whose UIDs
// are restricted to the allowed alphabet.
func Format(id model.ParsedIdentity) string {
	var b strings.Builder
	b.WriteString("study-")
	b.WriteString(id.Study)
	b.WriteString("_series-")
	b.WriteString(id.Series)
	b.WriteString("_inst-")
	b.WriteString(id.Instance)
	if id.FrameCount > 1 {
		b.WriteString("_frames-")
		b.WriteString(strconv.Itoa(id.FrameCount))
	}
	if id.Modality != "" {
		b.WriteString("_mod-")
		b.WriteString(id.Modality)
	}
	b.WriteString(RecordSuffix)
	return b.String()
}

// HasRecordSuffix reports whether name ends with the record suffix, ignoring case.
func HasRecordSuffix(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), RecordSuffix)
}
