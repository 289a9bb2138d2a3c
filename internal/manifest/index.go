package manifest

import (
	"sort"

	"github.com/dicom-triage/pkg/model"
)

// RepresentativeIndex maps each series of one build to the first file seen
// for it. It belongs to the build that produced it.
type RepresentativeIndex struct {
	files map[model.SeriesKey]*model.File
}

func newRepresentativeIndex() *RepresentativeIndex {
	return &RepresentativeIndex{files: make(map[model.SeriesKey]*model.File)}
}

// add records f for key unless a file is already recorded.
func (ix *RepresentativeIndex) add(key model.SeriesKey, f *model.File) {
	if _, ok := ix.files[key]; !ok {
		ix.files[key] = f
	}
}

// Get returns the representative file of a series.
func (ix *RepresentativeIndex) Get(studyUID, seriesUID string) (*model.File, bool) {
	if ix == nil {
		return nil, false
	}
	f, ok := ix.files[model.SeriesKey{StudyUID: studyUID, SeriesUID: seriesUID}]
	return f, ok
}

// Len returns the number of series indexed.
func (ix *RepresentativeIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.files)
}

// Keys returns the indexed series sorted by study then series UID.
func (ix *RepresentativeIndex) Keys() []model.SeriesKey {
	if ix == nil {
		return nil
	}
	keys := make([]model.SeriesKey, 0, len(ix.files))
	for k := range ix.files {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].StudyUID != keys[j].StudyUID {
			return keys[i].StudyUID < keys[j].StudyUID
		}
		return keys[i].SeriesUID < keys[j].SeriesUID
	})
	return keys
}
