package manifest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dicom-triage/pkg/model"
)

// patientValues collects the distinct non-empty patient values seen in one study.
type patientValues struct {
	ids   map[string]struct{}
	names map[string]struct{}
}

func (p *patientValues) add(id, name string) {
	if id != "" {
		p.ids[id] = struct{}{}
	}
	if name != "" {
		p.names[name] = struct{}{}
	}
}

// aggregate turns classified records into a Result. Records arrive in input
// order, which only the representative index depends on.
func (b *Builder) aggregate(records []classified) *Result {
	res := &Result{
		Studies: []*model.Study{},
		Skipped: []model.SkipRecord{},
		Index:   newRepresentativeIndex(),
	}
	res.Stats.InputFiles = len(records)

	accepted := make([]classified, 0, len(records))
	patients := make(map[string]*patientValues)
	for _, rec := range records {
		if rec.skip != nil {
			res.Skipped = append(res.Skipped, *rec.skip)
			continue
		}
		accepted = append(accepted, rec)
		id := rec.identity
		res.Index.add(model.SeriesKey{StudyUID: id.Study, SeriesUID: id.Series}, rec.file)
		pv, ok := patients[id.Study]
		if !ok {
			pv = &patientValues{ids: map[string]struct{}{}, names: map[string]struct{}{}}
			patients[id.Study] = pv
		}
		pv.add(rec.patientID, rec.patientName)
	}
	res.Stats.AcceptedFiles = len(accepted)
	res.Stats.SkippedFiles = len(res.Skipped)

	// Duplicate instances resolve to the last record in canonical order,
	// which makes the winner independent of input order.
	sort.SliceStable(accepted, func(i, j int) bool {
		return canonicalLess(accepted[i], accepted[j])
	})

	type seriesAcc struct {
		instances map[string]*model.Instance
	}
	studies := make(map[string]map[string]*seriesAcc)
	for _, rec := range accepted {
		id := rec.identity
		series, ok := studies[id.Study]
		if !ok {
			series = make(map[string]*seriesAcc)
			studies[id.Study] = series
		}
		acc, ok := series[id.Series]
		if !ok {
			acc = &seriesAcc{instances: make(map[string]*model.Instance)}
			series[id.Series] = acc
		}
		acc.instances[id.Instance] = &model.Instance{
			SOPInstanceUID: id.Instance,
			FrameCount:     id.Frames(),
			Modality:       id.Modality,
		}
	}

	for _, studyUID := range sortedKeys(studies) {
		study := &model.Study{StudyUID: studyUID, Series: []*model.Series{}}
		for _, seriesUID := range sortedKeys(studies[studyUID]) {
			acc := studies[studyUID][seriesUID]
			s := &model.Series{SeriesUID: seriesUID, Instances: make([]*model.Instance, 0, len(acc.instances))}
			for _, uid := range sortedKeys(acc.instances) {
				s.Instances = append(s.Instances, acc.instances[uid])
			}
			s.Modality = seriesModality(s.Instances)
			study.Series = append(study.Series, s)
			res.Stats.Series++
			res.Stats.Instances += len(s.Instances)
		}
		b.resolvePatient(res, study, patients[studyUID])
		res.Studies = append(res.Studies, study)
	}
	res.Stats.Studies = len(res.Studies)
	return res
}

// resolvePatient fills the study patient fields, replacing conflicting
// values with model.AmbiguousValue.
func (b *Builder) resolvePatient(res *Result, study *model.Study, pv *patientValues) {
	if pv == nil {
		return
	}
	var conflicted []string
	resolve := func(field string, values map[string]struct{}) string {
		switch len(values) {
		case 0:
			return ""
		case 1:
			for v := range values {
				return v
			}
		}
		sorted := sortedKeys(values)
		res.Conflicts = append(res.Conflicts, model.PatientConflict{
			StudyUID: study.StudyUID,
			Field:    field,
			Values:   sorted,
		})
		conflicted = append(conflicted, fmt.Sprintf("%s: %s", field, strings.Join(sorted, ", ")))
		return model.AmbiguousValue
	}
	study.PatientID = resolve(model.FieldPatientID, pv.ids)
	study.PatientName = resolve(model.FieldPatientName, pv.names)
	if len(conflicted) > 0 {
		res.Warnings = append(res.Warnings, Warning{
			StudyUID: study.StudyUID,
			Message: fmt.Sprintf("patient identity conflict in study %s (%s)",
				study.StudyUID, strings.Join(conflicted, "; ")),
		})
	}
}

// seriesModality is US when any instance is US, otherwise the modality of
// the first instance, otherwise model.ModalityOther.
func seriesModality(instances []*model.Instance) string {
	for _, inst := range instances {
		if inst.Modality == model.ModalityUltrasound {
			return model.ModalityUltrasound
		}
	}
	if len(instances) > 0 && instances[0].Modality != "" {
		return instances[0].Modality
	}
	return model.ModalityOther
}

func canonicalLess(a, b classified) bool {
	x, y := a.identity, b.identity
	switch {
	case x.Study != y.Study:
		return x.Study < y.Study
	case x.Series != y.Series:
		return x.Series < y.Series
	case x.Instance != y.Instance:
		return x.Instance < y.Instance
	case x.Frames() != y.Frames():
		return x.Frames() < y.Frames()
	case x.Modality != y.Modality:
		return x.Modality < y.Modality
	}
	return a.file.Name < b.file.Name
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
