package model

const (
	// AmbiguousValue replaces a patient field when a study carries conflicting values.
	AmbiguousValue = "AMBIGUOUS"
	// ModalityUltrasound wins the series modality whenever any instance declares it.
	ModalityUltrasound = "US"
	// ModalityOther is used when no instance declares a modality.
	ModalityOther = "OT"
)

// Instance is a leaf of the manifest hierarchy.
type Instance struct {
	SOPInstanceUID string `json:"instanceUid"`
	FrameCount     int    `json:"frameCount"`
	Modality       string `json:"modality,omitempty"`
}

// Series groups instances, sorted ascending by UID.
type Series struct {
	SeriesUID string      `json:"seriesUid"`
	Modality  string      `json:"modality"`
	Instances []*Instance `json:"instances"`
}

// Study groups series, sorted ascending by UID.
type Study struct {
	StudyUID    string    `json:"studyUid"`
	PatientID   string    `json:"patientId,omitempty"`
	PatientName string    `json:"patientName,omitempty"`
	Series      []*Series `json:"series"`
}

// PatientConflict records the distinct values seen for a patient field within one study.
type PatientConflict struct {
	StudyUID string   `json:"studyUid"`
	Field    string   `json:"field"`
	Values   []string `json:"values"`
}

// BuildStats are the aggregate counts of one manifest build.
type BuildStats struct {
	InputFiles    int `json:"inputFiles"`
	AcceptedFiles int `json:"acceptedFiles"`
	SkippedFiles  int `json:"skippedFiles"`
	Studies       int `json:"studies"`
	Series        int `json:"series"`
	Instances     int `json:"instances"`
}

// Reconciles reports whether every input is either accepted or skipped.
func (s BuildStats) Reconciles() bool {
	return s.InputFiles == s.AcceptedFiles+s.SkippedFiles
}

// SeriesKey identifies a series within a build.
type SeriesKey struct {
	StudyUID  string
	SeriesUID string
}
