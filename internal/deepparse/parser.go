// Package deepparse turns raw record bytes into a naturalized Dataset.
package deepparse

import (
	"bytes"
	"context"
	"fmt"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	apperrors "github.com/dicom-triage/pkg/errors"
	"github.com/dicom-triage/pkg/model"
	"github.com/dicom-triage/pkg/utils"
)

// Parser produces a naturalized Dataset from raw bytes.
type Parser interface {
	Parse(ctx context.Context, data []byte, opts ...Option) (model.Dataset, error)
}

type options struct {
	skipPixelData bool
}

// Option configures a single Parse call.
type Option func(*options)

// WithoutPixelData skips the pixel data element entirely.
func WithoutPixelData() Option {
	return func(o *options) { o.skipPixelData = true }
}

// fields maps the tags the pipeline reads to their naturalized names.
var fields = map[tag.Tag]string{
	tag.TransferSyntaxUID:         model.FieldTransferSyntaxUID,
	tag.SOPInstanceUID:            model.FieldSOPInstanceUID,
	tag.StudyInstanceUID:          model.FieldStudyInstanceUID,
	tag.SeriesInstanceUID:         model.FieldSeriesInstanceUID,
	tag.PatientID:                 model.FieldPatientID,
	tag.PatientName:               model.FieldPatientName,
	tag.Modality:                  model.FieldModality,
	tag.NumberOfFrames:            model.FieldNumberOfFrames,
	tag.Rows:                      model.FieldRows,
	tag.Columns:                   model.FieldColumns,
	tag.BitsAllocated:             model.FieldBitsAllocated,
	tag.SamplesPerPixel:           model.FieldSamplesPerPixel,
	tag.PlanarConfiguration:       model.FieldPlanarConfiguration,
	tag.PhotometricInterpretation: model.FieldPhotometricInterpretation,
	tag.PixelRepresentation:       model.FieldPixelRepresentation,
	tag.WindowCenter:              model.FieldWindowCenter,
	tag.WindowWidth:               model.FieldWindowWidth,
	tag.RescaleSlope:              model.FieldRescaleSlope,
	tag.RescaleIntercept:          model.FieldRescaleIntercept,
	tag.PixelData:                 model.FieldPixelData,
}

// DicomParser is the Parser backed by github.com/suyashkumar/dicom.
type DicomParser struct {
	logger utils.Logger
}

// New creates a DicomParser.
func New(logger utils.Logger) *DicomParser {
	return &DicomParser{logger: utils.OrNull(logger)}
}

// Parse implements Parser. Library panics on malformed input are
// returned as parse failures.
func (p *DicomParser) Parse(ctx context.Context, data []byte, opts ...Option) (ds model.Dataset, err error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCancelled, "deep parse", err)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	defer func() {
		if r := recover(); r != nil {
			ds = nil
			err = apperrors.Wrap(apperrors.CodeParseFailed, "deep parse panicked", fmt.Errorf("%v", r))
		}
	}()

	parseOpts := []dicom.ParseOption{dicom.SkipProcessingPixelDataValue()}
	if o.skipPixelData {
		parseOpts = []dicom.ParseOption{dicom.SkipPixelData()}
	}
	parsed, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil, parseOpts...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeParseFailed, "deep parse", err)
	}

	ds = make(model.Dataset, len(fields))
	for _, elem := range parsed.Elements {
		name, ok := fields[elem.Tag]
		if !ok || elem.Value == nil {
			continue
		}
		if v := naturalize(elem.Value.GetValue()); v != nil {
			ds[name] = v
		}
	}
	p.logger.Debug("deep parse: %d elements, %d naturalized", len(parsed.Elements), len(ds))
	return ds, nil
}

func naturalize(v any) any {
	switch x := v.(type) {
	case []string:
		return x
	case []int:
		return x
	case []float64:
		return x
	case []byte:
		return x
	case dicom.PixelDataInfo:
		return pixelFragments(x)
	default:
		return nil
	}
}

// pixelFragments returns encapsulated pixel data as an empty offset table
// followed by one fragment per item, and native pixel data as raw bytes.
func pixelFragments(info dicom.PixelDataInfo) any {
	if info.IntentionallySkipped {
		return nil
	}
	if info.IsEncapsulated {
		fragments := [][]byte{{}}
		for _, f := range info.Frames {
			fragments = append(fragments, f.EncapsulatedData.Data)
		}
		return fragments
	}
	if len(info.UnprocessedValueData) > 0 {
		return info.UnprocessedValueData
	}
	return nil
}
