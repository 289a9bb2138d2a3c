package deepparse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dicom-triage/internal/testutil"
	apperrors "github.com/dicom-triage/pkg/errors"
	"github.com/dicom-triage/pkg/model"
)

func TestDicomParser_Identity(t *testing.T) {
	rec := testutil.Record{
		Study:       "1.2.826.0.1.1",
		Series:      "1.2.826.0.1.1.2",
		Instance:    "1.2.826.0.1.1.2.3",
		PatientID:   "PID-7",
		PatientName: "Doe^Jane",
		Modality:    "US",
		Frames:      3,
	}

	ds, err := New(nil).Parse(context.Background(), rec.Bytes(), WithoutPixelData())
	require.NoError(t, err)

	id, ok := ds.Identity()
	require.True(t, ok)
	assert.Equal(t, model.ParsedIdentity{
		Study:      rec.Study,
		Series:     rec.Series,
		Instance:   rec.Instance,
		FrameCount: 3,
		Modality:   "US",
	}, id)
	assert.Equal(t, "PID-7", ds.String(model.FieldPatientID))
	assert.Equal(t, "Doe^Jane", ds.String(model.FieldPatientName))
	assert.Equal(t, testutil.ExplicitVRLittleEndian, ds.String(model.FieldTransferSyntaxUID))
}

func TestDicomParser_NativePixels(t *testing.T) {
	rec := testutil.Record{
		Study: "1.2", Series: "1.2.3", Instance: "1.2.3.4",
		Rows: 2, Columns: 2, BitsAllocated: 8,
		PixelData: []byte{1, 2, 3, 4},
	}

	ds, err := New(nil).Parse(context.Background(), rec.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, ds.IntOr(model.FieldRows, 0))
	assert.Equal(t, 8, ds.IntOr(model.FieldBitsAllocated, 0))
	assert.Equal(t, "MONOCHROME2", ds.String(model.FieldPhotometricInterpretation))
	assert.Equal(t, []byte{1, 2, 3, 4}, ds.Bytes(model.FieldPixelData))
}

func TestDicomParser_EncapsulatedPixels(t *testing.T) {
	frame := testutil.RLEFrame([]byte{3, 10, 20, 30, 40})
	rec := testutil.Record{
		Study: "1.2", Series: "1.2.3", Instance: "1.2.3.4",
		TransferSyntax: testutil.RLELossless,
		Rows:           2, Columns: 2, BitsAllocated: 8,
		Fragments: [][]byte{{}, frame},
	}

	ds, err := New(nil).Parse(context.Background(), rec.Bytes())
	require.NoError(t, err)
	assert.Equal(t, testutil.RLELossless, ds.String(model.FieldTransferSyntaxUID))

	fragments := ds.Fragments(model.FieldPixelData)
	require.Len(t, fragments, 2)
	assert.Empty(t, fragments[0])
	assert.Equal(t, frame, fragments[1])
}

func TestDicomParser_Malformed(t *testing.T) {
	inputs := map[string][]byte{
		"empty":      nil,
		"magic only": testutil.MagicBuffer(132),
		"truncated":  testutil.Record{Study: "1", Series: "2", Instance: "3"}.Bytes()[:150],
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := New(nil).Parse(context.Background(), data)
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeParseFailed, apperrors.GetErrorCode(err))
		})
	}
}

func TestDicomParser_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).Parse(ctx, testutil.MagicBuffer(200))
	assert.Equal(t, apperrors.CodeCancelled, apperrors.GetErrorCode(err))
}
