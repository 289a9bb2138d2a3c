package mock

import (
	"github.com/stretchr/testify/mock"

	"github.com/dicom-triage/pkg/model"
)

// MockDecoder is a mock implementation of the pixel.Decoder interface.
type MockDecoder struct {
	mock.Mock
}

// Decode mocks the Decode method.
func (m *MockDecoder) Decode(raw []byte, ds model.Dataset) (*model.DecodedPixelBuffer, error) {
	args := m.Called(raw, ds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DecodedPixelBuffer), args.Error(1)
}

// ExpectDecode sets up an expectation for Decode on any input.
func (m *MockDecoder) ExpectDecode(buf *model.DecodedPixelBuffer, err error) *mock.Call {
	return m.On("Decode", mock.Anything, mock.Anything).Return(buf, err)
}
