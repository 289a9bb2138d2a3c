// Package mock provides mock implementations for testing.
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dicom-triage/internal/deepparse"
	"github.com/dicom-triage/pkg/model"
)

// MockParser is a mock implementation of the deepparse.Parser interface.
// Options are not passed to the mock.
type MockParser struct {
	mock.Mock
}

// Parse mocks the Parse method.
func (m *MockParser) Parse(ctx context.Context, data []byte, _ ...deepparse.Option) (model.Dataset, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Dataset), args.Error(1)
}

// ExpectParse sets up an expectation for Parse on any input.
func (m *MockParser) ExpectParse(result model.Dataset, err error) *mock.Call {
	return m.On("Parse", mock.Anything, mock.Anything).Return(result, err)
}

// ExpectParseOf sets up an expectation for Parse of specific bytes.
func (m *MockParser) ExpectParseOf(data []byte, result model.Dataset, err error) *mock.Call {
	return m.On("Parse", mock.Anything, data).Return(result, err)
}
