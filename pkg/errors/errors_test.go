package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			err:      New(CodeContainerError, "bad central directory"),
			expected: "[CONTAINER_ERROR] bad central directory",
		},
		{
			name:     "with underlying error",
			err:      Wrap(CodeParseFailed, "deep parse failed", errors.New("unexpected EOF")),
			expected: "[PARSE_FAILED] deep parse failed: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(CodeIOError, "read failed", underlying)

	assert.Equal(t, underlying, err.Unwrap())
	assert.True(t, errors.Is(err, underlying))
}

func TestAppError_Is(t *testing.T) {
	err := Wrap(CodeContainerError, "zip: not a valid zip file", errors.New("eocd"))
	wrapped := fmt.Errorf("extract: %w", err)

	assert.True(t, IsContainerError(wrapped))
	assert.False(t, IsParseFailed(wrapped))
	assert.True(t, IsParseFailed(Wrap(CodeParseFailed, "x", nil)))
	assert.True(t, IsEntryTooLarge(ErrEntryTooLarge))
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"app error", New(CodeDecodeFailed, "rle"), CodeDecodeFailed},
		{"wrapped app error", fmt.Errorf("ctx: %w", ErrTimeout), CodeTimeout},
		{"plain error", errors.New("plain"), CodeUnknown},
		{"nil", nil, CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorCode(tt.err))
		})
	}
}

func TestGetErrorMessage(t *testing.T) {
	assert.Equal(t, "not a record", GetErrorMessage(ErrNotRecord))
	assert.Equal(t, "plain", GetErrorMessage(errors.New("plain")))
	assert.Equal(t, "", GetErrorMessage(nil))
}
