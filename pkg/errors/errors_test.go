package errors

import (
	"errors"
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
			err:      New(CodeHierarchyError, "parent map inconsistent"),
			expected: "[HIERARCHY_ERROR] parent map inconsistent",
		},
		{
			name:     "with underlying error",
			err:      Wrap(CodeOrderFileError, "read failed", errors.New("file truncated")),
			expected: "[ORDER_FILE_ERROR] read failed: file truncated",
		},
		{
			name:     "formatted message",
			err:      Newf(CodeSpecError, "min_count %d exceeds max_count %d", 10, 5),
			expected: "[SPEC_ERROR] min_count 10 exceeds max_count 5",
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
	err := Wrap(CodeImageError, "image load failed", underlying)

	unwrapped := err.Unwrap()
	assert.Equal(t, underlying, unwrapped)
}

func TestAppError_Is(t *testing.T) {
	err1 := New(CodeSpecError, "error 1")
	err2 := New(CodeSpecError, "error 2")
	err3 := New(CodeImageError, "error 3")

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
}

func TestIsSpecError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "spec error",
			err:      ErrSpecError,
			expected: true,
		},
		{
			name:     "wrapped spec error",
			err:      Wrap(CodeSpecError, "bad spec", errors.New("unknown strategy")),
			expected: true,
		},
		{
			name:     "other error",
			err:      ErrImageError,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSpecError(tt.err))
		})
	}
}

func TestIsImageError(t *testing.T) {
	assert.True(t, IsImageError(ErrImageError))
	assert.False(t, IsImageError(ErrSpecError))
}

func TestIsOrderFileError(t *testing.T) {
	assert.True(t, IsOrderFileError(ErrOrderFileError))
	assert.False(t, IsOrderFileError(ErrDatabaseError))
}

func TestIsDatabaseError(t *testing.T) {
	assert.True(t, IsDatabaseError(ErrDatabaseError))
	assert.False(t, IsDatabaseError(ErrStorageError))
}

func TestIsStorageError(t *testing.T) {
	assert.True(t, IsStorageError(ErrStorageError))
	assert.False(t, IsStorageError(ErrDatabaseError))
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "app error",
			err:      New(CodeGroupingError, "group split failed"),
			expected: CodeGroupingError,
		},
		{
			name:     "wrapped app error",
			err:      Wrap(CodeTypeTagError, "tag required", errors.New("inner")),
			expected: CodeTypeTagError,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: CodeUnknown,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: CodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorCode(tt.err))
		})
	}
}

func TestGetErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "app error",
			err:      New(CodeHierarchyError, "type has two parents"),
			expected: "type has two parents",
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: "standard error",
		},
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorMessage(tt.err))
		})
	}
}
