package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrTypeValidation, "test error message")

	assert.Equal(t, ErrTypeValidation, err.Type)
	assert.Equal(t, "test error message", err.Message)
	assert.NoError(t, err.Cause)
}

func TestNewf(t *testing.T) {
	err := Newf(ErrTypeDatabase, "failed to connect to %s", "database")

	assert.Equal(t, ErrTypeDatabase, err.Type)
	assert.Equal(t, "failed to connect to database", err.Message)
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, ErrTypeQueryExecution, "query execution failed")

	assert.Equal(t, ErrTypeQueryExecution, wrappedErr.Type)
	assert.Equal(t, "query execution failed", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestWrapf(t *testing.T) {
	originalErr := errors.New("no such table")
	wrappedErr := Wrapf(originalErr, ErrTypeNotFound, "no tables for namespace %q", "abc123")

	assert.Equal(t, ErrTypeNotFound, wrappedErr.Type)
	assert.Equal(t, `no tables for namespace "abc123"`, wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name: "error without cause",
			err: &Error{
				Type:    ErrTypeInvalidStatement,
				Message: "generated query is not a SELECT statement",
			},
			expected: "invalid_statement: generated query is not a SELECT statement",
		},
		{
			name: "error with cause",
			err: &Error{
				Type:    ErrTypeDatabase,
				Message: "query failed",
				Cause:   errors.New("connection timeout"),
			},
			expected: "database: query failed (caused by: connection timeout)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, ErrTypeGenerationUnavailable, "wrapped error")

	assert.Equal(t, originalErr, wrappedErr.Unwrap())
}

func TestIsType(t *testing.T) {
	err := New(ErrTypeNotFound, "no tables found")

	assert.True(t, IsType(err, ErrTypeNotFound))
	assert.False(t, IsType(err, ErrTypeDatabase))
	assert.False(t, IsType(errors.New("plain"), ErrTypeNotFound))
}

func TestGetType(t *testing.T) {
	assert.Equal(t, ErrTypeMalformedGeneration, GetType(New(ErrTypeMalformedGeneration, "bad JSON")))
	assert.Equal(t, ErrTypeInternal, GetType(errors.New("plain")))
}

func TestIsClientInput(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    bool
	}{
		{ErrTypeNotFound, true},
		{ErrTypeInvalidStatement, true},
		{ErrTypeQueryExecution, true},
		{ErrTypeValidation, true},
		{ErrTypeGenerationUnavailable, false},
		{ErrTypeDatabase, false},
		{ErrTypeInternal, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.Equal(t, tt.want, IsClientInput(New(tt.errType, "x")))
		})
	}
}

func TestWithSuggestion(t *testing.T) {
	err := New(ErrTypeConfig, "no API key configured").
		WithSuggestion("Set TABLECHAT_LLM_API_KEY or run without a generator for deterministic answers")

	assert.Len(t, err.Suggestions, 1)
}
