package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("permission denied")

	// When: wrapping with BridgeError
	bridgeErr := New(ErrCodeStorage, "cannot create index directory", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, bridgeErr)
	assert.Equal(t, originalErr, errors.Unwrap(bridgeErr))
	assert.True(t, errors.Is(bridgeErr, originalErr))
}

func TestBridgeError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigNotFound,
			message:  "config file not found",
			expected: "[ERR_102_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "storage error",
			code:     ErrCodeStorage,
			message:  "cannot open /tmp/idx",
			expected: "[ERR_201_STORAGE] cannot open /tmp/idx",
		},
		{
			name:     "document error",
			code:     ErrCodeDocumentParse,
			message:  "expected a string",
			expected: "[ERR_403_DOCUMENT_PARSE] expected a string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestBridgeError_Is_MatchesByCode(t *testing.T) {
	// Given: two errors with same code
	err1 := New(ErrCodeLockPoisoned, "writer lock poisoned", nil)
	err2 := New(ErrCodeLockPoisoned, "reader lock poisoned", nil)

	// Then: they match by code, and against the sentinel
	assert.True(t, errors.Is(err1, err2))
	assert.True(t, errors.Is(err1, ErrLockPoisoned))
}

func TestBridgeError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	// Given: two errors with different codes
	err1 := New(ErrCodeCommit, "commit failed", nil)
	err2 := New(ErrCodeSearch, "search failed", nil)

	// Then: they don't match
	assert.False(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, ErrSearch))
}

func TestBridgeError_Is_ThroughFmtWrapping(t *testing.T) {
	// Given: a BridgeError wrapped by fmt.Errorf
	err := fmt.Errorf("commit async: %w", New(ErrCodeCommit, "disk full", nil))

	// Then: sentinel comparison and code extraction see through the wrapper
	assert.True(t, errors.Is(err, ErrCommit))
	assert.Equal(t, ErrCodeCommit, GetCode(err))
	assert.Equal(t, CategoryEngine, GetCategory(err))
}

func TestBridgeError_WithDetails_AddsContext(t *testing.T) {
	// Given: a base error
	err := New(ErrCodeDocumentParse, "value does not match field type", nil)

	// When: adding details
	err = err.WithDetail("field", "year")
	err = err.WithDetail("expected", "numeric")

	// Then: details are available
	assert.Equal(t, "year", err.Details["field"])
	assert.Equal(t, "numeric", err.Details["expected"])
}

func TestBridgeError_WithSuggestion_AddsSuggestion(t *testing.T) {
	// Given: a heap exhausted error
	err := New(ErrCodeHeapExhausted, "writer buffer is full", nil)

	// When: adding suggestion
	err = err.WithSuggestion("Commit, then retry the document")

	// Then: suggestion is available
	assert.Equal(t, "Commit, then retry the document", err.Suggestion)
}

func TestBridgeError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigNotFound, CategoryConfig},
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeStorage, CategoryStorage},
		{ErrCodeLockBusy, CategoryStorage},
		{ErrCodeInvalidArgument, CategoryValidation},
		{ErrCodeUnknownOption, CategoryValidation},
		{ErrCodeDocumentParse, CategoryValidation},
		{ErrCodeCommit, CategoryEngine},
		{ErrCodeQueryBuild, CategoryEngine},
		{ErrCodeSearch, CategoryEngine},
		{ErrCodeInternal, CategoryInternal},
		{ErrCodeLockPoisoned, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestBridgeError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodeCorruptIndex, SeverityFatal},
		{ErrCodeLockPoisoned, SeverityFatal},
		{ErrCodeDocumentParse, SeverityError},
		{ErrCodeStorage, SeverityWarning}, // Retryable, so warning
		{ErrCodeLockBusy, SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestBridgeError_RetryableFromCode(t *testing.T) {
	tests := []struct {
		code          string
		wantRetryable bool
	}{
		{ErrCodeStorage, true},
		{ErrCodeLockBusy, true},
		{ErrCodeHeapExhausted, true},
		{ErrCodeDocumentParse, false},
		{ErrCodeDuplicateField, false},
		{ErrCodeLockPoisoned, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap_CreatesBridgeErrorFromError(t *testing.T) {
	// Given: a standard error
	originalErr := errors.New("something went wrong")

	// When: wrapping with a code
	bridgeErr := Wrap(ErrCodeInternal, originalErr)

	// Then: creates proper BridgeError
	require.NotNil(t, bridgeErr)
	assert.Equal(t, ErrCodeInternal, bridgeErr.Code)
	assert.Equal(t, "something went wrong", bridgeErr.Message)
	assert.Equal(t, originalErr, bridgeErr.Cause)
}

func TestWrap_KeepsExistingCode(t *testing.T) {
	// Given: an error that already carries a taxonomy code
	poisoned := New(ErrCodeLockPoisoned, "writer lock poisoned", nil)

	// When: a caller wraps it under a broader code
	wrapped := Wrapf(ErrCodeCommit, poisoned, "commit")

	// Then: the original code is never masked
	assert.Equal(t, ErrCodeLockPoisoned, wrapped.Code)
	assert.Nil(t, Wrap(ErrCodeCommit, nil))
}

func TestUnknownOption_CarriesKindAndName(t *testing.T) {
	err := UnknownOption("field type", "blob")

	assert.Equal(t, ErrCodeUnknownOption, err.Code)
	assert.Equal(t, "field type", err.Details["kind"])
	assert.Equal(t, "blob", err.Details["name"])
	assert.Contains(t, err.Error(), `"blob"`)
}

func TestPanicked_ConvertsRecoveredValue(t *testing.T) {
	errValue := Panicked("commit", errors.New("boom"))
	strValue := Panicked("commit", "boom")

	assert.Equal(t, ErrCodeInternal, errValue.Code)
	assert.NotNil(t, errValue.Cause)
	assert.Contains(t, strValue.Message, "panic in commit: boom")
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable BridgeError",
			err:      New(ErrCodeLockBusy, "writer lock held", nil),
			expected: true,
		},
		{
			name:     "non-retryable BridgeError",
			err:      New(ErrCodeDocumentParse, "bad document", nil),
			expected: false,
		},
		{
			name:     "wrapped retryable error",
			err:      fmt.Errorf("open writer: %w", Wrap(ErrCodeStorage, errors.New("EAGAIN"))),
			expected: true,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
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
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "corrupt index",
			err:      New(ErrCodeCorruptIndex, "index corrupt", nil),
			expected: true,
		},
		{
			name:     "poisoned lock",
			err:      New(ErrCodeLockPoisoned, "poisoned", nil),
			expected: true,
		},
		{
			name:     "non-fatal error",
			err:      New(ErrCodeQueryBuild, "bad query", nil),
			expected: false,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}

func TestClassify(t *testing.T) {
	t.Run("retryable codes are warnings", func(t *testing.T) {
		for code, c := range classes {
			assert.Equal(t, c.retryable, c.severity == SeverityWarning, code)
		}
	})

	t.Run("unknown code is internal", func(t *testing.T) {
		err := New("ERR_999_SOMETHING", "x", nil)

		assert.Equal(t, CategoryInternal, err.Category)
		assert.Equal(t, SeverityError, err.Severity)
		assert.False(t, err.Retryable)
	})
}
