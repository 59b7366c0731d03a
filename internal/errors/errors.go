package errors

import (
	stderrors "errors"
	"fmt"
)

// BridgeError is the structured error type returned by every fallible
// searchbridge operation. The Code identifies the taxonomy entry.
type BridgeError struct {
	// Code is the unique error code (e.g., "ERR_403_DOCUMENT_PARSE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Validation, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *BridgeError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *BridgeError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() against the sentinel values below.
func (e *BridgeError) Is(target error) bool {
	if t, ok := target.(*BridgeError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *BridgeError) WithDetail(key, value string) *BridgeError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *BridgeError) WithSuggestion(suggestion string) *BridgeError {
	e.Suggestion = suggestion
	return e
}

// Sentinels for errors.Is comparisons. Only the code is compared.
var (
	ErrInvalidArgument = &BridgeError{Code: ErrCodeInvalidArgument}
	ErrUnknownOption   = &BridgeError{Code: ErrCodeUnknownOption}
	ErrDocumentParse   = &BridgeError{Code: ErrCodeDocumentParse}
	ErrIllegalState    = &BridgeError{Code: ErrCodeIllegalState}
	ErrDuplicateField  = &BridgeError{Code: ErrCodeDuplicateField}
	ErrHeapExhausted   = &BridgeError{Code: ErrCodeHeapExhausted}
	ErrLockPoisoned    = &BridgeError{Code: ErrCodeLockPoisoned}
	ErrStorage         = &BridgeError{Code: ErrCodeStorage}
	ErrIndexExists     = &BridgeError{Code: ErrCodeIndexExists}
	ErrCorruptIndex    = &BridgeError{Code: ErrCodeCorruptIndex}
	ErrConfigInvalid   = &BridgeError{Code: ErrCodeConfigInvalid}
	ErrConfigNotFound  = &BridgeError{Code: ErrCodeConfigNotFound}
	ErrLockBusy        = &BridgeError{Code: ErrCodeLockBusy}
	ErrCommit          = &BridgeError{Code: ErrCodeCommit}
	ErrQueryBuild      = &BridgeError{Code: ErrCodeQueryBuild}
	ErrSearch          = &BridgeError{Code: ErrCodeSearch}
	ErrReload          = &BridgeError{Code: ErrCodeReload}
	ErrInternal        = &BridgeError{Code: ErrCodeInternal}
)

// New creates a new BridgeError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *BridgeError {
	c := classify(code)
	return &BridgeError{
		Code:      code,
		Message:   message,
		Category:  c.category,
		Severity:  c.severity,
		Cause:     cause,
		Retryable: c.retryable,
	}
}

// Newf creates a BridgeError with a formatted message and no cause.
func Newf(code string, format string, args ...any) *BridgeError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates a BridgeError from an existing error.
// The error's message becomes the BridgeError message. An error that already
// is a BridgeError is returned unchanged so codes are never masked.
func Wrap(code string, err error) *BridgeError {
	if err == nil {
		return nil
	}
	var be *BridgeError
	if stderrors.As(err, &be) {
		return be
	}
	return New(code, err.Error(), err)
}

// Wrapf wraps err under code with a context prefix, keeping existing codes.
func Wrapf(code string, err error, format string, args ...any) *BridgeError {
	if err == nil {
		return nil
	}
	var be *BridgeError
	if stderrors.As(err, &be) {
		return be
	}
	return New(code, fmt.Sprintf(format, args...)+": "+err.Error(), err)
}

// InvalidArgument creates an error for malformed or out-of-range input.
func InvalidArgument(format string, args ...any) *BridgeError {
	return Newf(ErrCodeInvalidArgument, format, args...)
}

// UnknownOption creates an error for an unrecognised descriptor name.
func UnknownOption(kind, name string) *BridgeError {
	return New(ErrCodeUnknownOption, fmt.Sprintf("unknown %s: %q", kind, name), nil).
		WithDetail("kind", kind).
		WithDetail("name", name)
}

// IllegalState creates an error for use of a handle in the wrong state.
func IllegalState(format string, args ...any) *BridgeError {
	return Newf(ErrCodeIllegalState, format, args...)
}

// StorageError creates an error for directory open/create failures.
func StorageError(message string, cause error) *BridgeError {
	return New(ErrCodeStorage, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *BridgeError {
	return New(ErrCodeInternal, message, cause)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *BridgeError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// Panicked converts a recovered panic value into an internal error.
func Panicked(where string, r any) *BridgeError {
	if err, ok := r.(error); ok {
		return New(ErrCodeInternal, fmt.Sprintf("panic in %s: %v", where, err), err)
	}
	return New(ErrCodeInternal, fmt.Sprintf("panic in %s: %v", where, r), nil)
}

// As returns the BridgeError in err's chain, if any.
func As(err error) (*BridgeError, bool) {
	var be *BridgeError
	if stderrors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
// Returns true if the chain holds a BridgeError with Retryable flag set.
func IsRetryable(err error) bool {
	if be, ok := As(err); ok {
		return be.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if be, ok := As(err); ok {
		return be.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a BridgeError.
// Returns empty string if not a BridgeError.
func GetCode(err error) string {
	if be, ok := As(err); ok {
		return be.Code
	}
	return ""
}

// GetCategory extracts the category from a BridgeError.
// Returns empty string if not a BridgeError.
func GetCategory(err error) Category {
	if be, ok := As(err); ok {
		return be.Category
	}
	return ""
}
