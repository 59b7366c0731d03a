package searchbridge

import (
	stderrors "errors"

	"github.com/Aman-CERP/searchbridge/internal/errors"
)

// Error is the error type returned by every fallible operation.
type Error = errors.BridgeError

// Error codes. Compare with Code or the Is helpers.
const (
	CodeInvalidArgument = errors.ErrCodeInvalidArgument
	CodeUnknownOption   = errors.ErrCodeUnknownOption
	CodeDocumentParse   = errors.ErrCodeDocumentParse
	CodeIllegalState    = errors.ErrCodeIllegalState
	CodeDuplicateField  = errors.ErrCodeDuplicateField
	CodeHeapExhausted   = errors.ErrCodeHeapExhausted
	CodeStorage         = errors.ErrCodeStorage
	CodeIndexExists     = errors.ErrCodeIndexExists
	CodeLockBusy        = errors.ErrCodeLockBusy
	CodeCorruptIndex    = errors.ErrCodeCorruptIndex
	CodeLockPoisoned    = errors.ErrCodeLockPoisoned
	CodeCommit          = errors.ErrCodeCommit
	CodeQueryBuild      = errors.ErrCodeQueryBuild
	CodeSearch          = errors.ErrCodeSearch
	CodeReload          = errors.ErrCodeReload
	CodeInternal        = errors.ErrCodeInternal
)

// Code returns the error code of err, or "" when err is not an *Error.
func Code(err error) string { return errors.GetCode(err) }

// IsRetryable reports whether retrying the operation may succeed.
func IsRetryable(err error) bool { return errors.IsRetryable(err) }

func IsInvalidArgument(err error) bool { return stderrors.Is(err, errors.ErrInvalidArgument) }
func IsUnknownOption(err error) bool   { return stderrors.Is(err, errors.ErrUnknownOption) }
func IsDocumentParse(err error) bool   { return stderrors.Is(err, errors.ErrDocumentParse) }
func IsIllegalState(err error) bool    { return stderrors.Is(err, errors.ErrIllegalState) }
func IsLockPoisoned(err error) bool    { return stderrors.Is(err, errors.ErrLockPoisoned) }
func IsLockBusy(err error) bool        { return stderrors.Is(err, errors.ErrLockBusy) }
func IsStorage(err error) bool         { return stderrors.Is(err, errors.ErrStorage) }
func IsCommit(err error) bool          { return stderrors.Is(err, errors.ErrCommit) }
func IsQueryBuild(err error) bool      { return stderrors.Is(err, errors.ErrQueryBuild) }
func IsSearch(err error) bool          { return stderrors.Is(err, errors.ErrSearch) }
