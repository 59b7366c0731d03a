// Package errors provides the structured error taxonomy of searchbridge.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (index directory, locks)
//   - 4XX: Validation errors, caught before reaching the engine
//   - 5XX: Engine and internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates index directory and lock errors.
	CategoryStorage Category = "STORAGE"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryEngine indicates failures reported by the search engine.
	CategoryEngine Category = "ENGINE"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates the guarded state may be corrupt; abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but the handle is usable.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates a transient failure worth retrying.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid  = "ERR_101_CONFIG_INVALID"
	ErrCodeConfigNotFound = "ERR_102_CONFIG_NOT_FOUND"

	// Storage errors (200-299)
	ErrCodeStorage      = "ERR_201_STORAGE"
	ErrCodeIndexExists  = "ERR_202_INDEX_EXISTS"
	ErrCodeLockBusy     = "ERR_203_LOCK_BUSY"
	ErrCodeCorruptIndex = "ERR_204_CORRUPT_INDEX"

	// Validation errors (400-499)
	ErrCodeInvalidArgument = "ERR_401_INVALID_ARGUMENT"
	ErrCodeUnknownOption   = "ERR_402_UNKNOWN_OPTION"
	ErrCodeDocumentParse   = "ERR_403_DOCUMENT_PARSE"
	ErrCodeIllegalState    = "ERR_404_ILLEGAL_STATE"
	ErrCodeDuplicateField  = "ERR_405_DUPLICATE_FIELD"
	ErrCodeHeapExhausted   = "ERR_406_HEAP_EXHAUSTED"

	// Engine and internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeLockPoisoned = "ERR_502_LOCK_POISONED"
	ErrCodeCommit       = "ERR_503_COMMIT"
	ErrCodeQueryBuild   = "ERR_504_QUERY_BUILD"
	ErrCodeSearch       = "ERR_505_SEARCH"
	ErrCodeReload       = "ERR_506_RELOAD"
)

type class struct {
	category  Category
	severity  Severity
	retryable bool
}

var (
	classConfig     = class{CategoryConfig, SeverityError, false}
	classStorage    = class{CategoryStorage, SeverityError, false}
	classValidation = class{CategoryValidation, SeverityError, false}
	classEngine     = class{CategoryEngine, SeverityError, false}
	classInternal   = class{CategoryInternal, SeverityError, false}
)

// classes holds every code. A storage failure and a busy writer lock may
// clear up on their own; a full writer buffer clears after a commit.
var classes = map[string]class{
	ErrCodeConfigInvalid:  classConfig,
	ErrCodeConfigNotFound: classConfig,

	ErrCodeStorage:      {CategoryStorage, SeverityWarning, true},
	ErrCodeIndexExists:  classStorage,
	ErrCodeLockBusy:     {CategoryStorage, SeverityWarning, true},
	ErrCodeCorruptIndex: {CategoryStorage, SeverityFatal, false},

	ErrCodeInvalidArgument: classValidation,
	ErrCodeUnknownOption:   classValidation,
	ErrCodeDocumentParse:   classValidation,
	ErrCodeIllegalState:    classValidation,
	ErrCodeDuplicateField:  classValidation,
	ErrCodeHeapExhausted:   {CategoryValidation, SeverityWarning, true},

	ErrCodeInternal:     classInternal,
	ErrCodeLockPoisoned: {CategoryInternal, SeverityFatal, false},
	ErrCodeCommit:       classEngine,
	ErrCodeQueryBuild:   classEngine,
	ErrCodeSearch:       classEngine,
	ErrCodeReload:       classEngine,
}

// classify returns the class of code. Unknown codes are internal errors.
func classify(code string) class {
	if c, ok := classes[code]; ok {
		return c
	}
	return classInternal
}
