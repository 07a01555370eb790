package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidFileFormat    = errors.New("invalid file format")
	ErrUnsupportedFormat    = errors.New("unsupported file format")
	ErrSchemaValidation     = errors.New("schema validation failed")
	ErrInvalidGradingScheme = errors.New("invalid grading scheme")
	ErrConflict             = errors.New("concurrent modification detected")
	ErrDuplicate            = errors.New("duplicate key")
	ErrLockTimeout          = errors.New("timed out waiting for spreadsheet lock")

	ErrTeacherNotFound     = fmt.Errorf("teacher %w", ErrNotFound)
	ErrClassNotFound       = fmt.Errorf("class %w", ErrNotFound)
	ErrSpreadsheetNotFound = fmt.Errorf("class spreadsheet %w", ErrNotFound)
	ErrStudentNotFound     = fmt.Errorf("student %w", ErrNotFound)
	ErrRecordNotFound      = fmt.Errorf("grade record %w", ErrNotFound)
)

// New, Is and As are re-exported so callers importing this package under the
// name "errors" keep the standard helpers.
var (
	New = errors.New
	Is  = errors.Is
	As  = errors.As
)

type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s",
		e.Field, e.Value, e.Message)
}

// Unwrap lets callers match any validation failure with ErrSchemaValidation.
func (e ValidationError) Unwrap() error {
	return ErrSchemaValidation
}

type RetryableError struct {
	Err     error
	Message string
}

func (e RetryableError) Error() string {
	return fmt.Sprintf("retryable error: %s - %s", e.Message, e.Err.Error())
}

func (e RetryableError) Unwrap() error {
	return e.Err
}

func NewRetryableError(err error, message string) error {
	return RetryableError{
		Err:     err,
		Message: message,
	}
}

func IsRetryable(err error) bool {
	var re RetryableError
	return errors.As(err, &re)
}
