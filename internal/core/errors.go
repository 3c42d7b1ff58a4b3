package core

import (
	"errors"

	"github.com/JonMunkholm/qbimport/internal/tabular"
)

var (
	// ErrTooManyRuns is returned when all run slots stay occupied for the
	// limiter's wait time. Clients should retry after a short delay.
	ErrTooManyRuns = errors.New("too many concurrent imports, please try again later")

	// ErrRunNotFound is returned for unknown or expired run ids.
	ErrRunNotFound = errors.New("import run not found")

	// ErrNoFile is returned when an import is started without content.
	ErrNoFile = errors.New("no file provided")

	// ErrFileTooLarge is returned when the input exceeds the configured size.
	ErrFileTooLarge = errors.New("file too large")

	ErrEmptyFile         = tabular.ErrEmptyFile
	ErrUnsupportedFormat = tabular.ErrUnsupportedFormat
)

// ValidationError is a row-level input error. Its message is reported
// verbatim in the run's error list.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
