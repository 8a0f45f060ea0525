package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData means no ticker produced usable data for the run window
	ErrNoData = errors.New("no usable market data")

	// ErrNoWinner means data was fetched but no date yielded a winner
	ErrNoWinner = errors.New("no winner produced")
)

// ValidationError is a bad invocation payload. Raised before any I/O.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a payload validation failure
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
