package features

import (
	"errors"
	"fmt"
)

// ErrInvalidNumericInput is the sentinel behind every NumericError.
var ErrInvalidNumericInput = errors.New("invalid numeric input")

// NumericError reports a numeric field whose value is not a number.
type NumericError struct {
	Field string
	Value string
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("%s: %q is not a number", e.Field, e.Value)
}

func (e *NumericError) Unwrap() error { return ErrInvalidNumericInput }

// AssemblyError means the primary encoding could not run, usually because an
// encoder artifact is missing or does not match the expected columns. It is
// recoverable through the fallback assembler.
type AssemblyError struct {
	Stage string
	Err   error
}

func (e *AssemblyError) Error() string {
	if e.Err == nil {
		return "feature assembly: " + e.Stage
	}
	return fmt.Sprintf("feature assembly: %s: %v", e.Stage, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// IsAssemblyError reports whether err carries an AssemblyError.
func IsAssemblyError(err error) bool {
	var ae *AssemblyError
	return errors.As(err, &ae)
}
