// Package errutil holds small error-wrapping helpers shared across
// fossilize packages, plus the taxonomy sentinel types from spec §7.
package errutil

import "fmt"

// Wrap adds context to err, or returns a plain error if err is nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return fmt.Errorf("%s", msg)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf is Wrap with formatting.
func Wrapf(err error, format string, args ...any) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// Timeout builds a TimeoutDetected error for the named operation.
func Timeout(operation string) error {
	return &TimeoutDetected{Operation: operation}
}
