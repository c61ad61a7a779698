package lroi

import (
	"errors"
	"fmt"
)

// Standard error values for configuration and run-level failures
var (
	// ErrNoConfig indicates that no mapping configuration was supplied
	ErrNoConfig = errors.New("lroi: missing mapping configuration")

	// ErrNoPROMSections indicates a configuration without any [PROM.*] section
	ErrNoPROMSections = errors.New("lroi: configuration defines no PROM sections")

	// ErrJoinColumnNotFound indicates the LUT file lacks the configured join column
	ErrJoinColumnNotFound = errors.New("lroi: LUT join column not found")

	// ErrUnsupportedFormat indicates an unsupported input file format
	ErrUnsupportedFormat = errors.New("lroi: unsupported file format")

	// ErrNothingConverted indicates a run that produced zero questionnaires
	ErrNothingConverted = errors.New("lroi: no questionnaires converted")
)

// ValidationError reports a match-only conversion rule that did not match.
// It is row-scoped: the element is omitted and, unless a schema-mandatory
// element goes missing as a result, the surrounding row still converts.
type ValidationError struct {
	Element string
	Value   string
	Pattern string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("lroi: validation failed for %s: %q does not match %q",
		e.Element, e.Value, e.Pattern)
}

// configError wraps a fatal configuration-level failure with its source.
func configError(op string, err error) error {
	return fmt.Errorf("lroi: %s: %w", op, err)
}
