// Package errdefs defines the error kinds raised while reconstructing and
// verifying a model graph.
//
// Every failure is one of four kinds, testable with errors.Is:
//   - ErrFormat: the description is structurally invalid or self-inconsistent
//   - ErrUnsupported: a valid construct the engine does not implement
//   - ErrPrecision: the host float layout cannot decode binary weights
//   - ErrVerification: a recorded output deviates beyond tolerance
//
// Detail types (FormatError, UnsupportedError, VerificationFailure) carry the
// offending layer, field and values and match their sentinel via Is.
package errdefs

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	ErrFormat       = errors.New("format error")
	ErrUnsupported  = errors.New("unsupported feature")
	ErrPrecision    = errors.New("precision error: host float32 is not IEEE-754 binary32")
	ErrVerification = errors.New("verification failure")
)

// FormatError describes a structurally invalid description element.
type FormatError struct {
	Layer   string // Layer name, empty when not inside a layer
	Field   string // Offending field or path
	Details string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	switch {
	case e.Layer != "" && e.Field != "":
		return fmt.Sprintf("format error: layer %q: field %q: %s", e.Layer, e.Field, e.Details)
	case e.Layer != "":
		return fmt.Sprintf("format error: layer %q: %s", e.Layer, e.Details)
	case e.Field != "":
		return fmt.Sprintf("format error: field %q: %s", e.Field, e.Details)
	}
	return "format error: " + e.Details
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// Formatf builds a FormatError for field with a formatted detail message.
func Formatf(field, format string, args ...any) *FormatError {
	return &FormatError{Field: field, Details: fmt.Sprintf(format, args...)}
}

// InLayer attributes the first format or unsupported error in err's chain
// to layer, unless it already names one, and returns err with its wrapping
// intact.
func InLayer(layer string, err error) error {
	var fe *FormatError
	if errors.As(err, &fe) {
		if fe.Layer == "" {
			fe.Layer = layer
		}
		return err
	}
	var ue *UnsupportedError
	if errors.As(err, &ue) && ue.Layer == "" {
		ue.Layer = layer
	}
	return err
}

// UnsupportedError describes a construct outside the supported subset.
type UnsupportedError struct {
	Layer   string // Layer name, empty when not inside a layer
	Feature string // What is unsupported, e.g. "layer type" or "data_format"
	Value   string // The rejected value
}

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	if e.Layer != "" {
		return fmt.Sprintf("unsupported feature: layer %q: %s %q", e.Layer, e.Feature, e.Value)
	}
	return fmt.Sprintf("unsupported feature: %s %q", e.Feature, e.Value)
}

// Is reports whether target is ErrUnsupported.
func (e *UnsupportedError) Is(target error) bool { return target == ErrUnsupported }

// Unsupported builds an UnsupportedError.
func Unsupported(feature, value string) *UnsupportedError {
	return &UnsupportedError{Feature: feature, Value: value}
}

// VerificationFailure reports the first out-of-tolerance element of a
// verification run, or a count/shape mismatch when Details is set.
type VerificationFailure struct {
	Case     int // Fixture case index
	Output   int // Output tensor index within the case
	Z, Y, X  int // Coordinate of the mismatching element
	Expected float32
	Actual   float32
	Details  string // Non-empty for structural mismatches (counts, shapes)
}

// Error implements the error interface.
func (e *VerificationFailure) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("verification failure: case %d output %d: %s", e.Case, e.Output, e.Details)
	}
	return fmt.Sprintf("verification failure: case %d output %d at (%d,%d,%d): expected %v, got %v",
		e.Case, e.Output, e.Z, e.Y, e.X, e.Expected, e.Actual)
}

// Is reports whether target is ErrVerification.
func (e *VerificationFailure) Is(target error) bool { return target == ErrVerification }
