package dispatch

import (
	"fmt"
	"strings"

	"github.com/aidanlsb/shed/internal/pipe"
)

// Stable error codes, surfaced by the CLI in structured output.
const (
	CodeDuplicateVariant         = "DUPLICATE_VARIANT"
	CodeRegistryClosed           = "REGISTRY_CLOSED"
	CodeNoMatchingImplementation = "NO_MATCHING_IMPLEMENTATION"
	CodeAmbiguousOverload        = "AMBIGUOUS_OVERLOAD"
	CodeArgumentBinding          = "ARGUMENT_BINDING"
	CodeElementFailed            = "ELEMENT_FAILED"
)

// Coder is implemented by every error the engine returns.
type Coder interface {
	Code() string
}

// DuplicateVariantError is returned by Register when (group, label) already
// has a variant for the same input type.
type DuplicateVariantError struct {
	Group string
	Label string
	Input pipe.Type
}

func (e *DuplicateVariantError) Error() string {
	return fmt.Sprintf("%s:%s already has a variant accepting %s", e.Group, e.Label, e.Input)
}

func (e *DuplicateVariantError) Code() string { return CodeDuplicateVariant }

// RegistryClosedError is returned by Register after Seal.
type RegistryClosedError struct {
	Group string
	Label string
}

func (e *RegistryClosedError) Error() string {
	return fmt.Sprintf("cannot register %s:%s: registry is sealed", e.Group, e.Label)
}

func (e *RegistryClosedError) Code() string { return CodeRegistryClosed }

// NoMatchingImplementationError means no variant accepts the pipe value and
// none can be lifted to it.
type NoMatchingImplementationError struct {
	Group   string
	Label   string
	Input   pipe.Type
	Accepts []pipe.Type // input types the label does accept
	Suggest string      // closest known label when the label itself is unknown
}

func (e *NoMatchingImplementationError) Error() string {
	name := e.Label
	if e.Group != "" {
		name = e.Group + ":" + e.Label
	}
	if len(e.Accepts) == 0 {
		msg := fmt.Sprintf("no implementation of %s", name)
		if e.Suggest != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", e.Suggest)
		}
		return msg
	}
	accepts := make([]string, len(e.Accepts))
	for i, t := range e.Accepts {
		accepts[i] = t.String()
	}
	return fmt.Sprintf("no implementation of %s accepts %s (accepts: %s)", name, e.Input, strings.Join(accepts, ", "))
}

func (e *NoMatchingImplementationError) Code() string { return CodeNoMatchingImplementation }

// AmbiguousOverloadError means more than one variant matched at the same
// priority. The registry rejects such duplicates, so this indicates a variant
// set that bypassed registration.
type AmbiguousOverloadError struct {
	Label      string
	Input      pipe.Type
	Candidates int
}

func (e *AmbiguousOverloadError) Error() string {
	return fmt.Sprintf("%s: %d variants match %s", e.Label, e.Candidates, e.Input)
}

func (e *AmbiguousOverloadError) Code() string { return CodeAmbiguousOverload }

// ArgumentBindingError is returned when positional arguments do not fit the
// resolved variant. Nothing has executed when it is returned.
type ArgumentBindingError struct {
	Label    string
	Position int // -1 for an arity mismatch
	Want     string
	Got      string
}

func (e *ArgumentBindingError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("%s: expected %s arguments, got %s", e.Label, e.Want, e.Got)
	}
	return fmt.Sprintf("%s: argument %d: expected %s, got %s", e.Label, e.Position+1, e.Want, e.Got)
}

func (e *ArgumentBindingError) Code() string { return CodeArgumentBinding }

// ElementError records the failure of one element of a lifted sequence.
type ElementError struct {
	Index int
	Input any
	Err   error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("element %d (%v): %v", e.Index, e.Input, e.Err)
}

func (e *ElementError) Unwrap() error { return e.Err }

func (e *ElementError) Code() string { return CodeElementFailed }
