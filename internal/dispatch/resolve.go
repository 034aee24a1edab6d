package dispatch

import (
	"github.com/aidanlsb/shed/internal/pipe"
)

// ResolvedCall binds one variant to one invocation.
type ResolvedCall struct {
	Group   string
	Label   string
	Variant Variant
	Input   pipe.Value
	Args    []pipe.Value

	// Synthesized is true when the variant was lifted by the resolver
	// rather than registered.
	Synthesized bool
}

// Resolve selects the variant that handles in.
//
// An exact match on the input type wins: a scalar variant for a scalar value,
// an explicit sequence variant for a sequence. Otherwise a sequence value is
// handled by lifting the scalar variant for its element type. Lifting applies
// once; a sequence of sequences does not match a scalar variant of the inner type.
func Resolve(label string, in pipe.Value, variants []Variant) (ResolvedCall, error) {
	want := in.Type()
	if in.IsZero() {
		return ResolvedCall{}, noMatch(label, want, variants)
	}

	exact := matching(variants, want)
	switch len(exact) {
	case 0:
	case 1:
		return ResolvedCall{Label: label, Variant: exact[0], Input: in}, nil
	default:
		return ResolvedCall{}, &AmbiguousOverloadError{Label: label, Input: want, Candidates: len(exact)}
	}

	if in.IsSequence() {
		scalars := matching(variants, pipe.ScalarOf(want.Elem))
		switch len(scalars) {
		case 0:
		case 1:
			return ResolvedCall{Label: label, Variant: Lift(scalars[0]), Input: in, Synthesized: true}, nil
		default:
			return ResolvedCall{}, &AmbiguousOverloadError{Label: label, Input: want, Candidates: len(scalars)}
		}
	}

	return ResolvedCall{}, noMatch(label, want, variants)
}

func matching(variants []Variant, t pipe.Type) []Variant {
	var out []Variant
	for _, v := range variants {
		if v.Input == t {
			out = append(out, v)
		}
	}
	return out
}

func noMatch(label string, want pipe.Type, variants []Variant) *NoMatchingImplementationError {
	err := &NoMatchingImplementationError{Label: label, Input: want}
	for _, v := range variants {
		err.Accepts = append(err.Accepts, v.Input)
	}
	return err
}
