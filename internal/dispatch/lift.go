package dispatch

import (
	"context"
	"fmt"

	"github.com/aidanlsb/shed/internal/invariant"
	"github.com/aidanlsb/shed/internal/pipe"
)

// LiftPolicy decides what a lifted sequence does after an element fails.
type LiftPolicy string

const (
	// PolicyContinue records the failed element and keeps going.
	PolicyContinue LiftPolicy = "continue"
	// PolicyAbort yields the failed element and ends the sequence.
	PolicyAbort LiftPolicy = "abort"
)

// ParseLiftPolicy parses a policy name. The empty string means PolicyContinue.
func ParseLiftPolicy(s string) (LiftPolicy, error) {
	switch LiftPolicy(s) {
	case "", PolicyContinue:
		return PolicyContinue, nil
	case PolicyAbort:
		return PolicyAbort, nil
	default:
		return "", fmt.Errorf("unknown lift policy %q (want %q or %q)", s, PolicyContinue, PolicyAbort)
	}
}

type policyKey struct{}

// WithLiftPolicy returns a context that lifted sequences consult when an element fails.
func WithLiftPolicy(ctx context.Context, p LiftPolicy) context.Context {
	return context.WithValue(ctx, policyKey{}, p)
}

// LiftPolicyFrom returns the policy stored in ctx, or PolicyContinue.
func LiftPolicyFrom(ctx context.Context) LiftPolicy {
	if p, ok := ctx.Value(policyKey{}).(LiftPolicy); ok {
		return p
	}
	return PolicyContinue
}

// Lift turns a scalar variant into one that accepts a sequence of the same
// element type. The result applies the scalar body to each element in order,
// only as the output sequence is consumed. Failed input elements are passed
// through without running the body.
func Lift(v Variant) Variant {
	invariant.Precondition(!v.Input.Seq, "%s: only scalar variants can be lifted", v.Label)
	invariant.NotNil(v.Body, "variant body")

	scalar := v.Body
	elem := v.Input.Elem
	label := v.Label

	lifted := v
	lifted.Input = pipe.SeqOf(elem)
	lifted.Params = append([]pipe.Tag(nil), v.Params...)
	lifted.Lifted = true
	lifted.Body = func(ctx context.Context, in pipe.Value, args []pipe.Value) (pipe.Value, error) {
		policy := LiftPolicyFrom(ctx)
		return pipe.Sequence(v.Returns, func(yield func(pipe.Outcome) bool) {
			i := 0
			for o := range in.Elements() {
				res := o
				if o.Err == nil {
					res = applyScalar(ctx, label, scalar, pipe.Scalar(elem, o.Value), args, i)
				}
				if !yield(res) {
					return
				}
				if res.Err != nil && policy == PolicyAbort {
					return
				}
				i++
			}
		}), nil
	}
	return lifted
}

func applyScalar(ctx context.Context, label string, body Body, in pipe.Value, args []pipe.Value, index int) pipe.Outcome {
	out, err := body(ctx, in, args)
	if err != nil {
		return pipe.Outcome{Err: &ElementError{Index: index, Input: in.Item(), Err: err}}
	}
	if out.IsSequence() {
		err := fmt.Errorf("%s: scalar variant returned %s", label, out.Type())
		return pipe.Outcome{Err: &ElementError{Index: index, Input: in.Item(), Err: err}}
	}
	return pipe.Outcome{Value: out.Item(), Note: out.Note()}
}
