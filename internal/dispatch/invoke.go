package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"

	"github.com/aidanlsb/shed/internal/invariant"
	"github.com/aidanlsb/shed/internal/logging"
	"github.com/aidanlsb/shed/internal/pipe"
	"github.com/aidanlsb/shed/internal/suggest"
)

// Invoker resolves, binds and executes subcommands against a registry.
// Invocations run synchronously on the caller's goroutine.
type Invoker struct {
	reg    *Registry
	policy LiftPolicy
	log    *slog.Logger
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithPolicy sets the failure policy for lifted sequences.
func WithPolicy(p LiftPolicy) Option {
	return func(inv *Invoker) { inv.policy = p }
}

// WithLogger sets the logger used for resolution and element failures.
func WithLogger(l *slog.Logger) Option {
	return func(inv *Invoker) {
		if l != nil {
			inv.log = l
		}
	}
}

// NewInvoker creates an invoker over reg. reg must already be sealed.
func NewInvoker(reg *Registry, opts ...Option) *Invoker {
	invariant.Precondition(reg != nil && reg.Sealed(), "registry must be sealed before invoking")
	inv := &Invoker{
		reg:    reg,
		policy: PolicyContinue,
		log:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Policy returns the invoker's lift failure policy.
func (inv *Invoker) Policy() LiftPolicy { return inv.policy }

// Resolve picks the variant of group:label that handles in.
func (inv *Invoker) Resolve(group, label string, in pipe.Value) (ResolvedCall, error) {
	variants := inv.reg.Lookup(group, label)
	if len(variants) == 0 {
		err := &NoMatchingImplementationError{Group: group, Label: label, Input: in.Type()}
		if g, ok := inv.reg.Group(group); ok {
			err.Suggest = suggest.Closest(label, g.Labels())
		} else {
			err.Suggest = suggest.Closest(group, inv.reg.GroupNames())
		}
		return ResolvedCall{}, err
	}

	call, err := Resolve(label, in, variants)
	if err != nil {
		var nm *NoMatchingImplementationError
		if errors.As(err, &nm) {
			nm.Group = group
		}
		return ResolvedCall{}, err
	}
	call.Group = group

	inv.log.Debug("resolved variant",
		"command", group+":"+label,
		"input", in.Type().String(),
		"variant", call.Variant.Input.String(),
		"lifted", call.Variant.Lifted,
		"synthesized", call.Synthesized,
	)
	return call, nil
}

// Bind checks args against the variant's parameters and stores them on call.
func (inv *Invoker) Bind(call *ResolvedCall, args []pipe.Value) error {
	params := call.Variant.Params
	name := call.Group + ":" + call.Label
	if len(args) != len(params) {
		return &ArgumentBindingError{
			Label:    name,
			Position: -1,
			Want:     strconv.Itoa(len(params)),
			Got:      strconv.Itoa(len(args)),
		}
	}

	for i, p := range params {
		arg := args[i]
		if arg.IsSequence() || arg.Tag() != p {
			return &ArgumentBindingError{Label: name, Position: i, Want: string(p), Got: arg.Type().String()}
		}
		if want, ok := inv.reg.goType(p); ok {
			if got := reflect.TypeOf(arg.Item()); got != want {
				return &ArgumentBindingError{Label: name, Position: i, Want: want.String(), Got: fmt.Sprint(got)}
			}
		}
	}

	call.Args = append([]pipe.Value(nil), args...)
	return nil
}

// Execute runs a call prepared by Bind; an unbound call is rejected. A scalar
// variant runs immediately; a sequence variant returns a lazy sequence whose
// elements run as they are consumed.
func (inv *Invoker) Execute(ctx context.Context, call ResolvedCall) (pipe.Value, error) {
	name := call.Group + ":" + call.Label
	if len(call.Args) != len(call.Variant.Params) {
		return pipe.Value{}, &ArgumentBindingError{
			Label:    name,
			Position: -1,
			Want:     strconv.Itoa(len(call.Variant.Params)),
			Got:      strconv.Itoa(len(call.Args)),
		}
	}
	ctx = WithLiftPolicy(ctx, inv.policy)

	out, err := call.Variant.Body(ctx, call.Input, call.Args)
	if err != nil {
		return pipe.Value{}, fmt.Errorf("%s: %w", name, err)
	}
	if !out.IsSequence() {
		return out, nil
	}

	inner := out.Elements()
	log := inv.log
	return pipe.Sequence(out.Tag(), func(yield func(pipe.Outcome) bool) {
		for o := range inner {
			if o.Err != nil {
				log.Warn("element failed", "command", name, "error", o.Err)
			}
			if !yield(o) {
				return
			}
		}
	}), nil
}

// Invoke resolves, binds and executes group:label with in as the pipe value.
// Resolution and binding failures are returned before anything executes.
func (inv *Invoker) Invoke(ctx context.Context, group, label string, in pipe.Value, args ...pipe.Value) (pipe.Value, error) {
	call, err := inv.Resolve(group, label, in)
	if err != nil {
		return pipe.Value{}, err
	}
	if err := inv.Bind(&call, args); err != nil {
		return pipe.Value{}, err
	}
	return inv.Execute(ctx, call)
}
