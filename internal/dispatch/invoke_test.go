package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/shed/internal/pipe"
)

type label string

// recorder builds a scalar variant "double" that records every input it runs on.
type recorder struct {
	calls []int
	fail  map[int]bool
}

func (r *recorder) variant() Variant {
	return Func1("n", "label", "n", func(_ context.Context, in int, l label) (int, error) {
		r.calls = append(r.calls, in)
		if r.fail[in] {
			return 0, fmt.Errorf("cannot double %d", in)
		}
		return in * 2, nil
	})
}

func newTestInvoker(t *testing.T, r *recorder, opts ...Option) *Invoker {
	t.Helper()
	reg := NewRegistry()
	reg.DeclareType("n", 0)
	reg.DeclareType("label", label(""))
	reg.MustRegister("math", "double", r.variant())
	reg.Seal()
	return NewInvoker(reg, opts...)
}

func values(t *testing.T, outs []pipe.Outcome) []any {
	t.Helper()
	var vs []any
	for _, o := range outs {
		vs = append(vs, o.Value)
	}
	return vs
}

func TestInvokeScalar(t *testing.T) {
	r := &recorder{}
	inv := newTestInvoker(t, r)

	out, err := inv.Invoke(context.Background(), "math", "double", pipe.Scalar("n", 21), pipe.Scalar("label", label("x")))
	require.NoError(t, err)
	assert.False(t, out.IsSequence())
	assert.Equal(t, 42, out.Item())
	assert.Equal(t, []int{21}, r.calls)
}

func TestInvokeScalarFailure(t *testing.T) {
	r := &recorder{fail: map[int]bool{3: true}}
	inv := newTestInvoker(t, r)

	_, err := inv.Invoke(context.Background(), "math", "double", pipe.Scalar("n", 3), pipe.Scalar("label", label("x")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "math:double")
	assert.Contains(t, err.Error(), "cannot double 3")
}

func TestLiftedPreservesOrder(t *testing.T) {
	r := &recorder{}
	inv := newTestInvoker(t, r)

	out, err := inv.Invoke(context.Background(), "math", "double", pipe.SequenceOf("n", 1, 2, 3), pipe.Scalar("label", label("x")))
	require.NoError(t, err)
	require.True(t, out.IsSequence())
	assert.Equal(t, pipe.SeqOf("n"), out.Type())

	if diff := cmp.Diff([]any{2, 4, 6}, values(t, out.Collect())); diff != "" {
		t.Errorf("lifted result mismatch (-want +got):\n%s", diff)
	}
}

func TestLiftedIsLazy(t *testing.T) {
	r := &recorder{}
	inv := newTestInvoker(t, r)

	out, err := inv.Invoke(context.Background(), "math", "double", pipe.SequenceOf("n", 1, 2, 3), pipe.Scalar("label", label("x")))
	require.NoError(t, err)
	assert.Empty(t, r.calls, "nothing runs before the sequence is consumed")

	for o := range out.Elements() {
		assert.Equal(t, 2, o.Value)
		break
	}
	assert.Equal(t, []int{1}, r.calls, "only the first element ran")
}

func TestLiftedRetraversalReruns(t *testing.T) {
	r := &recorder{}
	inv := newTestInvoker(t, r)

	out, err := inv.Invoke(context.Background(), "math", "double", pipe.SequenceOf("n", 1, 2), pipe.Scalar("label", label("x")))
	require.NoError(t, err)

	out.Collect()
	out.Collect()
	assert.Equal(t, []int{1, 2, 1, 2}, r.calls)
}

func TestLiftedContinueOnFailure(t *testing.T) {
	r := &recorder{fail: map[int]bool{2: true}}
	inv := newTestInvoker(t, r)

	out, err := inv.Invoke(context.Background(), "math", "double", pipe.SequenceOf("n", 1, 2, 3), pipe.Scalar("label", label("x")))
	require.NoError(t, err)

	outs := out.Collect()
	require.Len(t, outs, 3)
	assert.Equal(t, 2, outs[0].Value)
	assert.Equal(t, 6, outs[2].Value)

	var elemErr *ElementError
	require.ErrorAs(t, outs[1].Err, &elemErr)
	assert.Equal(t, 1, elemErr.Index)
	assert.Equal(t, 2, elemErr.Input)
	assert.Equal(t, []int{1, 2, 3}, r.calls)
}

func TestLiftedAbortOnFailure(t *testing.T) {
	r := &recorder{fail: map[int]bool{2: true}}
	inv := newTestInvoker(t, r, WithPolicy(PolicyAbort))

	out, err := inv.Invoke(context.Background(), "math", "double", pipe.SequenceOf("n", 1, 2, 3), pipe.Scalar("label", label("x")))
	require.NoError(t, err)

	outs := out.Collect()
	require.Len(t, outs, 2)
	assert.True(t, outs[0].OK())
	assert.False(t, outs[1].OK())
	assert.Equal(t, []int{1, 2}, r.calls, "elements after the failure never run")
}

func TestLiftedPassesUpstreamFailuresThrough(t *testing.T) {
	r := &recorder{}
	inv := newTestInvoker(t, r)
	upstream := errors.New("upstream failed")

	in := pipe.Outcomes("n", []pipe.Outcome{{Value: 1}, {Err: upstream}, {Value: 3}})
	out, err := inv.Invoke(context.Background(), "math", "double", in, pipe.Scalar("label", label("x")))
	require.NoError(t, err)

	outs := out.Collect()
	require.Len(t, outs, 3)
	assert.ErrorIs(t, outs[1].Err, upstream)
	assert.Equal(t, []int{1, 3}, r.calls)
}

func TestBindingErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []pipe.Value
		position int
	}{
		{name: "missing argument", args: nil, position: -1},
		{name: "extra argument", args: []pipe.Value{pipe.Scalar("label", label("x")), pipe.Scalar("label", label("y"))}, position: -1},
		{name: "wrong tag", args: []pipe.Value{pipe.Scalar("n", 1)}, position: 0},
		{name: "sequence argument", args: []pipe.Value{pipe.SequenceOf("label", label("x"))}, position: 0},
		{name: "wrong go type", args: []pipe.Value{pipe.Scalar("label", "plain string")}, position: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			inv := newTestInvoker(t, r)

			for _, in := range []pipe.Value{pipe.Scalar("n", 1), pipe.SequenceOf("n", 1, 2)} {
				_, err := inv.Invoke(context.Background(), "math", "double", in, tt.args...)
				var bind *ArgumentBindingError
				require.ErrorAs(t, err, &bind)
				assert.Equal(t, tt.position, bind.Position)
				assert.Equal(t, CodeArgumentBinding, bind.Code())
			}
			assert.Empty(t, r.calls, "binding failures must not execute anything")
		})
	}
}

func TestNewInvokerRequiresSealedRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.DeclareType("n", 0)
	reg.MustRegister("math", "double", (&recorder{}).variant())

	assert.Panics(t, func() { NewInvoker(reg) })
	reg.Seal()
	assert.NotPanics(t, func() { NewInvoker(reg) })
}

func TestExecuteRequiresBoundArguments(t *testing.T) {
	r := &recorder{}
	inv := newTestInvoker(t, r)

	call, err := inv.Resolve("math", "double", pipe.Scalar("n", 1))
	require.NoError(t, err)

	_, err = inv.Execute(context.Background(), call)
	var bind *ArgumentBindingError
	require.ErrorAs(t, err, &bind)
	assert.Equal(t, -1, bind.Position)
	assert.Empty(t, r.calls)

	require.NoError(t, inv.Bind(&call, []pipe.Value{pipe.Scalar("label", label("x"))}))
	out, err := inv.Execute(context.Background(), call)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Item())
}

func TestResolveUnknownCommandSuggests(t *testing.T) {
	inv := newTestInvoker(t, &recorder{})

	_, err := inv.Invoke(context.Background(), "math", "doubel", pipe.Scalar("n", 1))
	var nm *NoMatchingImplementationError
	require.ErrorAs(t, err, &nm)
	assert.Equal(t, "math", nm.Group)
	assert.Equal(t, "double", nm.Suggest)
	assert.Contains(t, nm.Error(), `did you mean "double"`)

	_, err = inv.Invoke(context.Background(), "maht", "double", pipe.Scalar("n", 1))
	require.ErrorAs(t, err, &nm)
	assert.Equal(t, "math", nm.Suggest)
}

func TestResolveWrongInputType(t *testing.T) {
	inv := newTestInvoker(t, &recorder{})

	_, err := inv.Invoke(context.Background(), "math", "double", pipe.Scalar("label", label("x")))
	var nm *NoMatchingImplementationError
	require.ErrorAs(t, err, &nm)
	assert.Equal(t, "math", nm.Group)
	assert.Equal(t, []pipe.Type{pipe.ScalarOf("n")}, nm.Accepts)
	assert.Contains(t, nm.Error(), "math:double")
}

func TestExecuteLogsElementFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := &recorder{fail: map[int]bool{1: true}}
	inv := newTestInvoker(t, r, WithLogger(logger))

	out, err := inv.Invoke(context.Background(), "math", "double", pipe.SequenceOf("n", 1), pipe.Scalar("label", label("x")))
	require.NoError(t, err)
	out.Collect()

	logs := buf.String()
	assert.Contains(t, logs, "resolved variant")
	assert.Contains(t, logs, "synthesized=true")
	assert.Contains(t, logs, "element failed")
}

func TestParseLiftPolicy(t *testing.T) {
	for in, want := range map[string]LiftPolicy{"": PolicyContinue, "continue": PolicyContinue, "abort": PolicyAbort} {
		got, err := ParseLiftPolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseLiftPolicy("retry")
	assert.Error(t, err)
}
