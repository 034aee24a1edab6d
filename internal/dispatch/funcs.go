package dispatch

import (
	"context"
	"fmt"

	"github.com/aidanlsb/shed/internal/pipe"
)

// Func1 builds a scalar variant from a typed function taking the pipe input
// and one argument.
func Func1[In, A, R any](input, param, returns pipe.Tag, fn func(ctx context.Context, in In, a A) (R, error)) Variant {
	return Variant{
		Input:   pipe.ScalarOf(input),
		Params:  []pipe.Tag{param},
		Returns: returns,
		Body: func(ctx context.Context, in pipe.Value, args []pipe.Value) (pipe.Value, error) {
			x, err := payload[In](in, "pipe input")
			if err != nil {
				return pipe.Value{}, err
			}
			a, err := payload[A](args[0], "argument 1")
			if err != nil {
				return pipe.Value{}, err
			}
			r, err := fn(ctx, x, a)
			if err != nil {
				return pipe.Value{}, err
			}
			return pipe.Scalar(returns, r), nil
		},
	}
}

func payload[T any](v pipe.Value, what string) (T, error) {
	x, ok := pipe.As[T](v)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: expected %T, got %T", what, zero, v.Item())
	}
	return x, nil
}
