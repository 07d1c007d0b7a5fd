package uow

import "context"

// Runner executes fn as one atomic unit of work. Repository calls made with
// the context handed to fn join the unit; any error rolls all of them back.
type Runner interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, fn func(ctx context.Context) error) error

func (f RunnerFunc) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}
