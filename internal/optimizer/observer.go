package optimizer

import (
	"context"

	"goelicit/domain/design"
)

// RoundObserver is called after every greedy round with the pair just added
// and the number of rounds requested. It runs on the selecting goroutine.
type RoundObserver func(sel design.Selected, total int)

type observerKey struct{}

// WithRoundObserver returns a context that reports selection rounds to fn
func WithRoundObserver(ctx context.Context, fn RoundObserver) context.Context {
	return context.WithValue(ctx, observerKey{}, fn)
}

func roundObserver(ctx context.Context) RoundObserver {
	fn, _ := ctx.Value(observerKey{}).(RoundObserver)
	return fn
}
