package extraction

import (
	"context"
	"time"

	"github.com/localsearch/engine/pkg/errs"
)

// runWithDeadline is the generic combinator the design notes call for:
// run f in its own goroutine and return Timeout if it doesn't finish by
// deadline. The goroutine is not forcibly killed — Go has no safe
// preemption primitive for arbitrary library code — so a timed-out
// extraction keeps running in the background and its eventual result lands
// in the buffered channel unread; the wrapper's caller sees a bounded
// wall-clock cost regardless.
func runWithDeadline[T any](ctx context.Context, deadline time.Duration, f func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)

	go func() {
		val, err := f(ctx)
		ch <- result{val, err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, errs.ErrTimeout
	}
}
