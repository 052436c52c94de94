package async

import "context"

// Yielder sends a value to the generator's consumer. It returns false once
// the context is cancelled; the generator should return then.
type Yielder[T any] func(T) bool

// Generator runs gen in a goroutine and streams what it yields. A non-nil
// error returned by gen is delivered as the last result before the channel
// closes.
func Generator[T any](ctx context.Context, gen func(context.Context, Yielder[T]) error) <-chan Result[T] {
	ch := make(chan Result[T], 1)

	y := func(t T) bool {
		select {
		case ch <- NewResult(t):
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(ch)

		err := gen(ctx, y)
		if err != nil {
			select {
			case ch <- Err[T](err):
			case <-ctx.Done():
			}
		}
	}()

	return ch
}
