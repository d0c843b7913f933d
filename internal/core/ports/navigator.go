package ports

import "context"

// Navigator is the narrow primitive the redirect controller drives. In the
// HTTP layer it is a per-request adapter that issues the 302; tests substitute
// a recorder.
type Navigator interface {
	Navigate(ctx context.Context, path string) error
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(ctx context.Context, path string) error

func (f NavigatorFunc) Navigate(ctx context.Context, path string) error {
	return f(ctx, path)
}
