package credential

import "context"

type indexKey struct{}

// WithIndex returns a context carrying an explicit key index for calls
// made further down the stack.
func WithIndex(ctx context.Context, index *int) context.Context {
	if index == nil {
		return ctx
	}
	i := *index
	return context.WithValue(ctx, indexKey{}, &i)
}

// IndexFrom returns the explicit key index stored by WithIndex, or nil.
func IndexFrom(ctx context.Context) *int {
	if v, ok := ctx.Value(indexKey{}).(*int); ok {
		return v
	}
	return nil
}
