package resilience

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Group collapses concurrent calls that share a key into one execution.
type Group[T any] struct {
	g singleflight.Group
}

// Do runs fn once per in-flight key. A caller whose ctx ends stops waiting
// and gets ctx.Err(); the shared call keeps running for the others. shared
// reports whether the result was handed to more than one caller.
func (g *Group[T]) Do(ctx context.Context, key string, fn func() (T, error)) (result T, shared bool, err error) {
	ch := g.g.DoChan(key, func() (any, error) {
		return fn()
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Shared, res.Err
		}
		val, _ := res.Val.(T)
		return val, res.Shared, nil
	}
}

// Forget drops key so the next Do starts a fresh call.
func (g *Group[T]) Forget(key string) {
	g.g.Forget(key)
}
