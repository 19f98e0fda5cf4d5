package engine

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// forEach runs fn for indexes 0..n-1 with at most concurrency calls in
// flight. The first error cancels the context passed to the remaining calls
// and is returned once every started call has finished.
//
// With concurrency 1 calls run strictly in index order.
func forEach(ctx context.Context, n, concurrency int, fn func(ctx context.Context, i int) error) error {
	if ctx == nil {
		return errors.New("context is nil")
	}
	if concurrency <= 0 {
		return fmt.Errorf("concurrency must be >= 1, got %d", concurrency)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
