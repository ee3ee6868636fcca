package utils

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Workers resolves a requested worker count: non-positive means one per
// CPU, and limit caps the result when positive.
func Workers(requested, limit int) int {
	n := requested
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if limit > 0 && n > limit {
		n = limit
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Concurrent runs process over items on at most n goroutines and returns
// the values in item order. The first error cancels the context handed to
// the calls still running, keeps the remaining items from starting and is
// returned. Every goroutine has exited when Concurrent returns.
func Concurrent[T, R any](ctx context.Context, items []T, n int, process func(context.Context, T) (R, error)) ([]R, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(n, 1))

	out := make([]R, len(items))
	for i := range items {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := process(gctx, items[i])
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// gctx is always done after Wait; only the caller's context matters here
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Batches splits items into consecutive slices of at most size elements.
func Batches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
