package fn

import (
	"context"
	"sync"
)

// ParMapResult runs stage over items with at most workers in flight,
// returning Results in input order. Items not started before ctx is done
// get ctx.Err().
func ParMapResult[T, U any](ctx context.Context, items []T, workers int, stage Stage[T, U]) []Result[U] {
	out := make([]Result[U], len(items))
	if len(items) == 0 {
		return out
	}
	if workers <= 0 || workers > len(items) {
		workers = len(items)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i, v := range items {
		select {
		case <-ctx.Done():
			out[i] = Err[U](ctx.Err())
			continue
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int, v T) {
			defer func() { <-sem; wg.Done() }()
			out[i] = stage(ctx, v)
		}(i, v)
	}
	wg.Wait()
	return out
}
