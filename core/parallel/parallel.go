// Package parallel provides small fork-join helpers for parallelizing
// row-range work across goroutines, shared by every estimator that chunks
// a dataset by sample index.
package parallel

import (
	"runtime"
	"sync"
)

// ParallelizeWithThreshold splits [0, n) into contiguous ranges and runs fn
// on each range concurrently, one goroutine per range. For n below
// threshold it runs fn(0, n) synchronously, avoiding goroutine overhead for
// small inputs.
func ParallelizeWithThreshold(n, threshold int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if n < threshold {
		fn(0, n)
		return
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}
	wg.Wait()
}

// Parallelize is ParallelizeWithThreshold with a threshold of 0, i.e.
// always fan out across goroutines.
func Parallelize(n int, fn func(start, end int)) {
	ParallelizeWithThreshold(n, 0, fn)
}
