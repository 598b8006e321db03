package dynamics

import (
	"slices"
	"sync"
)

// task splits data in contiguous chunks, one per worker. A single worker runs
// on the calling goroutine.
func task[T any](workersCount int, data []T, fn func(data T)) {
	if workersCount <= 1 || len(data) <= 1 {
		for _, d := range data {
			fn(d)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := (len(data) + workersCount - 1) / workersCount

	for chunk := range slices.Chunk(data, chunkSize) {
		wg.Add(1)
		go func(chunk []T) {
			defer wg.Done()
			for _, d := range chunk {
				fn(d)
			}
		}(chunk)
	}
	wg.Wait()
}
