package sync

import "context"

// defaultPoolWidth bounds concurrent remote calls per phase.
const defaultPoolWidth = 4

// RunBatch runs tasks over a fixed pool of width workers and returns one
// error slot per task, positionally aligned with tasks. It always waits for
// every task to settle; a failed task never stops its siblings.
func RunBatch(ctx context.Context, width int, tasks []func(context.Context) error) []error {
	if width < 1 {
		width = 1
	}
	if width > len(tasks) {
		width = len(tasks)
	}

	errs := make([]error, len(tasks))
	if len(tasks) == 0 {
		return errs
	}

	type job struct {
		idx int
		fn  func(context.Context) error
	}

	jobs := make(chan job)
	done := make(chan struct{})

	for w := 0; w < width; w++ {
		go func() {
			for j := range jobs {
				errs[j.idx] = j.fn(ctx)
				done <- struct{}{}
			}
		}()
	}

	go func() {
		for i, fn := range tasks {
			jobs <- job{idx: i, fn: fn}
		}
		close(jobs)
	}()

	for range tasks {
		<-done
	}
	return errs
}
