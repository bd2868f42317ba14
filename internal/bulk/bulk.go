// Package bulk applies one operation to many items with optional parallelism.
package bulk

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
)

// Operation configures a bulk run.
type Operation struct {
	// Jobs is the worker count; 0 means one per CPU.
	Jobs            int
	ContinueOnError bool
	// Ordered forces sequential execution in input order.
	Ordered bool
	// Log, when set, receives one line per item.
	Log io.Writer
}

// Result summarizes a bulk run.
type Result struct {
	TotalItems int
	Succeeded  int
	Failed     int
	// Skipped counts items never attempted after a failure stopped the run.
	Skipped int
	Errors  []ItemError
}

// ItemError pairs an item with the error it produced.
type ItemError struct {
	Item  string
	Error error
}

// ItemFunc is the function to execute for each item
type ItemFunc func(item string) error

// Execute runs fn over items.
func (op *Operation) Execute(items []string, fn ItemFunc) *Result {
	if len(items) == 0 {
		return &Result{}
	}

	jobs := op.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if jobs > len(items) {
		jobs = len(items)
	}

	if op.Ordered || jobs == 1 {
		return op.executeSequential(items, fn)
	}
	return op.executeParallel(items, fn, jobs)
}

func (op *Operation) executeSequential(items []string, fn ItemFunc) *Result {
	result := &Result{TotalItems: len(items)}

	for i, item := range items {
		if err := fn(item); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ItemError{Item: item, Error: err})
			op.logf("%s: error: %v\n", item, err)
			if !op.ContinueOnError {
				result.Skipped = len(items) - i - 1
				return result
			}
			continue
		}
		result.Succeeded++
		op.logf("%s: ok\n", item)
	}
	return result
}

func (op *Operation) executeParallel(items []string, fn ItemFunc, workers int) *Result {
	result := &Result{TotalItems: len(items)}

	workQueue := make(chan string, len(items))
	for _, item := range items {
		workQueue <- item
	}
	close(workQueue)

	var (
		succeeded int32
		failed    int32
		skipped   int32
		stop      atomic.Bool
		mu        sync.Mutex
		wg        sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workQueue {
				if stop.Load() {
					atomic.AddInt32(&skipped, 1)
					continue
				}

				if err := fn(item); err != nil {
					atomic.AddInt32(&failed, 1)
					mu.Lock()
					result.Errors = append(result.Errors, ItemError{Item: item, Error: err})
					op.logf("%s: error: %v\n", item, err)
					mu.Unlock()
					if !op.ContinueOnError {
						stop.Store(true)
					}
					continue
				}
				atomic.AddInt32(&succeeded, 1)
				mu.Lock()
				op.logf("%s: ok\n", item)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	result.Succeeded = int(succeeded)
	result.Failed = int(failed)
	result.Skipped = int(skipped)
	return result
}

func (op *Operation) logf(format string, args ...interface{}) {
	if op.Log != nil {
		fmt.Fprintf(op.Log, format, args...)
	}
}

// ExitCode returns the appropriate exit code for the result
func (r *Result) ExitCode() int {
	if r.Failed == 0 {
		return 0
	}
	if r.Succeeded > 0 {
		return 5 // partial success
	}
	return 1
}

// PrintSummary prints a human-readable summary of the result
func (r *Result) PrintSummary(w io.Writer) {
	switch {
	case r.Failed == 0:
		fmt.Fprintf(w, "✓ All %d operations succeeded\n", r.TotalItems)
	case r.Succeeded == 0:
		fmt.Fprintf(w, "✗ All %d attempted operations failed\n", r.Failed)
	default:
		fmt.Fprintf(w, "⚠ Partial success: %d succeeded, %d failed (out of %d)\n",
			r.Succeeded, r.Failed, r.TotalItems)
	}
	if r.Skipped > 0 {
		fmt.Fprintf(w, "  %d not attempted after the first failure\n", r.Skipped)
	}

	shown := r.Errors
	if len(shown) > 10 {
		fmt.Fprintf(w, "Showing first 10 errors (of %d):\n", len(shown))
		shown = shown[:10]
	}
	for _, e := range shown {
		fmt.Fprintf(w, "  %s: %v\n", e.Item, e.Error)
	}
}
