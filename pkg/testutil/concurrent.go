package testutil

import (
	"errors"
	"sync"

	dErrors "lostfound/pkg/domain-errors"
	"lostfound/pkg/platform/sentinel"
)

// ConcurrentResult tallies outcomes of a concurrent run.
type ConcurrentResult struct {
	Successes int32
	Errors    int32
	Conflicts int32
	NotFounds int32
	// Codes counts failures by domain code; foreign errors land on internal_error.
	Codes map[dErrors.Code]int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.Conflicts + r.NotFounds
}

// Soft counts failures the UI shows as a notice rather than an error.
func (r *ConcurrentResult) Soft() int32 {
	var n int32
	for code, c := range r.Codes {
		if dErrors.IsSoftCode(code) {
			n += c
		}
	}
	return n
}

// RunConcurrent releases all goroutines at once and buckets their outcomes.
// Soft workflow errors (in progress, already transitioned, duplicate) count as conflicts.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		res = &ConcurrentResult{Codes: make(map[dErrors.Code]int32)}
	)

	start := make(chan struct{})
	for i := range goroutines {
		wg.Go(func() {
			<-start
			err := fn(i)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				res.Successes++
				return
			}
			res.Codes[dErrors.CodeOf(err)]++
			switch {
			case isConflict(err):
				res.Conflicts++
			case errors.Is(err, sentinel.ErrNotFound), dErrors.HasCode(err, dErrors.CodeNotFound):
				res.NotFounds++
			default:
				res.Errors++
			}
		})
	}
	close(start)
	wg.Wait()
	return res
}

func isConflict(err error) bool {
	if errors.Is(err, sentinel.ErrConflict) {
		return true
	}
	code := dErrors.CodeOf(err)
	return code == dErrors.CodeConflict || dErrors.IsSoftCode(code)
}
