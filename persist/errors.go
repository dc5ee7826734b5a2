package persist

import "sync"

// errorHistory is a bounded, thread-safe record of recent write failures.
type errorHistory struct {
	mu     sync.RWMutex
	errors []error
	size   int
	head   int
	count  int
}

// newErrorHistory creates a history holding up to size errors.
// A size of 0 or less keeps only the most recent error.
func newErrorHistory(size int) *errorHistory {
	if size <= 0 {
		size = 1
	}
	return &errorHistory{errors: make([]error, size), size: size}
}

func (r *errorHistory) push(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[r.head] = err
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// last returns the most recent error, or nil.
func (r *errorHistory) last() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.count == 0 {
		return nil
	}
	return r.errors[(r.head-1+r.size)%r.size]
}

// all returns the recorded errors, oldest first.
func (r *errorHistory) all() []error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.count == 0 {
		return nil
	}
	out := make([]error, r.count)
	start := (r.head - r.count + r.size) % r.size
	for i := range out {
		out[i] = r.errors[(start+i)%r.size]
	}
	return out
}
