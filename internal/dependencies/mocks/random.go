package mocks

import (
	"fmt"
	"sync"
)

// MockRandom is a deterministic Random for tests. Queued tokens are
// handed out first, then "tok-<n>".
type MockRandom struct {
	mu      sync.Mutex
	queued  []string
	counter int
}

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Token returns the next queued token, or "tok-<n>" once the queue is empty
func (r *MockRandom) Token(int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queued) > 0 {
		tok := r.queued[0]
		r.queued = r.queued[1:]
		return tok
	}
	r.counter++
	return fmt.Sprintf("tok-%d", r.counter)
}

// QueueToken adds values to the Token result queue
func (r *MockRandom) QueueToken(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued = append(r.queued, values...)
}

// Reset clears queued tokens and restarts the counter
func (r *MockRandom) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued, r.counter = nil, 0
}
