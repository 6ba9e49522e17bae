package chat

import (
	"sync"
	"sync/atomic"
)

// CancelToken is checked by a generation at every suspension point.
// Cancelling is idempotent and safe from any goroutine.
type CancelToken struct {
	cancelled atomic.Bool
	once      sync.Once
	done      chan struct{}
}

// NewCancelToken creates a live token
func NewCancelToken() *CancelToken {
	return &CancelToken{done: make(chan struct{})}
}

// Cancel marks the token cancelled
func (t *CancelToken) Cancel() {
	t.once.Do(func() {
		t.cancelled.Store(true)
		close(t.done)
	})
}

// Cancelled reports whether Cancel was called
func (t *CancelToken) Cancelled() bool {
	return t.cancelled.Load()
}

// Done is closed once the token is cancelled
func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}
