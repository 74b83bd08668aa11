// Package task implements the single-shot completion primitive and the
// in-flight message record shared between a caller, the transmitter, and
// (for TX_RX) the receiver.
package task

import "sync"

// CompletionLatch is a single-shot wait/notify primitive. It starts
// not-complete; a single Notify transitions it to complete and wakes any
// goroutine blocked in Wait. Notify is safe to call more than once (the
// second call is a no-op), though normal operation calls it exactly once.
type CompletionLatch struct {
	mu       sync.Mutex
	cond     *sync.Cond
	complete bool
}

// NewCompletionLatch returns a latch ready for use.
func NewCompletionLatch() *CompletionLatch {
	l := &CompletionLatch{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Wait blocks until Notify has been called. The mutex's lock/unlock pairing
// around the condition variable provides the release/acquire ordering that
// guarantees any state written before Notify (e.g. a message's in-payload)
// is visible after Wait returns.
func (l *CompletionLatch) Wait() {
	l.mu.Lock()
	for !l.complete {
		l.cond.Wait()
	}
	l.mu.Unlock()
}

// Notify marks the latch complete and wakes every waiter.
func (l *CompletionLatch) Notify() {
	l.mu.Lock()
	if l.complete {
		l.mu.Unlock()
		return
	}
	l.complete = true
	l.mu.Unlock()
	l.cond.Broadcast()
}
