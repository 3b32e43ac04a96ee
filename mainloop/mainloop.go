// Package mainloop provides the single serialized execution context the
// discovery core runs on. Every state transition, driver dispatch and
// engine completion is posted here, so the session data needs no locks:
// only the loop goroutine ever touches it. Protocol engines deliver
// their callbacks from arbitrary goroutines and re-post them via Post
// before touching shared discovery state.
package mainloop

import (
	"sync"

	"github.com/user/bluedisc/logger"
)

// Loop is a single-goroutine task executor with an unbounded queue.
// Tasks run strictly in the order they were posted. Posting from inside
// a running task is allowed and never blocks.
type Loop struct {
	name string

	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool

	done chan struct{}
}

// New creates a loop; call Start before posting work.
func New(name string) *Loop {
	return &Loop{
		name: name,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Start launches the loop goroutine.
func (l *Loop) Start() {
	go l.run()
}

// Stop shuts the loop down and waits for the loop goroutine to exit.
// Tasks still queued are dropped. Posting after Stop is a no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	<-l.done
}

// Post queues fn for execution on the loop goroutine.
func (l *Loop) Post(fn func()) {
	if !l.post(fn) {
		logger.Warn(l.name, "task posted after loop stop, dropping")
	}
}

func (l *Loop) post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Sync posts fn and waits until it has run. Calling Sync from the loop
// goroutine itself would deadlock; it is meant for outside callers
// (tests, dumpsys) that need a happens-after edge with queued work.
// Returns false without running fn if the loop is stopped.
func (l *Loop) Sync(fn func()) bool {
	ran := make(chan struct{})
	if !l.post(func() {
		fn()
		close(ran)
	}) {
		return false
	}
	<-ran
	return true
}

// Flush waits for every task queued so far to complete.
func (l *Loop) Flush() {
	l.Sync(func() {})
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			if l.stopped {
				l.mu.Unlock()
				return
			}
			l.mu.Unlock()
			<-l.wake
			continue
		}
		batch := l.queue
		l.queue = nil
		stopped := l.stopped
		l.mu.Unlock()

		if stopped {
			return
		}
		for _, fn := range batch {
			fn()
		}
	}
}
