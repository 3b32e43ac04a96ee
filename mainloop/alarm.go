package mainloop

import (
	"sync"
	"time"
)

// Alarm is a one-shot timer whose callback runs on the loop goroutine.
// Set replaces any pending shot; Cancel is safe from any goroutine and
// guarantees the callback will not run afterwards, even if the timer
// already fired and the callback is sitting in the loop queue.
type Alarm struct {
	loop *Loop
	name string

	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
}

// NewAlarm creates an alarm that fires on the given loop.
func NewAlarm(loop *Loop, name string) *Alarm {
	return &Alarm{loop: loop, name: name}
}

// Set schedules fn to run on the loop after d, replacing any pending
// shot. A zero or negative d fires on the next loop iteration.
func (a *Alarm) Set(d time.Duration, fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
	}
	a.gen++
	gen := a.gen
	a.timer = time.AfterFunc(d, func() {
		a.loop.Post(func() {
			a.mu.Lock()
			live := a.gen == gen
			if live {
				a.timer = nil
			}
			a.mu.Unlock()
			if live {
				fn()
			}
		})
	})
}

// Cancel stops a pending shot. No-op if nothing is scheduled.
func (a *Alarm) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
}

// IsScheduled reports whether a shot is pending.
func (a *Alarm) IsScheduled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}
