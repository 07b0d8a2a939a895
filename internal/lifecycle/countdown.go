package lifecycle

import (
	"sync"
	"time"
)

// Countdown ticks a remaining-seconds value down to zero, once per second.
// Reaching zero only drives expiry UI; it never changes room status, which
// stays server-authoritative. The channel is closed when the countdown
// reaches zero or is stopped.
type Countdown struct {
	C chan int

	stopOnce sync.Once
	stop     chan struct{}
}

// NewCountdown starts a countdown from the given number of seconds.
func NewCountdown(seconds int) *Countdown {
	return newCountdown(seconds, time.Second)
}

func newCountdown(seconds int, interval time.Duration) *Countdown {
	c := &Countdown{
		C:    make(chan int, 1),
		stop: make(chan struct{}),
	}

	go func() {
		defer close(c.C)

		remaining := seconds
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for remaining > 0 {
			select {
			case <-ticker.C:
				remaining--
				select {
				case c.C <- remaining:
				case <-c.stop:
					return
				}
			case <-c.stop:
				return
			}
		}
	}()
	return c
}

// Stop halts the countdown. Idempotent; must be called on teardown so the
// ticker does not leak past the owning screen's lifetime.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}
