package cartsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/rentalkit-backend/internal/cart"
)

type fakeTimer struct {
	clock   *fakeClock
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

// fakeClock hands out timers that only fire when the test says so.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
	delays []time.Duration
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, fn: f}
	c.timers = append(c.timers, t)
	c.delays = append(c.delays, d)
	return t
}

// FireAll runs every pending timer and reports how many fired.
func (c *fakeClock) FireAll() int {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
	return len(due)
}

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakeRemote struct {
	mu       sync.Mutex
	server   cart.Snapshot
	fetches  int
	pushes   []cart.Snapshot
	fetchErr error
	pushErr  error
	onPush   func()
	onFetch  func()
}

func (r *fakeRemote) Fetch(context.Context) (cart.Snapshot, error) {
	if r.onFetch != nil {
		r.onFetch()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches++
	if r.fetchErr != nil {
		return cart.Snapshot{}, r.fetchErr
	}
	return r.server, nil
}

func (r *fakeRemote) Push(_ context.Context, snap cart.Snapshot) error {
	if r.onPush != nil {
		r.onPush()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, snap)
	if r.pushErr != nil {
		return r.pushErr
	}
	r.server = snap
	return nil
}

func (r *fakeRemote) pushCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pushes)
}

func (r *fakeRemote) lastPush() cart.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pushes[len(r.pushes)-1]
}

var errUnavailable = errors.New("connection refused")
