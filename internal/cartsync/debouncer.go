package cartsync

import (
	"sync"
	"time"
)

// DebounceState is the debouncer lifecycle.
type DebounceState int

const (
	DebounceIdle DebounceState = iota
	DebounceScheduled
	DebounceInFlight
)

func (s DebounceState) String() string {
	switch s {
	case DebounceScheduled:
		return "scheduled"
	case DebounceInFlight:
		return "in_flight"
	default:
		return "idle"
	}
}

// Timer is the part of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it once adapted.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs fn once per burst of triggers, delay after the last one.
// Only one run is in flight at a time; a trigger that arrives mid-run
// schedules exactly one follow-up run. Runs are never interrupted.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	after   AfterFunc
	run     func()
	state   DebounceState
	timer   Timer
	gen     uint64
	pending bool
}

// NewDebouncer builds a debouncer. A nil after uses real timers.
func NewDebouncer(delay time.Duration, after AfterFunc, run func()) *Debouncer {
	if after == nil {
		after = realAfterFunc
	}
	return &Debouncer{delay: delay, after: after, run: run}
}

// Trigger (re)starts the window.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case DebounceInFlight:
		d.pending = true
	case DebounceScheduled:
		d.timer.Stop()
		d.scheduleLocked()
	default:
		d.scheduleLocked()
	}
}

// Cancel drops a scheduled run. An in-flight run completes but does not
// schedule a follow-up.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case DebounceScheduled:
		d.timer.Stop()
		d.gen++
		d.timer = nil
		d.state = DebounceIdle
	case DebounceInFlight:
		d.pending = false
	}
}

// State reports the current lifecycle state.
func (d *Debouncer) State() DebounceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Debouncer) scheduleLocked() {
	d.gen++
	gen := d.gen
	d.state = DebounceScheduled
	d.timer = d.after(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.state != DebounceScheduled || d.gen != gen {
		d.mu.Unlock()
		return
	}
	d.state = DebounceInFlight
	d.timer = nil
	d.mu.Unlock()

	d.run()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending {
		d.pending = false
		d.scheduleLocked()
		return
	}
	d.state = DebounceIdle
}
