package cartsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerCoalescesTriggers(t *testing.T) {
	clock := &fakeClock{}
	runs := 0
	d := NewDebouncer(time.Second, clock.AfterFunc, func() { runs++ })

	d.Trigger()
	d.Trigger()
	d.Trigger()
	assert.Equal(t, DebounceScheduled, d.State())
	assert.Equal(t, 1, clock.Pending())

	require.Equal(t, 1, clock.FireAll())
	assert.Equal(t, 1, runs)
	assert.Equal(t, DebounceIdle, d.State())
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, clock.delays)
}

func TestDebouncerTriggerDuringRunSchedulesOneFollowUp(t *testing.T) {
	clock := &fakeClock{}
	var d *Debouncer
	runs := 0
	d = NewDebouncer(time.Second, clock.AfterFunc, func() {
		runs++
		if runs == 1 {
			assert.Equal(t, DebounceInFlight, d.State())
			d.Trigger()
			d.Trigger()
		}
	})

	d.Trigger()
	clock.FireAll()
	assert.Equal(t, DebounceScheduled, d.State())
	assert.Equal(t, 1, clock.Pending())

	clock.FireAll()
	assert.Equal(t, 2, runs)
	assert.Equal(t, DebounceIdle, d.State())
}

func TestDebouncerCancel(t *testing.T) {
	clock := &fakeClock{}
	runs := 0
	d := NewDebouncer(time.Second, clock.AfterFunc, func() { runs++ })

	d.Trigger()
	d.Cancel()
	assert.Equal(t, DebounceIdle, d.State())
	assert.Equal(t, 0, clock.FireAll())
	assert.Equal(t, 0, runs)

	d.Cancel()
	assert.Equal(t, DebounceIdle, d.State())
}

func TestDebouncerCancelDuringRunDropsFollowUp(t *testing.T) {
	clock := &fakeClock{}
	var d *Debouncer
	d = NewDebouncer(time.Second, clock.AfterFunc, func() {
		d.Trigger()
		d.Cancel()
	})

	d.Trigger()
	clock.FireAll()
	assert.Equal(t, DebounceIdle, d.State())
	assert.Equal(t, 0, clock.Pending())
}

func TestDebouncerIgnoresStaleTimer(t *testing.T) {
	var fns []func()
	after := func(_ time.Duration, f func()) Timer {
		fns = append(fns, f)
		return &fakeTimer{clock: &fakeClock{}}
	}
	runs := 0
	d := NewDebouncer(time.Second, after, func() { runs++ })

	d.Trigger()
	d.Trigger()
	require.Len(t, fns, 2)
	fns[0]()
	assert.Equal(t, 0, runs)
	fns[1]()
	assert.Equal(t, 1, runs)
}

func TestDebouncerWithRealTimer(t *testing.T) {
	done := make(chan struct{})
	d := NewDebouncer(10*time.Millisecond, nil, func() { close(done) })
	d.Trigger()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("debounced run never fired")
	}
}

func TestDebounceStateString(t *testing.T) {
	assert.Equal(t, "idle", DebounceIdle.String())
	assert.Equal(t, "scheduled", DebounceScheduled.String())
	assert.Equal(t, "in_flight", DebounceInFlight.String())
}
