package preview

import "time"

// debouncer coalesces bursts of triggers into one firing after a quiet
// period. It is not safe for concurrent use; the loop goroutine owns it.
type debouncer struct {
	delay   time.Duration
	timer   *time.Timer
	c       <-chan time.Time // nil while idle
	pending int              // triggers since the last firing
}

func newDebouncer(delay time.Duration) *debouncer {
	t := time.NewTimer(time.Hour)
	stopTimer(t)
	return &debouncer{delay: delay, timer: t}
}

// Trigger restarts the quiet period.
func (d *debouncer) Trigger() {
	stopTimer(d.timer)
	d.timer.Reset(d.delay)
	d.c = d.timer.C
	d.pending++
}

// C returns the channel that fires when the quiet period ends. It is nil
// when nothing is pending, so a select on it blocks forever.
func (d *debouncer) C() <-chan time.Time {
	return d.c
}

// Fired marks the pending firing as consumed and returns the number of
// triggers it coalesced.
func (d *debouncer) Fired() int {
	n := d.pending
	d.pending = 0
	d.c = nil
	return n
}

// Stop cancels any pending firing.
func (d *debouncer) Stop() {
	stopTimer(d.timer)
	d.c = nil
	d.pending = 0
}

// stopTimer stops t and drains its channel.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
