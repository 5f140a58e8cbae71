// Package watch re-runs forecasts when booking data changes or a schedule fires.
package watch

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid events into one callback carrying the last event.
type Debouncer struct {
	window   time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	pending  Event
	callback func(Event)
}

func NewDebouncer(window time.Duration, callback func(Event)) *Debouncer {
	return &Debouncer{
		window:   window,
		callback: callback,
	}
}

// Trigger records ev and restarts the window. The callback fires once the
// window elapses with no further triggers.
func (d *Debouncer) Trigger(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = ev
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	ev := d.pending
	d.mu.Unlock()
	d.callback(ev)
}

// Stop cancels any pending callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
}
