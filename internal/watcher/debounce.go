package watcher

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Debouncer groups rapid file changes together. Events for the same path
// collapse into the latest one.
type Debouncer struct {
	delay   time.Duration
	output  chan []ChangeEvent
	timer   *time.Timer
	pending map[string]ChangeEvent
	stopped bool
	mutex   sync.Mutex
}

// NewDebouncer returns a debouncer that flushes delay after the last event.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		output:  make(chan []ChangeEvent, 16),
		pending: make(map[string]ChangeEvent),
	}
}

// Output delivers the flushed batches, sorted by path.
func (d *Debouncer) Output() <-chan []ChangeEvent {
	return d.output
}

// Add records an event and restarts the quiet period.
func (d *Debouncer) Add(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.stopped {
		return
	}

	d.pending[event.Path] = event
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.Flush)
}

// Flush emits the pending events now. A full output channel drops the batch.
func (d *Debouncer) Flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}
	events := make([]ChangeEvent, 0, len(d.pending))
	for _, event := range d.pending {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	d.pending = make(map[string]ChangeEvent)

	select {
	case d.output <- events:
	default:
	}
}

// Run stops the debouncer when ctx is done.
func (d *Debouncer) Run(ctx context.Context) {
	<-ctx.Done()
	d.Stop()
}

// Stop cancels the pending flush.
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
