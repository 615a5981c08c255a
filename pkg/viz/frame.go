package viz

import (
	"sort"
	"sync"
	"time"
)

// DefaultFrameInterval approximates one display frame.
const DefaultFrameInterval = 16 * time.Millisecond

// Frame defers work to the next render frame. Schedule returns a cancel
// function; cancelling after the frame fired is a no-op. Each scheduled
// function fires at most once.
type Frame interface {
	Schedule(fn func()) (cancel func())
}

// TimerFrame fires scheduled work after a fixed interval. It is the
// production frame source: close enough to a display refresh to coalesce
// notification bursts without visible lag.
type TimerFrame struct {
	// Interval between Schedule and the callback. Zero means
	// DefaultFrameInterval.
	Interval time.Duration
}

// Schedule implements Frame.
func (f *TimerFrame) Schedule(fn func()) (cancel func()) {
	d := f.Interval
	if d <= 0 {
		d = DefaultFrameInterval
	}
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// ManualFrame holds scheduled work until Fire is called. Tests and
// host-driven render loops use it to make frame boundaries explicit.
type ManualFrame struct {
	mu      sync.Mutex
	pending map[int]func()
	nextID  int
}

// Schedule implements Frame.
func (f *ManualFrame) Schedule(fn func()) (cancel func()) {
	f.mu.Lock()
	if f.pending == nil {
		f.pending = make(map[int]func())
	}
	id := f.nextID
	f.nextID++
	f.pending[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.pending, id)
		f.mu.Unlock()
	}
}

// Fire runs all pending work in schedule order and clears the queue.
func (f *ManualFrame) Fire() {
	f.mu.Lock()
	ids := make([]int, 0, len(f.pending))
	for id := range f.pending {
		ids = append(ids, id)
	}
	// Map iteration order is random; restore schedule order.
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, f.pending[id])
	}
	f.pending = nil
	f.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Pending reports how many scheduled callbacks have not fired.
func (f *ManualFrame) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

var (
	_ Frame = (*TimerFrame)(nil)
	_ Frame = (*ManualFrame)(nil)
)
