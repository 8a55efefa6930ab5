// Package button turns raw input edges into press and release callbacks.
//
// Edges arrive on the GPIO backend's goroutine and are only queued there.
// The poll loop calls Drain, which dispatches the callbacks on the loop's
// goroutine, so callbacks may touch loop-owned state without locks.
package button

import (
	"fmt"
	"log/slog"
	"time"
)

// DefaultQueueSize bounds the number of undelivered edges.
const DefaultQueueSize = 64

// Callback is invoked with the button and the edge time.
type Callback func(b *Button, at time.Time) error

// Edge is a queued line transition.
type Edge struct {
	High bool
	At   time.Time
}

// Stats counts edges and callback failures since start.
type Stats struct {
	Presses        int
	Releases       int
	Dropped        int
	CallbackErrors int
}

// Button dispatches edges of one input line. The line is active-low:
// HIGH means released.
type Button struct {
	channel   int
	pressed   bool
	onPress   []Callback
	onRelease []Callback
	edges     chan Edge
	stats     Stats
	dropped   chan struct{}
	logger    *slog.Logger
}

// New creates a Button for channel with a queue of queueSize edges
// (DefaultQueueSize if <= 0). A nil logger uses slog.Default.
func New(channel, queueSize int, logger *slog.Logger) *Button {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Button{
		channel: channel,
		edges:   make(chan Edge, queueSize),
		dropped: make(chan struct{}, queueSize),
		logger:  logger.With("button", channel),
	}
}

// OnPress registers a press callback. Callbacks run in registration order.
func (b *Button) OnPress(cb Callback) {
	b.onPress = append(b.onPress, cb)
}

// OnRelease registers a release callback. Callbacks run in registration order.
func (b *Button) OnRelease(cb Callback) {
	b.onRelease = append(b.onRelease, cb)
}

// OnEdge queues an edge. It never blocks; when the queue is full the
// edge is dropped and counted on the next Drain. Safe to call from any
// goroutine. Its signature matches gpio.EdgeHandler.
func (b *Button) OnEdge(high bool, at time.Time) {
	select {
	case b.edges <- Edge{High: high, At: at}:
	default:
		select {
		case b.dropped <- struct{}{}:
		default:
		}
	}
}

// Drain dispatches every queued edge in arrival order and returns them.
// Call it from the poll loop only.
func (b *Button) Drain() []Edge {
	b.countDropped()

	var drained []Edge
	for {
		select {
		case e := <-b.edges:
			drained = append(drained, e)
			if e.High {
				b.Release(e.At)
			} else {
				b.Press(e.At)
			}
		default:
			return drained
		}
	}
}

func (b *Button) countDropped() {
	for {
		select {
		case <-b.dropped:
			b.stats.Dropped++
			b.logger.Warn("edge queue full, edge dropped")
		default:
			return
		}
	}
}

// Press marks the button pressed and runs the press callbacks.
func (b *Button) Press(at time.Time) {
	b.pressed = true
	b.stats.Presses++
	b.dispatch("press", b.onPress, at)
}

// Release marks the button released and runs the release callbacks.
func (b *Button) Release(at time.Time) {
	b.pressed = false
	b.stats.Releases++
	b.dispatch("release", b.onRelease, at)
}

func (b *Button) dispatch(kind string, cbs []Callback, at time.Time) {
	for i, cb := range cbs {
		if err := b.call(cb, at); err != nil {
			b.stats.CallbackErrors++
			b.logger.Error("button callback failed", "edge", kind, "index", i, "err", err)
		}
	}
}

// call runs one callback, turning a panic into an error so later
// subscribers still run.
func (b *Button) call(cb Callback, at time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return cb(b, at)
}

// Pressed reports whether the last dispatched edge was a press.
func (b *Button) Pressed() bool {
	return b.pressed
}

// Channel returns the BCM line number.
func (b *Button) Channel() int {
	return b.channel
}

// Stats returns the counters.
func (b *Button) Stats() Stats {
	return b.stats
}
