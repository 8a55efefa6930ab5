package gpio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// FakeFacility is an in-memory Facility for tests and dry runs.
// Writes are recorded per channel; edges are injected with Edge.
type FakeFacility struct {
	mu       sync.Mutex
	outputs  map[int]*FakeOutput
	inputs   map[int]*FakeInput
	handlers map[int]EdgeHandler

	// Closed counts calls to Close that released lines.
	Closed int

	// OutputError, if set, is returned by Output.
	OutputError error

	// Verbose logs every write at debug level instead of recording it
	// (used by -dry-run). Set it before requesting outputs.
	Verbose bool
}

// NewFake creates an empty FakeFacility.
func NewFake() *FakeFacility {
	return &FakeFacility{
		outputs:  make(map[int]*FakeOutput),
		inputs:   make(map[int]*FakeInput),
		handlers: make(map[int]EdgeHandler),
	}
}

// FakeOutput records every level written to it.
type FakeOutput struct {
	mu      sync.Mutex
	channel int
	verbose bool
	level   bool

	// Writes contains every level passed to Set, in order. The initial
	// level from Output is not included. Verbose outputs log writes
	// instead of recording them, so a dry run does not grow without bound.
	Writes []bool

	// SetError, if set, is returned by Set.
	SetError error
}

// Set records the level.
func (o *FakeOutput) Set(high bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.SetError != nil {
		return o.SetError
	}
	o.level = high
	if o.verbose {
		slog.Debug("fake gpio write", "pin", o.channel, "high", high)
		return nil
	}
	o.Writes = append(o.Writes, high)
	return nil
}

// Channel returns the line number.
func (o *FakeOutput) Channel() int { return o.channel }

// Level returns the last level written (or the initial level).
func (o *FakeOutput) Level() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.level
}

// WriteCount returns the number of Set calls recorded.
func (o *FakeOutput) WriteCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.Writes)
}

// FakeInput holds a settable level.
type FakeInput struct {
	mu      sync.Mutex
	channel int
	level   bool
	pull    Pull
}

// Get returns the current level.
func (i *FakeInput) Get() (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.level, nil
}

// Channel returns the line number.
func (i *FakeInput) Channel() int { return i.channel }

// Pull returns the bias the input was requested with.
func (i *FakeInput) Pull() Pull { return i.pull }

// Output records a new output line.
func (f *FakeFacility) Output(channel int, high bool) (Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.outputs == nil {
		return nil, fmt.Errorf("request pin %d: facility closed", channel)
	}
	if f.OutputError != nil {
		return nil, f.OutputError
	}
	if _, ok := f.outputs[channel]; ok {
		return nil, fmt.Errorf("pin %d already requested", channel)
	}
	o := &FakeOutput{channel: channel, level: high, verbose: f.Verbose}
	f.outputs[channel] = o
	return o, nil
}

// Input records a new input line. Pulled-up inputs idle HIGH.
func (f *FakeFacility) Input(channel int, pull Pull, onEdge EdgeHandler) (Input, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inputs == nil {
		return nil, fmt.Errorf("request pin %d: facility closed", channel)
	}
	if _, ok := f.inputs[channel]; ok {
		return nil, fmt.Errorf("pin %d already requested", channel)
	}
	in := &FakeInput{channel: channel, pull: pull, level: pull == PullUp}
	f.inputs[channel] = in
	if onEdge != nil {
		f.handlers[channel] = onEdge
	}
	return in, nil
}

// Edge sets the input level and calls its edge handler, as a kernel
// event would.
func (f *FakeFacility) Edge(channel int, high bool, at time.Time) error {
	f.mu.Lock()
	in, ok := f.inputs[channel]
	h := f.handlers[channel]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("pin %d not requested as input", channel)
	}

	in.mu.Lock()
	in.level = high
	in.mu.Unlock()

	if h != nil {
		h(high, at)
	}
	return nil
}

// Pin returns the output requested on channel, or nil.
func (f *FakeFacility) Pin(channel int) *FakeOutput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outputs[channel]
}

// Close releases all lines. Later calls are no-ops.
func (f *FakeFacility) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.outputs == nil {
		return nil
	}
	f.outputs = nil
	f.inputs = nil
	f.handlers = nil
	f.Closed++
	return nil
}

// ErrFakeWrite is a convenience error for tests that exercise write failures.
var ErrFakeWrite = errors.New("fake gpio write failure")
