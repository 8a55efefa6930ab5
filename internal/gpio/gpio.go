// Package gpio provides GPIO line access with hardware abstraction.
// The cdev implementation uses the Linux GPIO character device, the rpio
// implementation maps /dev/gpiomem, and the fake implementation allows
// testing without hardware.
//
// Levels at this boundary are line levels (true = HIGH). Any active-low
// translation is the caller's job.
package gpio

import (
	"fmt"
	"strings"
	"time"
)

// Output is a line configured as an output.
type Output interface {
	// Set drives the line HIGH (true) or LOW (false).
	Set(high bool) error

	// Channel returns the BCM line number.
	Channel() int
}

// Input is a line configured as an input.
type Input interface {
	// Get returns the current line level.
	Get() (bool, error)

	// Channel returns the BCM line number.
	Channel() int
}

// EdgeHandler receives the line level observed after an edge and the
// time it was seen. Handlers run on a backend goroutine and must not block.
type EdgeHandler func(high bool, at time.Time)

// Pull selects the input bias.
type Pull int

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// ParsePull converts a config string ("up", "down", "none") to a Pull.
func ParsePull(s string) (Pull, error) {
	switch strings.ToLower(s) {
	case "", "none", "off":
		return PullNone, nil
	case "up":
		return PullUp, nil
	case "down":
		return PullDown, nil
	}
	return PullNone, fmt.Errorf("unknown pull %q", s)
}

func (p Pull) String() string {
	switch p {
	case PullUp:
		return "up"
	case PullDown:
		return "down"
	}
	return "none"
}

// Facility hands out configured lines and releases all of them on Close.
type Facility interface {
	// Output requests the line as an output driven to the given level.
	Output(channel int, high bool) (Output, error)

	// Input requests the line as an input. If onEdge is non-nil it is
	// called for both rising and falling edges.
	Input(channel int, pull Pull, onEdge EdgeHandler) (Input, error)

	// Close releases every line handed out. Safe to call more than once.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendCdev = "cdev"
	BackendRpio = "rpio"
	BackendFake = "fake"
)

// Options selects and parameterizes a backend.
type Options struct {
	Backend  string
	Chip     string // cdev only, e.g. "gpiochip0"
	Consumer string // cdev only, label shown by gpioinfo
	// EdgePoll is the edge detection poll interval (rpio only).
	EdgePoll time.Duration
}

// Open creates the facility named by opts.Backend.
func Open(opts Options) (Facility, error) {
	switch strings.ToLower(opts.Backend) {
	case BackendCdev, "":
		f, err := NewCdev(opts.Chip, opts.Consumer)
		if err != nil {
			return nil, err
		}
		return f, nil
	case BackendRpio:
		f, err := NewRpio(opts.EdgePoll)
		if err != nil {
			return nil, err
		}
		return f, nil
	case BackendFake:
		return NewFake(), nil
	}
	return nil, fmt.Errorf("unknown gpio backend %q", opts.Backend)
}
