//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// CdevFacility drives lines through the Linux GPIO character device.
type CdevFacility struct {
	mu     sync.Mutex
	chip   *gpiocdev.Chip
	lines  []*gpiocdev.Line
	closed bool
}

// NewCdev opens the named chip (e.g. "gpiochip0").
func NewCdev(chip, consumer string) (*CdevFacility, error) {
	if chip == "" {
		chip = "gpiochip0"
	}
	if consumer == "" {
		consumer = "blinkd"
	}
	c, err := gpiocdev.NewChip(chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &CdevFacility{chip: c}, nil
}

type cdevOutput struct {
	line    *gpiocdev.Line
	channel int
}

func (o *cdevOutput) Set(high bool) error {
	if err := o.line.SetValue(lineValue(high)); err != nil {
		return fmt.Errorf("set pin %d: %w", o.channel, err)
	}
	return nil
}

func (o *cdevOutput) Channel() int { return o.channel }

type cdevInput struct {
	line    *gpiocdev.Line
	channel int
}

func (i *cdevInput) Get() (bool, error) {
	v, err := i.line.Value()
	if err != nil {
		return false, fmt.Errorf("read pin %d: %w", i.channel, err)
	}
	return v != 0, nil
}

func (i *cdevInput) Channel() int { return i.channel }

// Output requests the line as an output with the given initial level.
func (f *CdevFacility) Output(channel int, high bool) (Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, fmt.Errorf("request pin %d: facility closed", channel)
	}

	line, err := f.chip.RequestLine(channel, gpiocdev.AsOutput(lineValue(high)))
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", channel, err)
	}
	f.lines = append(f.lines, line)
	return &cdevOutput{line: line, channel: channel}, nil
}

// Input requests the line as an input with both-edge detection when
// onEdge is set. The kernel delivers events on a gpiocdev goroutine.
func (f *CdevFacility) Input(channel int, pull Pull, onEdge EdgeHandler) (Input, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, fmt.Errorf("request pin %d: facility closed", channel)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, biasOption(pull)}
	if onEdge != nil {
		opts = append(opts,
			gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
				onEdge(evt.Type == gpiocdev.LineEventRisingEdge, time.Now())
			}))
	}

	line, err := f.chip.RequestLine(channel, opts...)
	if err != nil {
		return nil, fmt.Errorf("request input pin %d: %w", channel, err)
	}
	f.lines = append(f.lines, line)
	return &cdevInput{line: line, channel: channel}, nil
}

// Close releases all lines and the chip.
// Lines are reconfigured to input with pull-down (matching Pi boot
// defaults) before closing so LEDs are not left driven.
func (f *CdevFacility) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true

	var errs []error
	for _, line := range f.lines {
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin: %w", err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin: %w", err))
		}
	}
	f.lines = nil

	if f.chip != nil {
		if err := f.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func lineValue(high bool) int {
	if high {
		return 1
	}
	return 0
}

func biasOption(p Pull) gpiocdev.LineReqOption {
	switch p {
	case PullUp:
		return gpiocdev.WithPullUp
	case PullDown:
		return gpiocdev.WithPullDown
	}
	return gpiocdev.WithBiasDisabled
}
