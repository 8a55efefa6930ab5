// Package blink contains the timed LED state machines: a fixed-interval
// Blinker, a RandomizedBlinker and a WindowJob that only blinks inside
// recurring or button-triggered windows.
//
// Nothing in this package reads the wall clock or sleeps. Every operation
// takes the current time as a parameter and is driven by the caller's
// poll loop.
package blink

import (
	"fmt"
	"time"

	"github.com/sweeney/blinkd/internal/gpio"
)

// Outputs hands out output lines. Satisfied by gpio.Facility.
type Outputs interface {
	Output(channel int, high bool) (gpio.Output, error)
}

// Physical converts a logical LED level to the line level.
// The LEDs are wired active-low: LOW lights them, HIGH turns them off.
func Physical(on bool) bool {
	return !on
}

// Blinker is an on/off oscillator with separate on and off durations.
// It only advances when Tick is called.
type Blinker struct {
	pin     gpio.Output
	channel int
	on      time.Duration
	off     time.Duration
	// cycle is true during the on phase.
	cycle          bool
	lastTransition time.Time
}

// New requests channel as an output driven to the initial level.
// A zero off duration means "same as on".
func New(outs Outputs, channel int, on, off time.Duration, initial bool, now time.Time) (*Blinker, error) {
	if off == 0 {
		off = on
	}
	pin, err := outs.Output(channel, Physical(initial))
	if err != nil {
		return nil, fmt.Errorf("configure led pin %d: %w", channel, err)
	}
	return &Blinker{
		pin:            pin,
		channel:        channel,
		on:             on,
		off:            off,
		cycle:          initial,
		lastTransition: now,
	}, nil
}

// Tick flips the state if the current phase has run out. The comparison
// is strict, so a poll exactly at the deadline does nothing, and at most
// one transition happens per call however late the poll is.
// It reports whether a transition happened.
func (b *Blinker) Tick(now time.Time) (bool, error) {
	if !now.After(b.deadline()) {
		return false, nil
	}
	b.lastTransition = now
	b.cycle = !b.cycle
	if err := b.write(b.cycle); err != nil {
		return true, err
	}
	return true, nil
}

// Force writes a logical level without touching the oscillator state.
func (b *Blinker) Force(on bool) error {
	return b.write(on)
}

func (b *Blinker) deadline() time.Time {
	if b.cycle {
		return b.lastTransition.Add(b.on)
	}
	return b.lastTransition.Add(b.off)
}

func (b *Blinker) write(on bool) error {
	if err := b.pin.Set(Physical(on)); err != nil {
		return fmt.Errorf("write led pin %d: %w", b.channel, err)
	}
	return nil
}

// SetDurations replaces the on and off durations. It takes effect from
// the current phase.
func (b *Blinker) SetDurations(on, off time.Duration) {
	b.on = on
	b.off = off
}

// Durations returns the on and off durations.
func (b *Blinker) Durations() (on, off time.Duration) {
	return b.on, b.off
}

// Cycle reports whether the blinker is in its on phase.
func (b *Blinker) Cycle() bool {
	return b.cycle
}

// LastTransition returns the time of the last flip (or construction).
func (b *Blinker) LastTransition() time.Time {
	return b.lastTransition
}

// Channel returns the BCM line number.
func (b *Blinker) Channel() int {
	return b.channel
}
