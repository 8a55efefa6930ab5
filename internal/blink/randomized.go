package blink

import (
	"math/rand/v2"
	"time"
)

// Randomization and accelerate constants.
const (
	DefaultChangeAfter = 30 * time.Second

	// Durations are drawn from {RandomStep, 2*RandomStep, ..., RandomSteps*RandomStep}.
	RandomStep  = 100 * time.Millisecond
	RandomSteps = 70

	AccelerateOn  = 50 * time.Millisecond
	AccelerateOff = 100 * time.Millisecond
)

// IntSource draws an integer in [0, n). *rand.Rand satisfies it.
type IntSource interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// RandomizedBlinker wraps a Blinker and redraws its durations every
// changeAfter. While accelerate is set it blinks fast with fixed
// durations instead.
type RandomizedBlinker struct {
	blinker     *Blinker
	changeAfter time.Duration
	// lastRandomized is zero when a redraw is due on the next tick.
	lastRandomized time.Time
	accelerate     bool
	rng            IntSource
}

// NewRandomized wraps b. The durations b was built with hold until the
// first changeAfter has passed. A nil rng uses the global source.
func NewRandomized(b *Blinker, changeAfter time.Duration, rng IntSource, now time.Time) *RandomizedBlinker {
	if changeAfter <= 0 {
		changeAfter = DefaultChangeAfter
	}
	if rng == nil {
		rng = globalSource{}
	}
	return &RandomizedBlinker{
		blinker:        b,
		changeAfter:    changeAfter,
		lastRandomized: now,
		rng:            rng,
	}
}

// Tick redraws the durations when due, applies the accelerate override
// and then advances the inner blinker.
func (r *RandomizedBlinker) Tick(now time.Time) (bool, error) {
	if r.lastRandomized.IsZero() || now.After(r.lastRandomized.Add(r.changeAfter)) {
		r.blinker.SetDurations(r.draw(), r.draw())
		r.lastRandomized = now
	}
	if r.accelerate {
		r.blinker.SetDurations(AccelerateOn, AccelerateOff)
		r.lastRandomized = time.Time{}
	}
	return r.blinker.Tick(now)
}

func (r *RandomizedBlinker) draw() time.Duration {
	return time.Duration(r.rng.IntN(RandomSteps)+1) * RandomStep
}

// SetAccelerate sets the accelerate signal. Button press sets it,
// release clears it.
func (r *RandomizedBlinker) SetAccelerate(on bool) {
	r.accelerate = on
}

// Accelerating reports the accelerate signal.
func (r *RandomizedBlinker) Accelerating() bool {
	return r.accelerate
}

// Blinker returns the wrapped blinker.
func (r *RandomizedBlinker) Blinker() *Blinker {
	return r.blinker
}
