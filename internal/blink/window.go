package blink

import "time"

// Window job defaults.
const (
	// PulseFactor multiplies the button hold time to get the pulse length.
	PulseFactor = 4

	DefaultEveryMinutes = 15

	PlainThreshold     = 10
	PersistedThreshold = 25

	PlainOn  = 400 * time.Millisecond
	PlainOff = 900 * time.Millisecond
)

// Regime names what governed a WindowJob's output on a poll.
type Regime string

const (
	RegimeRecurring Regime = "RECURRING"
	RegimePulse     Regime = "PULSE"
	RegimeSteady    Regime = "STEADY"
)

// Window is a recurring interval at the start of every Every-minute
// boundary of the hour, lasting through second Threshold (inclusive).
type Window struct {
	EveryMinutes     int
	ThresholdSeconds int
}

// Contains reports whether t (in its own location) falls in the window.
func (w Window) Contains(t time.Time) bool {
	every := w.EveryMinutes
	if every <= 0 {
		every = DefaultEveryMinutes
	}
	return t.Minute()%every == 0 && t.Second() <= w.ThresholdSeconds
}

// WindowJob blinks its Blinker only inside the recurring window or a
// pulse window opened by a button hold. Outside both it holds the steady
// level.
type WindowJob struct {
	blinker *Blinker
	window  Window
	steady  bool
	// persisted is set for jobs seeded with a day/night mode.
	persisted bool

	pressStart    time.Time
	pulseDeadline time.Time
}

// NewWindowJob builds the plain job: initial and steady level off.
func NewWindowJob(outs Outputs, channel int, on, off time.Duration, window Window, now time.Time) (*WindowJob, error) {
	b, err := New(outs, channel, on, off, false, now)
	if err != nil {
		return nil, err
	}
	return &WindowJob{blinker: b, window: window}, nil
}

// NewPersistedWindowJob builds the job seeded with the persisted mode.
// At night the on and off durations swap and the LED starts, and rests,
// lit.
func NewPersistedWindowJob(outs Outputs, channel int, on, off time.Duration, window Window, night bool, now time.Time) (*WindowJob, error) {
	if night {
		on, off = off, on
	}
	b, err := New(outs, channel, on, off, night, now)
	if err != nil {
		return nil, err
	}
	return &WindowJob{blinker: b, window: window, steady: night, persisted: true}, nil
}

// Regime returns which regime governs output at now.
func (j *WindowJob) Regime(now time.Time) Regime {
	switch {
	case j.window.Contains(now):
		return RegimeRecurring
	case j.InPulse(now):
		return RegimePulse
	}
	return RegimeSteady
}

// InPulse reports whether a pulse deadline is set and still ahead of now.
func (j *WindowJob) InPulse(now time.Time) bool {
	return !j.pulseDeadline.IsZero() && j.pulseDeadline.After(now)
}

// Tick advances the blinker inside a window and forces the steady level
// outside. It reports the regime that applied and whether the blinker
// flipped.
func (j *WindowJob) Tick(now time.Time) (Regime, bool, error) {
	regime := j.Regime(now)
	if regime == RegimeSteady {
		return regime, false, j.blinker.Force(j.steady)
	}
	flipped, err := j.blinker.Tick(now)
	return regime, flipped, err
}

// OnPress opens a press unless one is already open. An active pulse is
// left alone.
func (j *WindowJob) OnPress(at time.Time) {
	if j.pressStart.IsZero() {
		j.pressStart = at
	}
}

// OnRelease closes the open press and sets the pulse deadline to
// PulseFactor times the hold past the release. Without an open press it
// does nothing. It returns the hold duration and whether a press was
// open.
func (j *WindowJob) OnRelease(at time.Time) (time.Duration, bool) {
	if j.pressStart.IsZero() {
		return 0, false
	}
	hold := at.Sub(j.pressStart)
	j.pulseDeadline = at.Add(PulseFactor * hold)
	j.pressStart = time.Time{}
	return hold, true
}

// PulseDeadline returns the pulse deadline, zero if none was set.
func (j *WindowJob) PulseDeadline() time.Time {
	return j.pulseDeadline
}

// PressOpen reports whether a press has been seen without its release.
func (j *WindowJob) PressOpen() bool {
	return !j.pressStart.IsZero()
}

// Steady returns the level forced outside the windows.
func (j *WindowJob) Steady() bool {
	return j.steady
}

// Persisted reports whether the job follows a day/night mode.
func (j *WindowJob) Persisted() bool {
	return j.persisted
}

// Blinker returns the wrapped blinker.
func (j *WindowJob) Blinker() *Blinker {
	return j.blinker
}

// SetNight re-seeds the persisted mode: at night the steady level is lit
// and the on and off durations are swapped relative to day. It is a no-op
// when the mode does not change and on plain jobs, which always rest off.
func (j *WindowJob) SetNight(night bool) {
	if !j.persisted || night == j.steady {
		return
	}
	on, off := j.blinker.Durations()
	j.blinker.SetDurations(off, on)
	j.steady = night
}
