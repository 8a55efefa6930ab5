package blink

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/blinkd/internal/gpio"
)

var t0 = time.Date(2026, 3, 1, 10, 3, 0, 0, time.UTC)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestNewBlinkerConfiguresActiveLow(t *testing.T) {
	f := gpio.NewFake()

	_, err := New(f, 4, ms(100), ms(500), true, t0)
	require.NoError(t, err)
	assert.False(t, f.Pin(4).Level(), "logical on must drive the line LOW")

	_, err = New(f, 5, ms(100), ms(500), false, t0)
	require.NoError(t, err)
	assert.True(t, f.Pin(5).Level(), "logical off must drive the line HIGH")
}

func TestNewBlinkerOffDefaultsToOn(t *testing.T) {
	b, err := New(gpio.NewFake(), 4, ms(250), 0, false, t0)
	require.NoError(t, err)

	on, off := b.Durations()
	assert.Equal(t, ms(250), on)
	assert.Equal(t, ms(250), off)
}

func TestNewBlinkerConfigureError(t *testing.T) {
	f := gpio.NewFake()
	f.OutputError = errors.New("busy")

	_, err := New(f, 4, ms(100), 0, false, t0)
	assert.Error(t, err)
}

func TestBlinkerEndToEnd(t *testing.T) {
	f := gpio.NewFake()
	b, err := New(f, 4, ms(100), ms(100), false, t0)
	require.NoError(t, err)
	pin := f.Pin(4)

	flipped, err := b.Tick(t0)
	require.NoError(t, err)
	assert.False(t, flipped, "t=0 is too early")
	assert.Equal(t, 0, pin.WriteCount())

	flipped, err = b.Tick(t0.Add(ms(110)))
	require.NoError(t, err)
	assert.True(t, flipped)
	assert.True(t, b.Cycle())
	assert.Equal(t, []bool{false}, pin.Writes, "on is written as LOW")

	flipped, err = b.Tick(t0.Add(ms(220)))
	require.NoError(t, err)
	assert.True(t, flipped)
	assert.False(t, b.Cycle())
	assert.Equal(t, []bool{false, true}, pin.Writes)
}

func TestBlinkerTieDoesNotFlip(t *testing.T) {
	b, err := New(gpio.NewFake(), 4, ms(100), ms(300), false, t0)
	require.NoError(t, err)

	// Off phase: deadline is t0+300ms.
	flipped, _ := b.Tick(t0.Add(ms(300)))
	assert.False(t, flipped, "exact deadline must not flip")

	flipped, _ = b.Tick(t0.Add(ms(300) + time.Nanosecond))
	assert.True(t, flipped)
	assert.Equal(t, t0.Add(ms(300)+time.Nanosecond), b.LastTransition())
}

func TestBlinkerAtMostOneTransitionPerTick(t *testing.T) {
	f := gpio.NewFake()
	b, err := New(f, 4, ms(100), ms(100), false, t0)
	require.NoError(t, err)

	// Ten whole intervals have elapsed, still only one flip.
	flipped, err := b.Tick(t0.Add(ms(1000)))
	require.NoError(t, err)
	assert.True(t, flipped)
	assert.Equal(t, 1, f.Pin(4).WriteCount())

	// The next phase is measured from the late poll, not from t0.
	flipped, _ = b.Tick(t0.Add(ms(1050)))
	assert.False(t, flipped)
	flipped, _ = b.Tick(t0.Add(ms(1101)))
	assert.True(t, flipped)
	assert.Equal(t, 2, f.Pin(4).WriteCount())
}

func TestBlinkerUsesPhaseDuration(t *testing.T) {
	b, err := New(gpio.NewFake(), 4, ms(100), ms(500), true, t0)
	require.NoError(t, err)

	// On phase lasts 100ms.
	flipped, _ := b.Tick(t0.Add(ms(101)))
	assert.True(t, flipped)

	// Off phase lasts 500ms from the flip.
	flipped, _ = b.Tick(t0.Add(ms(400)))
	assert.False(t, flipped)
	flipped, _ = b.Tick(t0.Add(ms(602)))
	assert.True(t, flipped)
}

func TestBlinkerStrictlyIncreasingPollsFlipOncePerBoundary(t *testing.T) {
	b, err := New(gpio.NewFake(), 4, ms(70), ms(130), false, t0)
	require.NoError(t, err)

	// Poll every 10ms for two seconds; count flips and check each
	// happened on the first poll after its deadline.
	flips := 0
	for i := 1; i <= 200; i++ {
		now := t0.Add(time.Duration(i) * ms(10))
		prev := b.LastTransition()
		cycle := b.Cycle()
		flipped, err := b.Tick(now)
		require.NoError(t, err)
		if flipped {
			flips++
			phase := ms(130)
			if cycle {
				phase = ms(70)
			}
			assert.True(t, now.Sub(prev) > phase)
			assert.True(t, now.Sub(prev) <= phase+ms(10))
		}
	}
	// Each on+off pair takes 80ms+140ms on a 10ms grid.
	assert.InDelta(t, 2000/110, flips, 1)
}

func TestBlinkerForceKeepsBookkeeping(t *testing.T) {
	f := gpio.NewFake()
	b, err := New(f, 4, ms(100), ms(100), false, t0)
	require.NoError(t, err)

	require.NoError(t, b.Force(true))
	assert.False(t, f.Pin(4).Level(), "forced on drives LOW")
	assert.False(t, b.Cycle())
	assert.Equal(t, t0, b.LastTransition())
}

func TestBlinkerWriteErrorPropagates(t *testing.T) {
	f := gpio.NewFake()
	b, err := New(f, 4, ms(100), ms(100), false, t0)
	require.NoError(t, err)
	f.Pin(4).SetError = gpio.ErrFakeWrite

	_, err = b.Tick(t0.Add(time.Second))
	assert.ErrorIs(t, err, gpio.ErrFakeWrite)

	assert.ErrorIs(t, b.Force(true), gpio.ErrFakeWrite)
}
