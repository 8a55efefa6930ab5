package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sweeney/blinkd/internal/blink"
	"github.com/sweeney/blinkd/internal/button"
	"github.com/sweeney/blinkd/internal/config"
	"github.com/sweeney/blinkd/internal/gpio"
	"github.com/sweeney/blinkd/internal/logging"
	"github.com/sweeney/blinkd/internal/metrics"
	"github.com/sweeney/blinkd/internal/mode"
	"github.com/sweeney/blinkd/internal/mqtt"
	"github.com/sweeney/blinkd/internal/status"
)

// app owns the LED state machines and the button. Everything in it is
// touched only by the poll loop.
type app struct {
	blinker *blink.RandomizedBlinker
	job     *blink.WindowJob
	button  *button.Button

	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	notify     func(state string)
	logger     *slog.Logger

	heartbeat     time.Duration
	lastHeartbeat time.Time
	watchdog      time.Duration
	lastWatchdog  time.Time

	// sun, when set, re-seeds the job's mode at each sunrise and sunset.
	sun        *mode.SunMode
	nextChange time.Time
	night      bool

	blinkerFlips int
	jobFlips     int
	jobOn        bool
	regime       blink.Regime
	lastStats    button.Stats

	// lastHold is the hold measured by the most recent release.
	lastHold time.Duration
}

// newApp builds the configured components on fac and registers the
// button callbacks. night seeds the persisted job variant.
func newApp(fac gpio.Facility, cfg config.Config, night bool, rng blink.IntSource, now time.Time) (*app, error) {
	a := &app{
		publisher: mqtt.Nop{},
		notify:    func(string) {},
		logger:    logging.For("loop"),
		heartbeat: cfg.Heartbeat,
		night:     night,
	}
	a.lastHeartbeat = now
	a.lastWatchdog = now

	if cfg.Blinker.Enabled {
		c := cfg.Blinker
		b, err := blink.New(fac, c.Channel, c.On, c.Off, c.Initial, now)
		if err != nil {
			return nil, fmt.Errorf("blinker: %w", err)
		}
		a.blinker = blink.NewRandomized(b, c.ChangeAfter, rng, now)
		metrics.LEDState(c.Channel, c.Initial)
	}

	if cfg.Job.Enabled {
		c := cfg.Job
		var (
			j   *blink.WindowJob
			err error
		)
		if c.Variant == config.VariantPersisted {
			j, err = blink.NewPersistedWindowJob(fac, c.Channel, c.On, c.Off, c.Window(), night, now)
		} else {
			j, err = blink.NewWindowJob(fac, c.Channel, c.On, c.Off, c.Window(), now)
		}
		if err != nil {
			return nil, fmt.Errorf("window job: %w", err)
		}
		a.job = j
		a.jobOn = j.Blinker().Cycle()
		metrics.LEDState(c.Channel, a.jobOn)
		metrics.ModeNight(j.Steady())
	}

	if cfg.Button.Enabled {
		c := cfg.Button
		pull, err := gpio.ParsePull(c.Pull)
		if err != nil {
			return nil, fmt.Errorf("button: %w", err)
		}
		a.button = button.New(c.Channel, c.QueueSize, logging.For("button"))
		a.register()
		if _, err := fac.Input(c.Channel, pull, a.button.OnEdge); err != nil {
			return nil, fmt.Errorf("button: %w", err)
		}
	}

	return a, nil
}

// register wires the button to the blinker, the job and MQTT. Press and
// release each run acceleration first, then the job, then publishing.
func (a *app) register() {
	if a.blinker != nil {
		a.button.OnPress(func(_ *button.Button, _ time.Time) error {
			a.blinker.SetAccelerate(true)
			return nil
		})
		a.button.OnRelease(func(_ *button.Button, _ time.Time) error {
			a.blinker.SetAccelerate(false)
			return nil
		})
	}
	if a.job != nil {
		a.button.OnPress(func(_ *button.Button, at time.Time) error {
			a.job.OnPress(at)
			return nil
		})
		a.button.OnRelease(func(_ *button.Button, at time.Time) error {
			hold, ok := a.job.OnRelease(at)
			a.lastHold = hold
			if ok {
				metrics.PulseExtended()
				a.logger.Info("pulse window", "hold", hold, "until", a.job.PulseDeadline())
			}
			return nil
		})
	}
	a.button.OnPress(func(b *button.Button, at time.Time) error {
		return a.publishButton(mqtt.ButtonEvent{Timestamp: at, Event: mqtt.EventPress, Channel: b.Channel()})
	})
	a.button.OnRelease(func(b *button.Button, at time.Time) error {
		ev := mqtt.ButtonEvent{Timestamp: at, Event: mqtt.EventRelease, Channel: b.Channel(), Hold: a.lastHold}
		if a.job != nil && a.lastHold > 0 {
			ev.PulseDeadline = a.job.PulseDeadline()
		}
		a.lastHold = 0
		return a.publishButton(ev)
	})
}

func (a *app) publishButton(ev mqtt.ButtonEvent) error {
	if err := a.publisher.PublishButton(ev); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Event, err)
	}
	return nil
}

// useSun makes a persisted job follow sunrise and sunset from now on.
// Plain jobs have no mode, so it does nothing for them.
func (a *app) useSun(s mode.SunMode, now time.Time) {
	if a.job == nil || !a.job.Persisted() {
		return
	}
	a.sun = &s
	a.nextChange = s.NextChange(now)
}

// poll runs one iteration: queued button edges first, then the blinker,
// then the job. A GPIO write failure is returned as fatal.
func (a *app) poll(t time.Time) error {
	if a.button != nil {
		for _, e := range a.button.Drain() {
			metrics.ButtonEdge(!e.High)
		}
	}

	if a.sun != nil && !t.Before(a.nextChange) {
		a.night = a.sun.IsNight(t)
		if a.job != nil {
			a.job.SetNight(a.night)
		}
		metrics.ModeNight(a.night)
		a.nextChange = a.sun.NextChange(t)
		if !a.nextChange.After(t) {
			// No sunrise or sunset today.
			a.nextChange = t.Add(time.Hour)
		}
		a.logger.Info("mode changed", "mode", status.ModeString(a.night), "next", a.nextChange)
	}

	if a.blinker != nil {
		flipped, err := a.blinker.Tick(t)
		if err != nil {
			return fmt.Errorf("blinker: %w", err)
		}
		if flipped {
			b := a.blinker.Blinker()
			a.blinkerFlips++
			metrics.LEDTransition(b.Channel(), b.Cycle())
		}
	}

	if a.job != nil {
		regime, flipped, err := a.job.Tick(t)
		if err != nil {
			return fmt.Errorf("window job: %w", err)
		}
		b := a.job.Blinker()
		on := b.Cycle()
		if regime == blink.RegimeSteady {
			on = a.job.Steady()
		}
		if flipped || on != a.jobOn {
			a.jobFlips++
			metrics.LEDTransition(b.Channel(), on)
		}
		a.jobOn = on
		if regime != a.regime {
			a.logger.Debug("job regime", "from", string(a.regime), "to", string(regime))
			metrics.JobRegime(string(regime))
			a.regime = regime
		}
	}

	if a.button != nil {
		s := a.button.Stats()
		metrics.ButtonDropped(s.Dropped - a.lastStats.Dropped)
		metrics.CallbackErrors(s.CallbackErrors - a.lastStats.CallbackErrors)
		a.lastStats = s
	}

	a.updateTracker()
	return nil
}

// updateTracker copies loop-owned state into the shared tracker.
func (a *app) updateTracker() {
	if a.tracker == nil {
		return
	}
	if a.blinker != nil {
		b := a.blinker.Blinker()
		on, off := b.Durations()
		a.tracker.UpdateBlinker(status.LED{
			Enabled:        true,
			Channel:        b.Channel(),
			On:             b.Cycle(),
			OnDuration:     on,
			OffDuration:    off,
			Transitions:    a.blinkerFlips,
			LastTransition: b.LastTransition(),
		}, a.blinker.Accelerating())
	}
	if a.job != nil {
		b := a.job.Blinker()
		on, off := b.Durations()
		a.tracker.UpdateJob(status.Job{
			LED: status.LED{
				Enabled:        true,
				Channel:        b.Channel(),
				On:             a.jobOn,
				OnDuration:     on,
				OffDuration:    off,
				Transitions:    a.jobFlips,
				LastTransition: b.LastTransition(),
			},
			Regime:        string(a.regime),
			Night:         a.job.Steady(),
			PressOpen:     a.job.PressOpen(),
			PulseDeadline: a.job.PulseDeadline(),
		})
	}
	if a.button != nil {
		s := a.button.Stats()
		a.tracker.UpdateButton(status.Button{
			Enabled:        true,
			Channel:        a.button.Channel(),
			Pressed:        a.button.Pressed(),
			Presses:        s.Presses,
			Releases:       s.Releases,
			Dropped:        s.Dropped,
			CallbackErrors: s.CallbackErrors,
		})
	}
	if a.mqttStatus != nil {
		a.tracker.SetMQTTConnected(a.mqttStatus.IsConnected())
	}
}

// statusEvent builds a system event carrying a full status snapshot.
func (a *app) statusEvent(t time.Time, event, reason string, retained bool) mqtt.SystemEvent {
	ev := mqtt.SystemEvent{Timestamp: t, Event: event, Reason: reason, Retained: retained}
	if a.tracker != nil {
		a.updateTracker()
		ev.RawPayload = status.FormatStatusEvent(a.tracker.Snapshot(), event, reason)
	}
	return ev
}

// maintain sends heartbeats and watchdog pings when they are due.
func (a *app) maintain(t time.Time) {
	if a.heartbeat > 0 && t.Sub(a.lastHeartbeat) >= a.heartbeat {
		a.lastHeartbeat = t
		if net := readNetworkInfo(); net != nil && a.tracker != nil {
			a.tracker.SetNetwork(net)
		}
		a.logger.Info("heartbeat", "blinker_flips", a.blinkerFlips, "job_flips", a.jobFlips, "regime", string(a.regime))
		if err := a.publisher.PublishSystem(a.statusEvent(t, mqtt.EventHeartbeat, "", false)); err != nil {
			a.logger.Warn("heartbeat publish failed", "err", err)
		}
	}
	if a.watchdog > 0 && t.Sub(a.lastWatchdog) >= a.watchdog/2 {
		a.lastWatchdog = t
		a.notify(notifyWatchdog)
	}
}
