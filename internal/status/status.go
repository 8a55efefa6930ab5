// Package status provides a thread-safe status tracker for the blinkd daemon.
// The poll loop writes it; HTTP handlers and MQTT system events read it.
package status

import (
	"sync"
	"time"
)

// NetworkInfo contains network state.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs           int64
	HeartbeatMs      int64
	Backend          string
	Variant          string
	EveryMinutes     int
	ThresholdSeconds int
	ModeSource       string
	Broker           string
	HTTPAddr         string
}

// LED is the state of one blinking output.
type LED struct {
	Enabled        bool
	Channel        int
	On             bool
	OnDuration     time.Duration
	OffDuration    time.Duration
	Transitions    int
	LastTransition time.Time
}

// Job is the window job's state.
type Job struct {
	LED
	Regime        string
	Night         bool
	PressOpen     bool
	PulseDeadline time.Time
}

// Button is the input's state.
type Button struct {
	Enabled        bool
	Channel        int
	Pressed        bool
	Presses        int
	Releases       int
	Dropped        int
	CallbackErrors int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Blinker       LED
	Accelerating  bool
	Job           Job
	Button        Button
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetClock replaces the clock used to stamp snapshots.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// UpdateBlinker records the randomized blinker's state.
func (t *Tracker) UpdateBlinker(led LED, accelerating bool) {
	t.mu.Lock()
	t.snap.Blinker = led
	t.snap.Accelerating = accelerating
	t.mu.Unlock()
}

// UpdateJob records the window job's state.
func (t *Tracker) UpdateJob(job Job) {
	t.mu.Lock()
	t.snap.Job = job
	t.mu.Unlock()
}

// UpdateButton records the button's state.
func (t *Tracker) UpdateButton(b Button) {
	t.mu.Lock()
	t.snap.Button = b
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set from the tracker's clock at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	now := t.now
	t.mu.RUnlock()
	if s.Network != nil {
		n := *s.Network
		s.Network = &n
	}
	s.Now = now()
	return s
}
