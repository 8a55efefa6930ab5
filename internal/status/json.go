package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Mode          string       `json:"mode"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Blinker       BlinkerJSON  `json:"blinker"`
	Job           JobJSON      `json:"job"`
	Button        ButtonJSON   `json:"button"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// LEDJSON is the JSON representation of one LED.
type LEDJSON struct {
	Enabled        bool   `json:"enabled"`
	Channel        int    `json:"channel"`
	State          string `json:"state"`
	OnMs           int64  `json:"on_ms"`
	OffMs          int64  `json:"off_ms"`
	Transitions    int    `json:"transitions"`
	LastTransition string `json:"last_transition,omitempty"`
}

type BlinkerJSON struct {
	LEDJSON
	Accelerating bool `json:"accelerating"`
}

type JobJSON struct {
	LEDJSON
	Regime        string `json:"regime"`
	PressOpen     bool   `json:"press_open"`
	PulseDeadline string `json:"pulse_deadline,omitempty"`
}

type ButtonJSON struct {
	Enabled        bool   `json:"enabled"`
	Channel        int    `json:"channel"`
	State          string `json:"state"`
	Presses        int    `json:"presses"`
	Releases       int    `json:"releases"`
	Dropped        int    `json:"dropped"`
	CallbackErrors int    `json:"callback_errors"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker,omitempty"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs           int64  `json:"poll_ms"`
	HeartbeatMs      int64  `json:"heartbeat_ms"`
	Backend          string `json:"backend"`
	Variant          string `json:"variant"`
	EveryMinutes     int    `json:"every_minutes"`
	ThresholdSeconds int    `json:"threshold_seconds"`
	ModeSource       string `json:"mode_source"`
	HTTPAddr         string `json:"http_addr"`
}

// ModeString names the night flag.
func ModeString(night bool) string {
	if night {
		return "NIGHT"
	}
	return "DAY"
}

// OnOff names a logical LED level.
func OnOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildLED(l LED) LEDJSON {
	return LEDJSON{
		Enabled:        l.Enabled,
		Channel:        l.Channel,
		State:          OnOff(l.On),
		OnMs:           l.OnDuration.Milliseconds(),
		OffMs:          l.OffDuration.Milliseconds(),
		Transitions:    l.Transitions,
		LastTransition: formatTime(l.LastTransition),
	}
}

func buildInner(snap Snapshot) StatusInner {
	pressed := "RELEASED"
	if snap.Button.Pressed {
		pressed = "PRESSED"
	}

	inner := StatusInner{
		Mode:          ModeString(snap.Job.Night),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     formatTime(snap.StartTime),
		Timestamp:     formatTime(snap.Now),
		Blinker: BlinkerJSON{
			LEDJSON:      buildLED(snap.Blinker),
			Accelerating: snap.Accelerating,
		},
		Job: JobJSON{
			LEDJSON:       buildLED(snap.Job.LED),
			Regime:        snap.Job.Regime,
			PressOpen:     snap.Job.PressOpen,
			PulseDeadline: formatTime(snap.Job.PulseDeadline),
		},
		Button: ButtonJSON{
			Enabled:        snap.Button.Enabled,
			Channel:        snap.Button.Channel,
			State:          pressed,
			Presses:        snap.Button.Presses,
			Releases:       snap.Button.Releases,
			Dropped:        snap.Button.Dropped,
			CallbackErrors: snap.Button.CallbackErrors,
		},
		MQTT: MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			PollMs:           snap.Config.PollMs,
			HeartbeatMs:      snap.Config.HeartbeatMs,
			Backend:          snap.Config.Backend,
			Variant:          snap.Config.Variant,
			EveryMinutes:     snap.Config.EveryMinutes,
			ThresholdSeconds: snap.Config.ThresholdSeconds,
			ModeSource:       snap.Config.ModeSource,
			HTTPAddr:         snap.Config.HTTPAddr,
		},
	}
	if inner.Job.Regime == "" {
		inner.Job.Regime = "UNKNOWN"
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
