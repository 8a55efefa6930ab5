// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"
)

// DefaultPrefix is the topic prefix used when none is configured.
const DefaultPrefix = "blinkd"

// Event names.
const (
	EventPress       = "PRESS"
	EventRelease     = "RELEASE"
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventHeartbeat   = "HEARTBEAT"
	EventReconnected = "RECONNECTED"
	EventOffline     = "OFFLINE"
)

// Topics holds the two topics the daemon publishes to.
type Topics struct {
	Events string
	System string
}

// NewTopics derives the events and system topics from prefix.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Topics{
		Events: prefix + "/events",
		System: prefix + "/system",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishButton sends a press or release to the events topic.
	// Returns error if publishing fails (should not crash the process).
	PublishButton(event ButtonEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// ButtonEvent is a dispatched press or release.
type ButtonEvent struct {
	Timestamp time.Time
	Event     string // EventPress or EventRelease
	Channel   int
	// Hold and PulseDeadline are set on a release that closed a press.
	Hold          time.Duration
	PulseDeadline time.Time
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// ButtonPayload is the events topic message.
type ButtonPayload struct {
	Button ButtonPayloadInner `json:"button"`
}

type ButtonPayloadInner struct {
	Timestamp     string `json:"timestamp"`
	Event         string `json:"event"`
	Channel       int    `json:"channel"`
	HoldMs        int64  `json:"hold_ms,omitempty"`
	PulseDeadline string `json:"pulse_deadline,omitempty"`
}

// FormatButtonPayload creates the JSON payload for a button event.
func FormatButtonPayload(event ButtonEvent) ([]byte, error) {
	inner := ButtonPayloadInner{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Event:     event.Event,
		Channel:   event.Channel,
		HoldMs:    event.Hold.Milliseconds(),
	}
	if !event.PulseDeadline.IsZero() {
		inner.PulseDeadline = event.PulseDeadline.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(ButtonPayload{Button: inner})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// willPayload is the retained last-will message. It carries no timestamp
// because the broker sends it on the client's behalf.
func willPayload() []byte {
	data, _ := json.Marshal(map[string]map[string]string{
		"system": {"event": EventOffline, "reason": "LWT"},
	})
	return data
}

// Nop discards everything. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishButton(ButtonEvent) error { return nil }
func (Nop) PublishSystem(SystemEvent) error { return nil }
func (Nop) Close() error                    { return nil }
func (Nop) IsConnected() bool               { return false }
