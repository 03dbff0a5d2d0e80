// Package mqtt provides remote rate control and event publishing over MQTT,
// with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/pin-toggler/internal/gpio"
	"github.com/sweeney/pin-toggler/internal/toggler"
)

// DefaultTopicBase is the topic prefix used when none is configured.
const DefaultTopicBase = "devices/pin-toggler"

// Topics are the MQTT topics used by one toggler instance.
type Topics struct {
	Set    string // inbound rate commands
	Events string // rate change events
	System string // lifecycle events (retained)
}

// NewTopics derives the topic set from a base prefix.
func NewTopics(base string) Topics {
	if base == "" {
		base = DefaultTopicBase
	}
	return Topics{
		Set:    base + "/set",
		Events: base + "/events",
		System: base + "/system",
	}
}

// Publisher publishes toggler events to MQTT.
type Publisher interface {
	// PublishRate sends a rate change event.
	// Returns error if publishing fails (should not crash the process).
	PublishRate(event RateEvent) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// DropReporter reports events lost while the broker was unreachable.
type DropReporter interface {
	Dropped() DropCounts
}

// RateSetter applies a rate to a pin index.
type RateSetter interface {
	SetRate(index int, rate toggler.Rate) error
}

// RateEvent records a rate change.
type RateEvent struct {
	Timestamp time.Time
	Index     int
	Pin       gpio.Pin
	Rate      toggler.Rate
	Source    string // "mqtt", "http", "flag"
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Command is an inbound rate command, e.g. {"pin":1,"rate":"MEDIUM"}.
type Command struct {
	Pin  int          `json:"pin"`
	Rate toggler.Rate `json:"rate"`
}

var ErrBadCommand = errors.New("mqtt: bad command")

// ParseCommand decodes a rate command. Both fields are required.
func ParseCommand(payload []byte) (Command, error) {
	var raw struct {
		Pin  *int          `json:"pin"`
		Rate *toggler.Rate `json:"rate"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrBadCommand, err)
	}
	if raw.Pin == nil {
		return Command{}, fmt.Errorf("%w: missing pin", ErrBadCommand)
	}
	if raw.Rate == nil {
		return Command{}, fmt.Errorf("%w: missing rate", ErrBadCommand)
	}
	return Command{Pin: *raw.Pin, Rate: *raw.Rate}, nil
}

// Dispatch parses a command payload and applies it.
func Dispatch(setter RateSetter, payload []byte) (Command, error) {
	cmd, err := ParseCommand(payload)
	if err != nil {
		return Command{}, err
	}
	if err := setter.SetRate(cmd.Pin, cmd.Rate); err != nil {
		return cmd, fmt.Errorf("set pin %d to %s: %w", cmd.Pin, cmd.Rate, err)
	}
	return cmd, nil
}

// RatePayload is the MQTT message payload for rate events.
type RatePayload struct {
	Toggler RatePayloadInner `json:"toggler"`
}

// RatePayloadInner contains the rate event details.
type RatePayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Index     int    `json:"index"`
	Pin       int    `json:"pin"`
	Rate      string `json:"rate"`
	Source    string `json:"source,omitempty"`
}

// FormatRatePayload creates the JSON payload for a rate event.
func FormatRatePayload(event RateEvent) ([]byte, error) {
	if !event.Rate.Valid() {
		return nil, fmt.Errorf("format rate event: %w", toggler.ErrInvalidRate)
	}
	payload := RatePayload{
		Toggler: RatePayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     "RATE",
			Index:     event.Index,
			Pin:       int(event.Pin),
			Rate:      event.Rate.String(),
			Source:    event.Source,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// WillPayload is the last-will message the broker publishes if the
// connection drops without a clean disconnect.
func WillPayload() []byte {
	data, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE"})
	return data
}
