// Package bus provides the message-broker boundary with abstraction for
// testing. Transition and health events are published to configurable topics;
// operator override commands are consumed from a third.
package bus

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SourceApplication identifies this daemon in published payloads.
const SourceApplication = "studio-failsafe"

// Topics names the three broker topics. Naming is configuration, not
// behavior: defaults mirror the routing keys the station already consumes.
type Topics struct {
	Notifications string
	Healthcheck   string
	Commands      string
}

// DefaultTopics returns the station's conventional topic names.
func DefaultTopics() Topics {
	return Topics{
		Notifications: "notification/failsafe-status",
		Healthcheck:   "health/failsafe-status",
		Commands:      "command/failsafe-override",
	}
}

// Publisher publishes daemon events to the broker.
type Publisher interface {
	// PublishTransition sends a confirmed source change.
	// Returns error if publishing fails (should not crash the process).
	PublishTransition(p TransitionPayload) error

	// PublishHealth sends a liveness ping.
	PublishHealth(p HealthPayload) error

	// PublishSystem sends a lifecycle event (startup, shutdown).
	PublishSystem(ev SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the broker connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// CommandSource delivers raw inbound command payloads.
type CommandSource interface {
	Commands() <-chan []byte
}

// NewEventID returns a unique id stamped on every published payload.
func NewEventID() string {
	return uuid.NewString()
}

// TransitionPayload is the event-sink record for one confirmed, non-suppressed
// source change.
type TransitionPayload struct {
	EventID              string             `json:"event_id"`
	SourceApplication    string             `json:"source_application"`
	EventType            string             `json:"event_type"` // always "source_change"
	TimestampUTC         string             `json:"timestamp_utc"`
	PinName              string             `json:"pin_name"`
	CurrentPinState      bool               `json:"current_pin_state"`
	ActiveSource         string             `json:"active_source"`
	PreviousActiveSource string             `json:"previous_active_source"`
	Details              *TransitionDetails `json:"details,omitempty"`
}

// TransitionDetails carries the on-air context resolved during dispatch.
type TransitionDetails struct {
	Attended        bool   `json:"attended"`
	ShowTitle       string `json:"show_title,omitempty"`
	ShowURL         string `json:"show_url,omitempty"`
	HostName        string `json:"host_name,omitempty"`
	ContactNotified string `json:"contact_notified,omitempty"`
}

// HealthPayload is the liveness ping published by the health beacon.
type HealthPayload struct {
	EventID           string     `json:"event_id"`
	SourceApplication string     `json:"source_application"`
	EventType         string     `json:"event_type"` // always "health_check"
	TimestampUTC      string     `json:"timestamp_utc"`
	Status            string     `json:"status"` // always "alive"
	PinName           string     `json:"pin_name"`
	CurrentPinState   bool       `json:"current_pin_state"`
	ActiveSource      string     `json:"active_source"`
	OverrideActive    bool       `json:"override_active"`
	OverrideEndTime   string     `json:"override_end_time,omitempty"`
	Host              *HostStats `json:"host,omitempty"`
}

// HostStats is a small machine snapshot embedded in health pings.
type HostStats struct {
	Hostname       string  `json:"hostname"`
	UptimeSeconds  uint64  `json:"uptime_seconds"`
	Load1          float64 `json:"load1"`
	MemUsedPercent float64 `json:"mem_used_percent"`
}

// SystemEvent represents a daemon lifecycle event (startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemEvent returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// FormatTransition creates the JSON payload for a transition event.
func FormatTransition(p TransitionPayload) ([]byte, error) {
	return json.Marshal(p)
}

// FormatHealth creates the JSON payload for a health ping.
func FormatHealth(p HealthPayload) ([]byte, error) {
	return json.Marshal(p)
}

// systemEnvelope is the payload shape for simple lifecycle events without a
// full status snapshot.
type systemEnvelope struct {
	System systemInner `json:"system"`
}

type systemInner struct {
	EventID           string `json:"event_id"`
	SourceApplication string `json:"source_application"`
	Timestamp         string `json:"timestamp"`
	Event             string `json:"event"`
	Reason            string `json:"reason,omitempty"`
}

// FormatSystemEvent creates the JSON payload for a lifecycle event.
// If ev.RawPayload is set, it is returned directly (used for full status
// snapshots).
func FormatSystemEvent(ev SystemEvent) ([]byte, error) {
	if ev.RawPayload != nil {
		return ev.RawPayload, nil
	}
	return json.Marshal(systemEnvelope{
		System: systemInner{
			EventID:           NewEventID(),
			SourceApplication: SourceApplication,
			Timestamp:         ev.Timestamp.UTC().Format(time.RFC3339),
			Event:             ev.Event,
			Reason:            ev.Reason,
		},
	})
}
