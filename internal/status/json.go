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
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	ActiveSource  string         `json:"active_source"`
	RawPinState   bool           `json:"raw_pin_state"`
	Ready         bool           `json:"ready"`
	Override      OverrideJSON   `json:"override"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	Broker        BrokerStatus   `json:"broker"`
	Counts        CountsJSON     `json:"event_counts"`
	Config        ConfigJSON     `json:"config"`
}

// OverrideJSON reports the suppression gate state.
type OverrideJSON struct {
	Active bool `json:"active"`
	// Until is empty when inactive or when the window is indefinite.
	Until string `json:"until,omitempty"`
}

// BrokerStatus reports broker connection state.
type BrokerStatus struct {
	Connected bool   `json:"connected"`
	URL       string `json:"url"`
}

// CountsJSON is the JSON representation of the activity counters.
type CountsJSON struct {
	ToA              int `json:"to_a"`
	ToB              int `json:"to_b"`
	Suppressed       int `json:"suppressed"`
	DeliveriesOK     int `json:"deliveries_ok"`
	DeliveriesFailed int `json:"deliveries_failed"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs       int64  `json:"poll_ms"`
	DebounceMs   int64  `json:"debounce_ms"`
	BeaconMs     int64  `json:"beacon_ms"`
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
	PinName      string `json:"pin_name"`
	BackupSource string `json:"backup_source"`
}

func buildInner(snap Snapshot) StatusInner {
	src := string(snap.Source)
	if src == "" {
		src = "UNKNOWN"
	}

	inner := StatusInner{
		ActiveSource:  src,
		RawPinState:   snap.RawLevel,
		Ready:         snap.Baselined,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Broker:        BrokerStatus{Connected: snap.BrokerConnected, URL: snap.Config.Broker},
		Override:      OverrideJSON{Active: snap.OverrideActive},
		Counts: CountsJSON{
			ToA:              snap.Counts.Transitions.ToA,
			ToB:              snap.Counts.Transitions.ToB,
			Suppressed:       snap.Counts.Suppressed,
			DeliveriesOK:     snap.Counts.DeliveriesOK,
			DeliveriesFailed: snap.Counts.DeliveriesFailed,
		},
		Config: ConfigJSON{
			PollMs:       snap.Config.PollMs,
			DebounceMs:   snap.Config.DebounceMs,
			BeaconMs:     snap.Config.BeaconMs,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
			PinName:      snap.Config.PinName,
			BackupSource: snap.Config.BackupSource,
		},
	}
	if snap.OverrideActive && !snap.OverrideUntil.IsZero() {
		inner.Override.Until = snap.OverrideUntil.UTC().Format(time.RFC3339)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for a broker lifecycle event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
