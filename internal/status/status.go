// Package status provides a thread-safe status tracker for the failsafe
// daemon. It is read by the HTTP status page and embedded in lifecycle
// events published to the broker.
package status

import (
	"sync"
	"time"

	"github.com/mercer/studio-failsafe/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs       int64
	DebounceMs   int64
	BeaconMs     int64
	Broker       string
	HTTPAddr     string
	PinName      string
	BackupSource string
}

// Counts aggregates the daemon's activity counters.
type Counts struct {
	Transitions      logic.TransitionCounts
	Suppressed       int
	DeliveriesOK     int
	DeliveriesFailed int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Source          logic.Source
	RawLevel        bool
	Baselined       bool
	OverrideActive  bool
	OverrideUntil   time.Time
	Counts          Counts
	StartTime       time.Time
	Now             time.Time
	BrokerConnected bool
	Config          Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the observed source, pin level, baseline status, and
// transition counts. Called from the poll loop on every tick.
func (t *Tracker) Update(src logic.Source, rawLevel, baselined bool, counts logic.TransitionCounts) {
	t.mu.Lock()
	t.snap.Source = src
	t.snap.RawLevel = rawLevel
	t.snap.Baselined = baselined
	t.snap.Counts.Transitions = counts
	t.mu.Unlock()
}

// RecordSuppressed counts one transition swallowed by the override gate.
func (t *Tracker) RecordSuppressed() {
	t.mu.Lock()
	t.snap.Counts.Suppressed++
	t.mu.Unlock()
}

// AddDeliveries accumulates dispatch outcome totals.
func (t *Tracker) AddDeliveries(ok, failed int) {
	t.mu.Lock()
	t.snap.Counts.DeliveriesOK += ok
	t.snap.Counts.DeliveriesFailed += failed
	t.mu.Unlock()
}

// SetOverride records the override gate state. A zero until with active set
// means an indefinite window.
func (t *Tracker) SetOverride(active bool, until time.Time) {
	t.mu.Lock()
	t.snap.OverrideActive = active
	t.snap.OverrideUntil = until
	t.mu.Unlock()
}

// SetBrokerConnected sets the broker connection status.
func (t *Tracker) SetBrokerConnected(connected bool) {
	t.mu.Lock()
	t.snap.BrokerConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
