// Package override holds the operator-controlled notification suppression
// window. The gate is the only state shared between the command intake and
// the polling loop, so all access goes through one mutex.
package override

import (
	"log"
	"sync"
	"time"
)

// Gate tracks whether notifications are currently suppressed.
// Expiry is lazy: a timed window is considered over the first time it is
// read past its end, no background timer runs.
type Gate struct {
	mu     sync.Mutex
	active bool
	// until is the end of the suppression window. Zero means indefinite
	// (suppressed until explicitly disabled).
	until time.Time
}

// NewGate creates a gate with suppression off.
func NewGate() *Gate {
	return &Gate{}
}

// Enable turns suppression on. A duration d > 0 sets a window ending at
// now+d; d <= 0 means indefinite suppression.
func (g *Gate) Enable(d time.Duration, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = true
	if d > 0 {
		g.until = now.Add(d)
	} else {
		g.until = time.Time{}
	}
}

// Disable clears suppression unconditionally.
func (g *Gate) Disable() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = false
	g.until = time.Time{}
}

// Suppressed reports whether notifications are suppressed at the given time,
// applying lazy expiry: an elapsed window is cleared on read.
func (g *Gate) Suppressed(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expireLocked(now)
	return g.active
}

// Snapshot returns the effective suppression state and window end (zero for
// indefinite or inactive), applying lazy expiry.
func (g *Gate) Snapshot(now time.Time) (active bool, until time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expireLocked(now)
	return g.active, g.until
}

func (g *Gate) expireLocked(now time.Time) {
	if g.active && !g.until.IsZero() && !now.Before(g.until) {
		g.active = false
		g.until = time.Time{}
		log.Printf("override: window expired, returning to normal operation")
	}
}
