// Package logic contains pure business logic for audio source state tracking.
// This package has NO external dependencies (no GPIO, broker, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"time"
)

// Source identifies which of the two studio audio inputs is live.
type Source string

const (
	SourceA Source = "A"
	SourceB Source = "B"
)

// Other returns the opposite source.
func Other(s Source) Source {
	if s == SourceA {
		return SourceB
	}
	return SourceA
}

// ParseSource validates a configured source label.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceA:
		return SourceA, nil
	case SourceB:
		return SourceB, nil
	}
	return "", fmt.Errorf("invalid source %q (must be A or B)", s)
}

// Transition is a confirmed, debounced source change.
type Transition struct {
	Timestamp time.Time
	From      Source
	To        Source
}

// Input is a single sample of the observed source.
type Input struct {
	Source Source
	Time   time.Time
}

// TransitionCounts tracks confirmed transitions since startup.
type TransitionCounts struct {
	ToA int
	ToB int
}
