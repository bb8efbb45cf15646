package logic

import "time"

// Detector tracks the active source and detects debounced transitions.
// A candidate new source must persist for the debounce duration before it is
// accepted; returning to the stable source mid-debounce cancels the candidate.
type Detector struct {
	debounce     time.Duration
	stable       Source
	pending      Source
	pendingSince time.Time
	baselined    bool
	counts       TransitionCounts
}

// NewDetector creates a transition detector with the given debounce duration.
func NewDetector(debounce time.Duration) *Detector {
	return &Detector{debounce: debounce}
}

// Process takes a new sample and returns a Transition if one was confirmed,
// nil otherwise. The first stable reading seeds the source with no transition.
func (d *Detector) Process(in Input) *Transition {
	if !d.baselined {
		if d.pending == "" || d.pending != in.Source {
			// Start (or restart) baseline observation.
			d.pending = in.Source
			d.pendingSince = in.Time
			return nil
		}
		if in.Time.Sub(d.pendingSince) >= d.debounce {
			d.stable = in.Source
			d.baselined = true
			d.pending = ""
		}
		return nil
	}

	if in.Source == d.stable {
		// Back to the stable source: cancel any pending candidate.
		d.pending = ""
		return nil
	}

	if d.pending != in.Source {
		d.pending = in.Source
		d.pendingSince = in.Time
		return nil
	}

	if in.Time.Sub(d.pendingSince) < d.debounce {
		return nil
	}

	prev := d.stable
	d.stable = in.Source
	d.pending = ""
	switch d.stable {
	case SourceA:
		d.counts.ToA++
	case SourceB:
		d.counts.ToB++
	}
	return &Transition{Timestamp: in.Time, From: prev, To: d.stable}
}

// Baselined returns whether the detector has established its initial source.
func (d *Detector) Baselined() bool {
	return d.baselined
}

// Current returns the current stable source. Meaningless until baselined.
func (d *Detector) Current() Source {
	return d.stable
}

// Counts returns confirmed transition counts since startup.
func (d *Detector) Counts() TransitionCounts {
	return d.counts
}
