package bus

// FakeBus records published payloads for test assertions and lets tests
// inject inbound command messages.
type FakeBus struct {
	// Transitions contains all transition payloads that were published.
	Transitions []TransitionPayload

	// Healths contains all health pings that were published.
	Healths []HealthPayload

	// SystemEvents contains all lifecycle events that were published.
	SystemEvents []SystemEvent

	// PublishTransitionError, if set, is returned by PublishTransition.
	PublishTransitionError error

	// PublishHealthError, if set, is returned by PublishHealth.
	PublishHealthError error

	// PublishSystemError, if set, is returned by PublishSystem.
	PublishSystemError error

	// Connected controls the return value of IsConnected.
	Connected bool

	// Closed tracks if Close was called.
	Closed bool

	// CommandCh carries injected inbound command payloads.
	CommandCh chan []byte
}

// NewFakeBus creates a FakeBus for testing.
func NewFakeBus() *FakeBus {
	return &FakeBus{CommandCh: make(chan []byte, 16)}
}

// PublishTransition records the transition payload.
func (f *FakeBus) PublishTransition(p TransitionPayload) error {
	if f.PublishTransitionError != nil {
		return f.PublishTransitionError
	}
	f.Transitions = append(f.Transitions, p)
	return nil
}

// PublishHealth records the health ping.
func (f *FakeBus) PublishHealth(p HealthPayload) error {
	if f.PublishHealthError != nil {
		return f.PublishHealthError
	}
	f.Healths = append(f.Healths, p)
	return nil
}

// PublishSystem records the lifecycle event.
func (f *FakeBus) PublishSystem(ev SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	f.SystemEvents = append(f.SystemEvents, ev)
	return nil
}

// Commands returns the injectable command channel.
func (f *FakeBus) Commands() <-chan []byte {
	return f.CommandCh
}

// Inject delivers a raw command payload as if it arrived from the broker.
func (f *FakeBus) Inject(payload []byte) {
	f.CommandCh <- payload
}

// IsConnected reports whether the fake is "connected".
func (f *FakeBus) IsConnected() bool {
	return f.Connected
}

// Close marks the bus as closed.
func (f *FakeBus) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded payloads.
func (f *FakeBus) Reset() {
	f.Transitions = nil
	f.Healths = nil
	f.SystemEvents = nil
	f.PublishTransitionError = nil
	f.PublishHealthError = nil
	f.PublishSystemError = nil
	f.Connected = false
	f.Closed = false
}
