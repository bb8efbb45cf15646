package airmeta

import "context"

// FakeLookup is a test double returning a scripted context.
type FakeLookup struct {
	// Ctx is returned by Current. May be nil (nothing on air).
	Ctx *Context

	// Err, if set, is returned by Current.
	Err error

	// Calls counts Current invocations.
	Calls int
}

// Current returns the scripted context or error.
func (f *FakeLookup) Current(_ context.Context) (*Context, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Ctx, nil
}
