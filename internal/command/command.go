// Package command parses and applies operator override commands arriving
// from the broker. Malformed payloads are logged and dropped; they never
// reach the gate and never stop the consume loop.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/mercer/studio-failsafe/internal/metrics"
	"github.com/mercer/studio-failsafe/internal/override"
)

// Recognized actions.
const (
	ActionEnable  = "enable_override"
	ActionDisable = "disable_override"
)

// Command is a validated operator command.
type Command struct {
	Action string
	// Duration of the suppression window for ActionEnable.
	// Zero means indefinite (no duration_minutes in the payload).
	Duration time.Duration
}

// Parse validates a raw payload. Expected shape:
//
//	{"action": "enable_override", "duration_minutes": 5}
//	{"action": "disable_override"}
//
// duration_minutes is optional and must be a positive integer when present.
func Parse(payload []byte) (Command, error) {
	var raw struct {
		Action          *string      `json:"action"`
		DurationMinutes *json.Number `json:"duration_minutes"`
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Command{}, fmt.Errorf("decode: %w", err)
	}
	if raw.Action == nil {
		return Command{}, fmt.Errorf("missing action")
	}

	switch *raw.Action {
	case ActionDisable:
		return Command{Action: ActionDisable}, nil
	case ActionEnable:
		cmd := Command{Action: ActionEnable}
		if raw.DurationMinutes != nil {
			minutes, err := raw.DurationMinutes.Int64()
			if err != nil {
				return Command{}, fmt.Errorf("duration_minutes must be an integer, got %s", *raw.DurationMinutes)
			}
			if minutes <= 0 {
				return Command{}, fmt.Errorf("duration_minutes must be positive, got %d", minutes)
			}
			cmd.Duration = time.Duration(minutes) * time.Minute
		}
		return cmd, nil
	default:
		return Command{}, fmt.Errorf("unknown action %q", *raw.Action)
	}
}

// Intake consumes raw command payloads and applies them to the gate.
// It is stateless between messages: a broker reconnect resumes cleanly.
type Intake struct {
	gate    *override.Gate
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewIntake creates an intake writing to the given gate.
func NewIntake(gate *override.Gate, m *metrics.Metrics, now func() time.Time) *Intake {
	if now == nil {
		now = time.Now
	}
	return &Intake{gate: gate, metrics: m, now: now}
}

// Handle processes one raw payload. Returns the parse error for malformed
// payloads after logging and counting it; the caller ignores it in the loop.
func (in *Intake) Handle(payload []byte) error {
	cmd, err := Parse(payload)
	if err != nil {
		log.Printf("command: dropping malformed payload: %v", err)
		in.metrics.Command("", metrics.ResultRejected)
		return err
	}

	switch cmd.Action {
	case ActionEnable:
		now := in.now()
		in.gate.Enable(cmd.Duration, now)
		if cmd.Duration > 0 {
			log.Printf("command: override enabled for %v (until %s UTC)",
				cmd.Duration, now.Add(cmd.Duration).UTC().Format(time.RFC3339))
		} else {
			log.Printf("command: override enabled indefinitely")
		}
	case ActionDisable:
		in.gate.Disable()
		log.Printf("command: override disabled")
	}
	in.metrics.Command(cmd.Action, metrics.ResultApplied)
	return nil
}

// Run consumes payloads until the context is cancelled or the channel
// closes. A panic while handling one message is recovered so the next
// message is still processed.
func (in *Intake) Run(ctx context.Context, msgs <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-msgs:
			if !ok {
				return
			}
			in.handleSafe(payload)
		}
	}
}

func (in *Intake) handleSafe(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("command: recovered panic handling message: %v", r)
		}
	}()
	in.Handle(payload)
}
