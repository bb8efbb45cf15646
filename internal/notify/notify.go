// Package notify implements the notification fan-out for confirmed source
// transitions. The channel-branching decision is a pure function
// (DecidePlan); the dispatcher executes the fixed five-step pipeline with a
// bounded timeout per step. Step failures are data (Outcome), never
// propagated errors: partial delivery is expected and acceptable.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mercer/studio-failsafe/internal/airmeta"
	"github.com/mercer/studio-failsafe/internal/bus"
	"github.com/mercer/studio-failsafe/internal/logic"
	"github.com/mercer/studio-failsafe/internal/metrics"
)

// Channel identifies one delivery path.
type Channel string

const (
	// ChannelPrimary is the tech-ops alert channel (webhook).
	ChannelPrimary Channel = "primary"
	// ChannelBroadFallback is the all-members group, used only when an
	// attended show has no reachable host.
	ChannelBroadFallback Channel = "broad_fallback"
	// ChannelSecondary is the broader-audience group, always notified.
	ChannelSecondary Channel = "secondary"
	// ChannelDirect is the resolved host contact (email).
	ChannelDirect Channel = "direct"
	// ChannelEventSink is the broker publication.
	ChannelEventSink Channel = "event_sink"
)

// Outcome records one delivery attempt (or skip) during a dispatch pass.
type Outcome struct {
	Channel Channel
	OK      bool
	// Skipped is true when the step did not apply (branch not taken, or
	// channel not configured). Skipped outcomes are not failures.
	Skipped bool
	Err     error
}

// Tally counts succeeded and failed outcomes, ignoring skips.
func Tally(outcomes []Outcome) (ok, failed int) {
	for _, o := range outcomes {
		if o.Skipped {
			continue
		}
		if o.OK {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}

// Event is a confirmed, non-suppressed transition handed to the dispatcher.
type Event struct {
	Timestamp time.Time
	From      logic.Source
	To        logic.Source
	// RawLevel is the pin level behind the transition, echoed in the
	// published payload.
	RawLevel bool
}

// AlertSender delivers a rich alert to the primary (tech-ops) channel.
type AlertSender interface {
	SendAlert(ctx context.Context, a Alert) error
}

// GroupSender delivers a plain text message to a group.
type GroupSender interface {
	SendText(ctx context.Context, text string) error
}

// DirectSender delivers a direct message to one address.
type DirectSender interface {
	SendDirect(ctx context.Context, to, subject, body string) error
}

// Dispatcher fans a transition out across the delivery channels.
// Nil senders mean the channel is not configured; those steps are skipped.
type Dispatcher struct {
	Lookup        airmeta.Lookup
	Primary       AlertSender
	BroadFallback GroupSender
	Secondary     GroupSender
	Direct        DirectSender
	Bus           bus.Publisher

	StationName  string
	PinName      string
	BackupSource logic.Source

	// StepTimeout bounds each pipeline step. Zero means DefaultStepTimeout.
	StepTimeout time.Duration

	Metrics *metrics.Metrics

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

// DefaultStepTimeout bounds a single delivery step when none is configured.
const DefaultStepTimeout = 10 * time.Second

// Dispatch runs the five-step pipeline for one confirmed transition and
// returns the per-channel outcomes. It never panics past this boundary: a
// programming error aborts the remainder of this dispatch attempt only.
func (d *Dispatcher) Dispatch(ev Event) (outcomes []Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("notify: dispatch aborted by panic: %v", r)
		}
	}()

	toBackup := ev.To == d.BackupSource

	// Step 1: resolve on-air context and alert the primary channel.
	actx, degraded := d.fetchContext()
	outcomes = append(outcomes, d.record(d.sendPrimary(ev, toBackup, actx, degraded)))

	plan := DecidePlan(actx)

	// Step 2: broad fallback, only when a human is on but unreachable.
	outcomes = append(outcomes, d.record(d.sendBroadFallback(toBackup, plan)))

	// Step 3: secondary audience, always.
	outcomes = append(outcomes, d.record(d.sendSecondary(toBackup)))

	// Step 4: direct contact, when one was resolved.
	directOutcome, notified := d.sendDirect(ev, toBackup, actx, plan)
	outcomes = append(outcomes, d.record(directOutcome))

	// Step 5: event publication, regardless of steps 1-4.
	outcomes = append(outcomes, d.record(d.publishEvent(ev, actx, notified)))

	return outcomes
}

func (d *Dispatcher) stepCtx() (context.Context, context.CancelFunc) {
	timeout := d.StepTimeout
	if timeout <= 0 {
		timeout = DefaultStepTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// record logs the outcome and feeds the delivery counter.
func (d *Dispatcher) record(o Outcome) Outcome {
	switch {
	case o.Skipped:
		d.Metrics.Delivery(string(o.Channel), metrics.ResultSkipped)
	case o.OK:
		d.Metrics.Delivery(string(o.Channel), metrics.ResultOK)
		log.Printf("notify: %s delivered", o.Channel)
	default:
		d.Metrics.Delivery(string(o.Channel), metrics.ResultFailed)
		log.Printf("notify: %s failed: %v", o.Channel, o.Err)
	}
	return o
}

// fetchContext runs the bounded metadata lookup. degraded is true when a
// lookup was configured but failed; a lookup that finds nothing on air is
// not degraded, just empty.
func (d *Dispatcher) fetchContext() (actx *airmeta.Context, degraded bool) {
	if d.Lookup == nil {
		return nil, false
	}
	ctx, cancel := d.stepCtx()
	defer cancel()
	actx, err := d.Lookup.Current(ctx)
	if err != nil {
		log.Printf("notify: context lookup failed: %v", err)
		return nil, true
	}
	return actx, false
}

func (d *Dispatcher) sendPrimary(ev Event, toBackup bool, actx *airmeta.Context, degraded bool) Outcome {
	if d.Primary == nil {
		return Outcome{Channel: ChannelPrimary, Skipped: true}
	}
	alert := d.transitionAlert(ev, toBackup, actx, degraded)
	ctx, cancel := d.stepCtx()
	defer cancel()
	if err := d.Primary.SendAlert(ctx, alert); err != nil {
		return Outcome{Channel: ChannelPrimary, Err: fmt.Errorf("primary alert: %w", err)}
	}
	return Outcome{Channel: ChannelPrimary, OK: true}
}

func (d *Dispatcher) sendBroadFallback(toBackup bool, plan Plan) Outcome {
	if !plan.BroadFallback {
		return Outcome{Channel: ChannelBroadFallback, Skipped: true}
	}
	if d.BroadFallback == nil {
		return Outcome{Channel: ChannelBroadFallback, Skipped: true}
	}
	ctx, cancel := d.stepCtx()
	defer cancel()
	if err := d.BroadFallback.SendText(ctx, d.broadFallbackText(toBackup)); err != nil {
		return Outcome{Channel: ChannelBroadFallback, Err: fmt.Errorf("broad fallback: %w", err)}
	}
	return Outcome{Channel: ChannelBroadFallback, OK: true}
}

func (d *Dispatcher) sendSecondary(toBackup bool) Outcome {
	if d.Secondary == nil {
		return Outcome{Channel: ChannelSecondary, Skipped: true}
	}
	ctx, cancel := d.stepCtx()
	defer cancel()
	if err := d.Secondary.SendText(ctx, d.secondaryText(toBackup)); err != nil {
		return Outcome{Channel: ChannelSecondary, Err: fmt.Errorf("secondary: %w", err)}
	}
	return Outcome{Channel: ChannelSecondary, OK: true}
}

// sendDirect emails the resolved host and, on success, posts a confirmation
// note back to the primary channel so tech-ops know an individual was
// reached. The returned address is non-empty only when the message was sent.
func (d *Dispatcher) sendDirect(ev Event, toBackup bool, actx *airmeta.Context, plan Plan) (Outcome, string) {
	if plan.DirectContact == "" || d.Direct == nil {
		return Outcome{Channel: ChannelDirect, Skipped: true}, ""
	}

	subject, body := d.directMessage(ev, toBackup, actx)
	ctx, cancel := d.stepCtx()
	defer cancel()
	if err := d.Direct.SendDirect(ctx, plan.DirectContact, subject, body); err != nil {
		return Outcome{Channel: ChannelDirect, Err: fmt.Errorf("direct contact: %w", err)}, ""
	}

	if d.Primary != nil {
		confCtx, confCancel := d.stepCtx()
		if err := d.Primary.SendAlert(confCtx, d.confirmationAlert(actx, plan.DirectContact)); err != nil {
			// Best-effort note; the direct delivery itself succeeded.
			log.Printf("notify: direct-contact confirmation note failed: %v", err)
		}
		confCancel()
	}
	return Outcome{Channel: ChannelDirect, OK: true}, plan.DirectContact
}

func (d *Dispatcher) publishEvent(ev Event, actx *airmeta.Context, notified string) Outcome {
	if d.Bus == nil {
		return Outcome{Channel: ChannelEventSink, Skipped: true}
	}

	payload := bus.TransitionPayload{
		EventID:              bus.NewEventID(),
		SourceApplication:    bus.SourceApplication,
		EventType:            "source_change",
		TimestampUTC:         ev.Timestamp.UTC().Format(time.RFC3339),
		PinName:              d.PinName,
		CurrentPinState:      ev.RawLevel,
		ActiveSource:         string(ev.To),
		PreviousActiveSource: string(ev.From),
	}
	if actx != nil {
		payload.Details = &bus.TransitionDetails{
			Attended:        actx.Attended,
			ShowTitle:       actx.ShowTitle,
			ShowURL:         actx.ShowURL,
			HostName:        actx.HostName,
			ContactNotified: notified,
		}
	}

	if err := d.Bus.PublishTransition(payload); err != nil {
		return Outcome{Channel: ChannelEventSink, Err: fmt.Errorf("publish event: %w", err)}
	}
	return Outcome{Channel: ChannelEventSink, OK: true}
}
