package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mercer/studio-failsafe/internal/airmeta"
	"github.com/mercer/studio-failsafe/internal/bus"
	"github.com/mercer/studio-failsafe/internal/logic"
)

func testEvent(to logic.Source) Event {
	return Event{
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		From:      logic.Other(to),
		To:        to,
		RawLevel:  to == "B",
	}
}

// testDispatcher wires every channel to a fake. Backup source is "B".
func testDispatcher(lookup airmeta.Lookup) (*Dispatcher, *FakeAlertSender, *FakeGroupSender, *FakeGroupSender, *FakeDirectSender, *bus.FakeBus) {
	primary := &FakeAlertSender{}
	broad := &FakeGroupSender{}
	secondary := &FakeGroupSender{}
	direct := &FakeDirectSender{}
	fb := bus.NewFakeBus()
	d := &Dispatcher{
		Lookup:        lookup,
		Primary:       primary,
		BroadFallback: broad,
		Secondary:     secondary,
		Direct:        direct,
		Bus:           fb,
		StationName:   "WTST",
		PinName:       "silence_detect",
		BackupSource:  "B",
		Now:           func() time.Time { return time.Date(2024, 3, 1, 12, 0, 5, 0, time.UTC) },
	}
	return d, primary, broad, secondary, direct, fb
}

func outcomeFor(t *testing.T, outcomes []Outcome, ch Channel) Outcome {
	t.Helper()
	for _, o := range outcomes {
		if o.Channel == ch {
			return o
		}
	}
	t.Fatalf("no outcome for channel %s in %+v", ch, outcomes)
	return Outcome{}
}

func TestDispatchAttendedWithContact(t *testing.T) {
	lookup := &airmeta.FakeLookup{Ctx: &airmeta.Context{
		Attended:       true,
		ShowTitle:      "Morning Show",
		HostName:       "Jo",
		ContactAddress: "jo@wtst.example",
	}}
	d, primary, broad, _, direct, fb := testDispatcher(lookup)

	outcomes := d.Dispatch(testEvent("B"))

	if len(outcomes) != 5 {
		t.Fatalf("got %d outcomes, want 5", len(outcomes))
	}
	if o := outcomeFor(t, outcomes, ChannelPrimary); !o.OK {
		t.Errorf("primary outcome = %+v, want OK", o)
	}
	if o := outcomeFor(t, outcomes, ChannelBroadFallback); !o.Skipped {
		t.Errorf("broad fallback outcome = %+v, want skipped when host is reachable", o)
	}
	if o := outcomeFor(t, outcomes, ChannelSecondary); !o.OK {
		t.Errorf("secondary outcome = %+v, want OK", o)
	}
	if o := outcomeFor(t, outcomes, ChannelDirect); !o.OK {
		t.Errorf("direct outcome = %+v, want OK", o)
	}
	if o := outcomeFor(t, outcomes, ChannelEventSink); !o.OK {
		t.Errorf("event sink outcome = %+v, want OK", o)
	}

	if len(broad.Texts) != 0 {
		t.Errorf("broad fallback received %d texts, want 0", len(broad.Texts))
	}
	if len(direct.Sent) != 1 {
		t.Fatalf("direct got %d messages, want 1", len(direct.Sent))
	}
	if direct.Sent[0].To != "jo@wtst.example" {
		t.Errorf("direct to = %q, want jo@wtst.example", direct.Sent[0].To)
	}
	if !strings.Contains(direct.Sent[0].Body, "Jo") {
		t.Errorf("direct body does not greet the host: %q", direct.Sent[0].Body)
	}

	// Transition alert plus the direct-contact confirmation note.
	if len(primary.Alerts) != 2 {
		t.Fatalf("primary got %d alerts, want 2", len(primary.Alerts))
	}
	if primary.Alerts[0].Color != colorError {
		t.Errorf("transition alert color = %d, want %d", primary.Alerts[0].Color, colorError)
	}
	if primary.Alerts[1].Title != "Host Notified Directly" {
		t.Errorf("confirmation alert title = %q", primary.Alerts[1].Title)
	}
	if !strings.Contains(primary.Alerts[1].Description, "jo@wtst.example") {
		t.Errorf("confirmation alert missing contact: %q", primary.Alerts[1].Description)
	}

	if len(fb.Transitions) != 1 {
		t.Fatalf("bus got %d transitions, want 1", len(fb.Transitions))
	}
	p := fb.Transitions[0]
	if p.ActiveSource != "B" || p.PreviousActiveSource != "A" {
		t.Errorf("payload sources = %s/%s, want B/A", p.ActiveSource, p.PreviousActiveSource)
	}
	if p.Details == nil {
		t.Fatal("payload details missing")
	}
	if p.Details.ContactNotified != "jo@wtst.example" {
		t.Errorf("contact_notified = %q, want jo@wtst.example", p.Details.ContactNotified)
	}
	if p.EventID == "" {
		t.Error("payload missing event id")
	}
}

func TestDispatchAttendedWithoutContact(t *testing.T) {
	lookup := &airmeta.FakeLookup{Ctx: &airmeta.Context{Attended: true, ShowTitle: "Late Night"}}
	d, primary, broad, secondary, direct, fb := testDispatcher(lookup)

	outcomes := d.Dispatch(testEvent("B"))

	if o := outcomeFor(t, outcomes, ChannelBroadFallback); !o.OK {
		t.Errorf("broad fallback outcome = %+v, want OK when host unreachable", o)
	}
	if o := outcomeFor(t, outcomes, ChannelDirect); !o.Skipped {
		t.Errorf("direct outcome = %+v, want skipped without a contact", o)
	}
	if len(broad.Texts) != 1 {
		t.Fatalf("broad fallback got %d texts, want 1", len(broad.Texts))
	}
	if !strings.Contains(broad.Texts[0], "dead air") {
		t.Errorf("broad fallback text = %q, want dead-air warning", broad.Texts[0])
	}
	if len(secondary.Texts) != 1 {
		t.Errorf("secondary got %d texts, want 1", len(secondary.Texts))
	}
	if len(direct.Sent) != 0 {
		t.Errorf("direct got %d messages, want 0", len(direct.Sent))
	}
	if len(primary.Alerts) != 1 {
		t.Errorf("primary got %d alerts, want 1 (no confirmation note)", len(primary.Alerts))
	}
	if len(fb.Transitions) != 1 {
		t.Errorf("bus got %d transitions, want 1", len(fb.Transitions))
	}
	if fb.Transitions[0].Details == nil || fb.Transitions[0].Details.ContactNotified != "" {
		t.Errorf("details = %+v, want attended with empty contact_notified", fb.Transitions[0].Details)
	}
}

func TestDispatchUnattended(t *testing.T) {
	lookup := &airmeta.FakeLookup{Ctx: &airmeta.Context{Attended: false, ShowTitle: "Automation"}}
	d, _, broad, secondary, direct, _ := testDispatcher(lookup)

	outcomes := d.Dispatch(testEvent("B"))

	if o := outcomeFor(t, outcomes, ChannelBroadFallback); !o.Skipped {
		t.Errorf("broad fallback outcome = %+v, want skipped for automation", o)
	}
	if o := outcomeFor(t, outcomes, ChannelDirect); !o.Skipped {
		t.Errorf("direct outcome = %+v, want skipped for automation", o)
	}
	if len(broad.Texts) != 0 || len(direct.Sent) != 0 {
		t.Error("per-host channels contacted for an unattended show")
	}
	if len(secondary.Texts) != 1 {
		t.Errorf("secondary got %d texts, want 1", len(secondary.Texts))
	}
}

func TestDispatchLookupFailureDegrades(t *testing.T) {
	lookup := &airmeta.FakeLookup{Err: errors.New("schedule api down")}
	d, primary, broad, _, direct, fb := testDispatcher(lookup)

	outcomes := d.Dispatch(testEvent("B"))

	// No context means the targeted branches cannot run.
	if o := outcomeFor(t, outcomes, ChannelBroadFallback); !o.Skipped {
		t.Errorf("broad fallback outcome = %+v, want skipped", o)
	}
	if o := outcomeFor(t, outcomes, ChannelDirect); !o.Skipped {
		t.Errorf("direct outcome = %+v, want skipped", o)
	}
	if len(broad.Texts) != 0 || len(direct.Sent) != 0 {
		t.Error("targeted channels contacted without resolved context")
	}

	if len(primary.Alerts) != 1 {
		t.Fatalf("primary got %d alerts, want 1", len(primary.Alerts))
	}
	found := false
	for _, f := range primary.Alerts[0].Fields {
		if f.Name == "On-Air Context" {
			found = true
		}
	}
	if !found {
		t.Errorf("degraded alert missing context field: %+v", primary.Alerts[0].Fields)
	}

	if len(fb.Transitions) != 1 {
		t.Fatalf("bus got %d transitions, want 1", len(fb.Transitions))
	}
	if fb.Transitions[0].Details != nil {
		t.Errorf("details = %+v, want nil without resolved context", fb.Transitions[0].Details)
	}
}

func TestDispatchAllSendersFailStillPublishes(t *testing.T) {
	lookup := &airmeta.FakeLookup{Ctx: &airmeta.Context{Attended: true, ContactAddress: "jo@wtst.example"}}
	d, primary, _, secondary, direct, fb := testDispatcher(lookup)
	failure := errors.New("network down")
	primary.Err = failure
	secondary.Err = failure
	direct.Err = failure

	outcomes := d.Dispatch(testEvent("B"))

	if len(outcomes) != 5 {
		t.Fatalf("got %d outcomes, want 5", len(outcomes))
	}
	for _, ch := range []Channel{ChannelPrimary, ChannelSecondary, ChannelDirect} {
		o := outcomeFor(t, outcomes, ch)
		if o.OK || o.Skipped || o.Err == nil {
			t.Errorf("%s outcome = %+v, want failure with error", ch, o)
		}
	}
	if o := outcomeFor(t, outcomes, ChannelEventSink); !o.OK {
		t.Errorf("event sink outcome = %+v, want OK despite sender failures", o)
	}
	if len(fb.Transitions) != 1 {
		t.Errorf("bus got %d transitions, want 1", len(fb.Transitions))
	}
	// The failed direct delivery must not be reported as notified.
	if fb.Transitions[0].Details.ContactNotified != "" {
		t.Errorf("contact_notified = %q, want empty after failed send", fb.Transitions[0].Details.ContactNotified)
	}

	ok, failed := Tally(outcomes)
	if ok != 1 || failed != 3 {
		t.Errorf("Tally = (%d, %d), want (1, 3)", ok, failed)
	}
}

func TestDispatchNilSendersSkip(t *testing.T) {
	fb := bus.NewFakeBus()
	d := &Dispatcher{Bus: fb, BackupSource: "B"}

	outcomes := d.Dispatch(testEvent("B"))

	for _, ch := range []Channel{ChannelPrimary, ChannelBroadFallback, ChannelSecondary, ChannelDirect} {
		if o := outcomeFor(t, outcomes, ch); !o.Skipped {
			t.Errorf("%s outcome = %+v, want skipped when unconfigured", ch, o)
		}
	}
	if o := outcomeFor(t, outcomes, ChannelEventSink); !o.OK {
		t.Errorf("event sink outcome = %+v, want OK", o)
	}
}

func TestDispatchResolveAlert(t *testing.T) {
	d, primary, broad, secondary, direct, fb := testDispatcher(&airmeta.FakeLookup{
		Ctx: &airmeta.Context{Attended: true, ContactAddress: "jo@wtst.example", HostName: "Jo"},
	})

	d.Dispatch(testEvent("A"))

	if len(primary.Alerts) == 0 {
		t.Fatal("primary got no alerts")
	}
	if primary.Alerts[0].Color != colorSuccess {
		t.Errorf("resolve alert color = %d, want %d", primary.Alerts[0].Color, colorSuccess)
	}
	if !strings.Contains(secondary.Texts[0], "RESOLVED") {
		t.Errorf("secondary text = %q, want resolution summary", secondary.Texts[0])
	}
	if len(broad.Texts) != 0 {
		t.Errorf("broad fallback got %d texts, want 0", len(broad.Texts))
	}
	// Resolution is also delivered directly when a host is on.
	if len(direct.Sent) != 1 {
		t.Fatalf("direct got %d messages, want 1", len(direct.Sent))
	}
	if !strings.Contains(direct.Sent[0].Subject, "Resolved") {
		t.Errorf("direct subject = %q, want resolution subject", direct.Sent[0].Subject)
	}
	if fb.Transitions[0].ActiveSource != "A" {
		t.Errorf("payload active source = %s, want A", fb.Transitions[0].ActiveSource)
	}
}

type panicLookup struct{}

func (panicLookup) Current(context.Context) (*airmeta.Context, error) {
	panic("boom")
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	d, _, _, _, _, fb := testDispatcher(panicLookup{})

	outcomes := d.Dispatch(testEvent("B"))

	// The panic aborts the remaining steps but must not escape.
	if len(outcomes) != 0 {
		t.Errorf("got %d outcomes, want 0 after panic in first step", len(outcomes))
	}
	if len(fb.Transitions) != 0 {
		t.Errorf("bus got %d transitions, want 0", len(fb.Transitions))
	}
}

func TestTally(t *testing.T) {
	outcomes := []Outcome{
		{Channel: ChannelPrimary, OK: true},
		{Channel: ChannelBroadFallback, Skipped: true},
		{Channel: ChannelSecondary, Err: errors.New("x")},
		{Channel: ChannelDirect, Skipped: true},
		{Channel: ChannelEventSink, OK: true},
	}
	ok, failed := Tally(outcomes)
	if ok != 2 || failed != 1 {
		t.Errorf("Tally = (%d, %d), want (2, 1)", ok, failed)
	}
}
