package logic

import (
	"testing"
	"time"
)

func TestNewDetector(t *testing.T) {
	d := NewDetector(2 * time.Second)
	if d == nil {
		t.Fatal("NewDetector returned nil")
	}
	if d.debounce != 2*time.Second {
		t.Errorf("expected debounce 2s, got %v", d.debounce)
	}
	if d.Baselined() {
		t.Error("new detector should not be baselined")
	}
}

func TestBaselineEstablishment(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(2 * time.Second)

	// First sample starts observation.
	if tr := d.Process(Input{Source: SourceA, Time: now}); tr != nil {
		t.Errorf("expected no transition during baseline, got %+v", tr)
	}
	if d.Baselined() {
		t.Error("should not be baselined after first sample")
	}

	// Before the debounce period.
	if tr := d.Process(Input{Source: SourceA, Time: now.Add(time.Second)}); tr != nil {
		t.Errorf("expected no transition during baseline, got %+v", tr)
	}
	if d.Baselined() {
		t.Error("should not be baselined before debounce period")
	}

	// After the debounce period the baseline is seeded with no transition.
	if tr := d.Process(Input{Source: SourceA, Time: now.Add(2 * time.Second)}); tr != nil {
		t.Errorf("expected no transition at baseline establishment, got %+v", tr)
	}
	if !d.Baselined() {
		t.Error("should be baselined after debounce period")
	}
	if d.Current() != SourceA {
		t.Errorf("expected current source A, got %s", d.Current())
	}
}

func TestBaselineResetOnChange(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(2 * time.Second)

	d.Process(Input{Source: SourceA, Time: now})
	// Source changes before the baseline completes: observation restarts.
	d.Process(Input{Source: SourceB, Time: now.Add(time.Second)})

	if tr := d.Process(Input{Source: SourceB, Time: now.Add(2 * time.Second)}); tr != nil {
		t.Errorf("expected no transition, got %+v", tr)
	}
	if d.Baselined() {
		t.Error("should not be baselined: debounce restarted at the change")
	}

	if tr := d.Process(Input{Source: SourceB, Time: now.Add(3 * time.Second)}); tr != nil {
		t.Errorf("expected no transition at baseline establishment, got %+v", tr)
	}
	if !d.Baselined() {
		t.Error("should be baselined after debounce from the change")
	}
	if d.Current() != SourceB {
		t.Errorf("expected current source B, got %s", d.Current())
	}
}

// setupBaselinedDetector returns a detector baselined at the given source.
func setupBaselinedDetector(t *testing.T, src Source) *Detector {
	t.Helper()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(2 * time.Second)
	d.Process(Input{Source: src, Time: now})
	d.Process(Input{Source: src, Time: now.Add(2 * time.Second)})
	if !d.Baselined() {
		t.Fatal("setup: detector not baselined")
	}
	return d
}

func TestNoTransitionForStableSource(t *testing.T) {
	d := setupBaselinedDetector(t, SourceA)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		tr := d.Process(Input{Source: SourceA, Time: now.Add(time.Duration(i) * time.Second)})
		if tr != nil {
			t.Errorf("iteration %d: expected no transition for stable source, got %+v", i, tr)
		}
	}
}

func TestSingleTransitionAToB(t *testing.T) {
	d := setupBaselinedDetector(t, SourceA)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	if tr := d.Process(Input{Source: SourceB, Time: now}); tr != nil {
		t.Errorf("expected no transition before debounce, got %+v", tr)
	}
	tr := d.Process(Input{Source: SourceB, Time: now.Add(2 * time.Second)})
	if tr == nil {
		t.Fatal("expected transition after debounce")
	}
	if tr.From != SourceA || tr.To != SourceB {
		t.Errorf("expected A->B, got %s->%s", tr.From, tr.To)
	}
	if !tr.Timestamp.Equal(now.Add(2 * time.Second)) {
		t.Errorf("unexpected transition timestamp %v", tr.Timestamp)
	}
	if d.Current() != SourceB {
		t.Errorf("expected current source B, got %s", d.Current())
	}

	// The same source again must not fire a second transition.
	if tr := d.Process(Input{Source: SourceB, Time: now.Add(3 * time.Second)}); tr != nil {
		t.Errorf("expected exactly one transition, got extra %+v", tr)
	}
}

func TestSingleTransitionBToA(t *testing.T) {
	d := setupBaselinedDetector(t, SourceB)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	d.Process(Input{Source: SourceA, Time: now})
	tr := d.Process(Input{Source: SourceA, Time: now.Add(2 * time.Second)})
	if tr == nil {
		t.Fatal("expected transition after debounce")
	}
	if tr.From != SourceB || tr.To != SourceA {
		t.Errorf("expected B->A, got %s->%s", tr.From, tr.To)
	}
}

func TestBounceCancelled(t *testing.T) {
	d := setupBaselinedDetector(t, SourceA)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	// Brief flip to B, back to A before the debounce elapses.
	d.Process(Input{Source: SourceB, Time: now})
	d.Process(Input{Source: SourceA, Time: now.Add(time.Second)})

	// B again much later: the earlier candidate must not be credited.
	if tr := d.Process(Input{Source: SourceB, Time: now.Add(10 * time.Second)}); tr != nil {
		t.Errorf("expected no transition, candidate should have restarted, got %+v", tr)
	}
	if d.Current() != SourceA {
		t.Errorf("expected current source still A, got %s", d.Current())
	}
}

func TestFewerThanThresholdSamplesNoChange(t *testing.T) {
	d := setupBaselinedDetector(t, SourceA)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	// Alternating noise: never two consecutive B samples spanning the dwell.
	for i := 0; i < 20; i++ {
		src := SourceB
		if i%2 == 1 {
			src = SourceA
		}
		tr := d.Process(Input{Source: src, Time: now.Add(time.Duration(i) * time.Second)})
		if tr != nil {
			t.Fatalf("sample %d: source changed on noise: %+v", i, tr)
		}
	}
	if d.Current() != SourceA {
		t.Errorf("expected current source A, got %s", d.Current())
	}
}

func TestAtLeastThresholdSamplesExactlyOneTransition(t *testing.T) {
	d := setupBaselinedDetector(t, SourceA)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	var transitions []*Transition
	for i := 0; i < 10; i++ {
		tr := d.Process(Input{Source: SourceB, Time: now.Add(time.Duration(i) * time.Second)})
		if tr != nil {
			transitions = append(transitions, tr)
		}
	}
	if len(transitions) != 1 {
		t.Fatalf("expected exactly one transition, got %d", len(transitions))
	}
	if transitions[0].From != SourceA || transitions[0].To != SourceB {
		t.Errorf("expected A->B, got %s->%s", transitions[0].From, transitions[0].To)
	}
	if d.Current() != SourceB {
		t.Errorf("expected current source B thereafter, got %s", d.Current())
	}
}

func TestTransitionCounts(t *testing.T) {
	d := setupBaselinedDetector(t, SourceA)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	d.Process(Input{Source: SourceB, Time: now})
	d.Process(Input{Source: SourceB, Time: now.Add(2 * time.Second)})
	d.Process(Input{Source: SourceA, Time: now.Add(10 * time.Second)})
	d.Process(Input{Source: SourceA, Time: now.Add(12 * time.Second)})

	counts := d.Counts()
	if counts.ToB != 1 {
		t.Errorf("expected 1 transition to B, got %d", counts.ToB)
	}
	if counts.ToA != 1 {
		t.Errorf("expected 1 transition to A, got %d", counts.ToA)
	}
}

func TestZeroDebounceConfirmsOnSecondSample(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(0)

	d.Process(Input{Source: SourceA, Time: now})
	d.Process(Input{Source: SourceA, Time: now.Add(time.Second)})
	if !d.Baselined() {
		t.Fatal("expected baseline with zero debounce")
	}

	d.Process(Input{Source: SourceB, Time: now.Add(2 * time.Second)})
	tr := d.Process(Input{Source: SourceB, Time: now.Add(3 * time.Second)})
	if tr == nil {
		t.Fatal("expected transition with zero debounce")
	}
}

func TestOther(t *testing.T) {
	if Other(SourceA) != SourceB {
		t.Error("Other(A) != B")
	}
	if Other(SourceB) != SourceA {
		t.Error("Other(B) != A")
	}
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		in      string
		want    Source
		wantErr bool
	}{
		{"A", SourceA, false},
		{"B", SourceB, false},
		{"", "", true},
		{"a", "", true},
		{"C", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSource(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseSource(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSource(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSource(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
