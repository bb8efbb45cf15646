package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mercer/studio-failsafe/internal/logic"
	"github.com/mercer/studio-failsafe/internal/metrics"
	"github.com/mercer/studio-failsafe/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *metrics.Metrics) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PollMs:       500,
		DebounceMs:   2000,
		BeaconMs:     3600000,
		Broker:       "tcp://192.168.1.200:1883",
		HTTPAddr:     ":8017",
		PinName:      "source_select",
		BackupSource: "B",
	}
	tr := status.NewTracker(start, cfg)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	srv := New(":0", tr, reg)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr, m
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(logic.SourceB, false, true, logic.TransitionCounts{ToA: 2, ToB: 3})
	tr.SetBrokerConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.ActiveSource != "B" {
		t.Errorf("ActiveSource: got %q, want B", sj.Status.ActiveSource)
	}
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if !sj.Status.Broker.Connected {
		t.Error("expected Broker.Connected=true")
	}
	if sj.Status.Broker.URL != "tcp://192.168.1.200:1883" {
		t.Errorf("Broker.URL: got %q", sj.Status.Broker.URL)
	}
	if sj.Status.Counts.ToB != 3 {
		t.Errorf("Counts.ToB: got %d, want 3", sj.Status.Counts.ToB)
	}
	if sj.Status.Config.PollMs != 500 {
		t.Errorf("Config.PollMs: got %d, want 500", sj.Status.Config.PollMs)
	}
}

func TestJSONUnknownSourceBeforeBaseline(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	json.NewDecoder(resp.Body).Decode(&sj)

	if sj.Status.ActiveSource != "UNKNOWN" {
		t.Errorf("ActiveSource before baseline: got %q, want UNKNOWN", sj.Status.ActiveSource)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(logic.SourceA, true, true, logic.TransitionCounts{})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Studio Failsafe") {
		t.Error("page missing title")
	}
}

func TestHTMLShowsOverrideWindow(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.SetOverride(true, time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC))

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "active until 2026-01-01T12:30:00Z") {
		t.Errorf("page missing override window, body:\n%s", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, m := newTestServer(t)
	m.Transition("B")
	m.Delivery("primary", metrics.ResultOK)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "failsafe_transitions_total") {
		t.Error("metrics output missing transition counter")
	}
	if !strings.Contains(string(body), "failsafe_deliveries_total") {
		t.Error("metrics output missing delivery counter")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	resp1, _ := http.Get(ts.URL + "/index.json")
	var sj1 status.StatusJSON
	json.NewDecoder(resp1.Body).Decode(&sj1)
	resp1.Body.Close()
	if sj1.Status.Ready {
		t.Error("expected Ready=false initially")
	}

	tr.Update(logic.SourceB, false, true, logic.TransitionCounts{ToB: 1})
	tr.SetBrokerConnected(true)

	resp2, _ := http.Get(ts.URL + "/index.json")
	var sj2 status.StatusJSON
	json.NewDecoder(resp2.Body).Decode(&sj2)
	resp2.Body.Close()

	if !sj2.Status.Ready {
		t.Error("expected Ready=true after update")
	}
	if sj2.Status.ActiveSource != "B" {
		t.Errorf("ActiveSource: got %q, want B", sj2.Status.ActiveSource)
	}
	if !sj2.Status.Broker.Connected {
		t.Error("expected broker connected after update")
	}
}
