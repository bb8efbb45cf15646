// Package beacon publishes the periodic liveness ping. A missing ping tells
// the rest of the station infrastructure that the monitor itself is down, so
// the beacon keeps trying through broker outages with a capped retry cadence.
package beacon

import (
	"context"
	"log"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/mercer/studio-failsafe/internal/bus"
	"github.com/mercer/studio-failsafe/internal/logic"
	"github.com/mercer/studio-failsafe/internal/metrics"
	"github.com/mercer/studio-failsafe/internal/override"
)

// Defaults for the ping cadence and failure handling.
const (
	DefaultInterval      = time.Hour
	DefaultRetryInterval = time.Hour
	DefaultMaxFailures   = 5
)

// Beacon publishes health pings on a fixed interval. After MaxFailures
// consecutive publish failures it stops logging every miss and retries once
// per RetryInterval until a publish succeeds again.
type Beacon struct {
	Bus  bus.Publisher
	Gate *override.Gate

	// State reports the current active source and raw pin level.
	State func() (logic.Source, bool)

	PinName string

	Interval      time.Duration
	RetryInterval time.Duration
	MaxFailures   int

	Metrics *metrics.Metrics

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time

	// hostStats is swapped out in tests.
	hostStats func() *bus.HostStats

	failures  int
	nextRetry time.Time
}

func (b *Beacon) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b *Beacon) interval() time.Duration {
	if b.Interval > 0 {
		return b.Interval
	}
	return DefaultInterval
}

func (b *Beacon) retryInterval() time.Duration {
	if b.RetryInterval > 0 {
		return b.RetryInterval
	}
	return DefaultRetryInterval
}

func (b *Beacon) maxFailures() int {
	if b.MaxFailures > 0 {
		return b.MaxFailures
	}
	return DefaultMaxFailures
}

// Run publishes pings until the context is cancelled. The first ping goes out
// immediately so consumers see the daemon as soon as it starts.
func (b *Beacon) Run(ctx context.Context) {
	b.Tick(b.now())
	ticker := time.NewTicker(b.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			b.Tick(now)
		}
	}
}

// Tick attempts one health publish, honoring the failure backoff. Exported
// so the cadence can be driven directly in tests.
func (b *Beacon) Tick(now time.Time) {
	if b.Bus == nil {
		return
	}
	if b.failures >= b.maxFailures() && now.Before(b.nextRetry) {
		return
	}

	if err := b.Bus.PublishHealth(b.payload(now)); err != nil {
		b.failures++
		b.Metrics.HealthPublish(metrics.ResultFailed)
		if b.failures < b.maxFailures() {
			log.Printf("beacon: health publish failed (%d/%d): %v", b.failures, b.maxFailures(), err)
		} else {
			if b.failures == b.maxFailures() {
				log.Printf("beacon: health publish failed %d times, retrying every %s: %v",
					b.failures, b.retryInterval(), err)
			}
			b.nextRetry = now.Add(b.retryInterval())
		}
		return
	}

	if b.failures >= b.maxFailures() {
		log.Printf("beacon: health publishing recovered after %d failures", b.failures)
	}
	b.failures = 0
	b.nextRetry = time.Time{}
	b.Metrics.HealthPublish(metrics.ResultOK)
}

func (b *Beacon) payload(now time.Time) bus.HealthPayload {
	p := bus.HealthPayload{
		EventID:           bus.NewEventID(),
		SourceApplication: bus.SourceApplication,
		EventType:         "health_check",
		TimestampUTC:      now.UTC().Format(time.RFC3339),
		Status:            "alive",
		PinName:           b.PinName,
	}
	if b.State != nil {
		src, level := b.State()
		p.ActiveSource = string(src)
		p.CurrentPinState = level
	}
	if b.Gate != nil {
		active, until := b.Gate.Snapshot(now)
		p.OverrideActive = active
		if active && !until.IsZero() {
			p.OverrideEndTime = until.UTC().Format(time.RFC3339)
		}
	}
	p.Host = b.collectHostStats()
	return p
}

// collectHostStats gathers a machine snapshot. Any collector error drops the
// whole section rather than reporting partial numbers as zeros.
func (b *Beacon) collectHostStats() *bus.HostStats {
	if b.hostStats != nil {
		return b.hostStats()
	}
	info, err := host.Info()
	if err != nil {
		log.Printf("beacon: host info unavailable: %v", err)
		return nil
	}
	stats := &bus.HostStats{Hostname: info.Hostname, UptimeSeconds: info.Uptime}
	if avg, err := load.Avg(); err == nil {
		stats.Load1 = avg.Load1
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemUsedPercent = vm.UsedPercent
	}
	return stats
}
