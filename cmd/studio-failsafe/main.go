// Command studio-failsafe monitors the broadcast failsafe relay and fans
// confirmed source changes out to the station's notification channels.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mercer/studio-failsafe/internal/airmeta"
	"github.com/mercer/studio-failsafe/internal/beacon"
	"github.com/mercer/studio-failsafe/internal/bus"
	"github.com/mercer/studio-failsafe/internal/command"
	"github.com/mercer/studio-failsafe/internal/config"
	"github.com/mercer/studio-failsafe/internal/gpio"
	"github.com/mercer/studio-failsafe/internal/logic"
	"github.com/mercer/studio-failsafe/internal/metrics"
	"github.com/mercer/studio-failsafe/internal/notify"
	"github.com/mercer/studio-failsafe/internal/override"
	"github.com/mercer/studio-failsafe/internal/status"
	"github.com/mercer/studio-failsafe/internal/web"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (empty for defaults)")
	poll := flag.Duration("poll", 500*time.Millisecond, "GPIO polling interval")
	debounce := flag.Duration("debounce", 2*time.Second, "Debounce duration")
	broker := flag.String("broker", "", "MQTT broker address (empty to disable)")
	httpAddr := flag.String("http", ":8017", "HTTP status address (empty to disable)")
	printState := flag.Bool("print-state", false, "Print current source and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	// Explicit flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "poll":
			cfg.Hardware.Poll = config.Duration(*poll)
		case "debounce":
			cfg.Hardware.Debounce = config.Duration(*debounce)
		case "broker":
			cfg.Broker.URL = *broker
		case "http":
			cfg.Web.Addr = *httpAddr
		}
	})

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, printState bool) error {
	backup, err := logic.ParseSource(cfg.Hardware.BackupSource)
	if err != nil {
		return err
	}

	reader, err := gpio.NewRealReader(cfg.Hardware.Chip, cfg.Hardware.Pin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	levelSource := func(level bool) logic.Source {
		if level {
			return logic.Other(backup)
		}
		return backup
	}

	if printState {
		level, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("source: %s (pin %s)\n", levelSource(level), levelString(level))
		return nil
	}

	m := metrics.New(nil)

	var client *bus.RealClient
	if cfg.Broker.URL != "" {
		client, err = bus.NewRealClient(cfg.Broker.URL, cfg.Broker.ClientID, cfg.Broker.Topics())
		if err != nil {
			return fmt.Errorf("init broker: %w", err)
		}
		defer client.Close()
	} else {
		log.Printf("no broker configured, proceeding without one")
	}

	// Interface wiring goes through explicit nil checks so an unconfigured
	// broker stays a nil interface, not a typed nil.
	var publisher bus.Publisher
	var connStatus bus.ConnectionStatus
	if client != nil {
		publisher = client
		connStatus = client
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:       cfg.Hardware.Poll.Std().Milliseconds(),
		DebounceMs:   cfg.Hardware.Debounce.Std().Milliseconds(),
		BeaconMs:     cfg.Beacon.Interval.Std().Milliseconds(),
		Broker:       cfg.Broker.URL,
		HTTPAddr:     cfg.Web.Addr,
		PinName:      cfg.Hardware.PinName,
		BackupSource: string(backup),
	})

	// Publish startup event with full status snapshot
	if publisher != nil {
		snap := tracker.Snapshot()
		startupEvent := bus.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startupEvent); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	if cfg.Web.Addr != "" {
		srv := web.New(cfg.Web.Addr, tracker, nil)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.Web.Addr)
	}

	gate := override.NewGate()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if client != nil {
		intake := command.NewIntake(gate, m, time.Now)
		go intake.Run(ctx, client.Commands())

		b := &beacon.Beacon{
			Bus:  client,
			Gate: gate,
			State: func() (logic.Source, bool) {
				snap := tracker.Snapshot()
				return snap.Source, snap.RawLevel
			},
			PinName:       cfg.Hardware.PinName,
			Interval:      cfg.Beacon.Interval.Std(),
			RetryInterval: cfg.Beacon.RetryInterval.Std(),
			MaxFailures:   cfg.Beacon.MaxFailures,
			Metrics:       m,
		}
		go b.Run(ctx)
	}

	dispatcher := buildDispatcher(cfg, backup, publisher, m)

	log.Printf("started: poll=%v debounce=%v broker=%s backup=%s",
		cfg.Hardware.Poll.Std(), cfg.Hardware.Debounce.Std(), cfg.Broker.URL, backup)

	ticker := time.NewTicker(cfg.Hardware.Poll.Std())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d := &daemon{
		reader:      reader,
		detector:    logic.NewDetector(cfg.Hardware.Debounce.Std()),
		gate:        gate,
		dispatcher:  dispatcher,
		tracker:     tracker,
		publisher:   publisher,
		connStatus:  connStatus,
		metrics:     m,
		levelSource: levelSource,
		now:         time.Now,
	}
	return d.runLoop(ticker.C, sigCh)
}

// buildDispatcher wires the notification channels that have configuration.
// Unconfigured channels stay nil and their steps report as skipped.
func buildDispatcher(cfg config.Config, backup logic.Source, publisher bus.Publisher, m *metrics.Metrics) *notify.Dispatcher {
	d := &notify.Dispatcher{
		Bus:          publisher,
		StationName:  cfg.Station.Name,
		PinName:      cfg.Hardware.PinName,
		BackupSource: backup,
		Metrics:      m,
	}
	if cfg.Metadata.BaseURL != "" {
		d.Lookup = airmeta.NewClient(cfg.Metadata.BaseURL, cfg.Metadata.Timeout.Std())
	}
	if cfg.Webhook.URL != "" {
		d.Primary = notify.NewWebhookSender(cfg.Webhook.URL, notify.Author{
			Name:    cfg.Webhook.AuthorName,
			URL:     cfg.Webhook.AuthorURL,
			IconURL: cfg.Webhook.AuthorIconURL,
		})
	}
	if cfg.Groups.BaseURL != "" {
		if cfg.Groups.BroadFallbackBotID != "" {
			d.BroadFallback = notify.NewBotSender(cfg.Groups.BaseURL, cfg.Groups.BroadFallbackBotID)
		}
		if cfg.Groups.SecondaryBotID != "" {
			d.Secondary = notify.NewBotSender(cfg.Groups.BaseURL, cfg.Groups.SecondaryBotID)
		}
	}
	if cfg.Email.Host != "" {
		d.Direct = &notify.SMTPSender{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		}
	}
	return d
}

// daemon holds the wired components driven by the poll loop.
type daemon struct {
	reader      gpio.Reader
	detector    *logic.Detector
	gate        *override.Gate
	dispatcher  *notify.Dispatcher
	tracker     *status.Tracker
	publisher   bus.Publisher
	connStatus  bus.ConnectionStatus
	metrics     *metrics.Metrics
	levelSource func(bool) logic.Source
	now         func() time.Time
}

// runLoop is the coordinator: it samples the pin each tick, feeds the
// debounce detector, and hands confirmed transitions to the suppression gate
// and dispatcher. It returns after publishing the shutdown event.
func (d *daemon) runLoop(tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			d.publishShutdown(signalName(s))
			return nil

		case <-tick:
			t := d.now()
			level, err := d.reader.Read()
			if err != nil {
				log.Printf("gpio read error: %v", err)
				continue
			}

			transition := d.detector.Process(logic.Input{
				Source: d.levelSource(level),
				Time:   t,
			})
			d.tracker.Update(d.detector.Current(), level, d.detector.Baselined(), d.detector.Counts())

			if transition != nil {
				d.handleTransition(*transition, level, t)
			}

			active, until := d.gate.Snapshot(t)
			d.tracker.SetOverride(active, until)
			d.metrics.SetOverrideActive(active)
			if d.connStatus != nil {
				d.tracker.SetBrokerConnected(d.connStatus.IsConnected())
			}
		}
	}
}

func (d *daemon) handleTransition(tr logic.Transition, level bool, t time.Time) {
	log.Printf("transition: %s -> %s", tr.From, tr.To)
	d.metrics.Transition(string(tr.To))

	if d.gate.Suppressed(t) {
		log.Printf("override active, suppressing notifications for %s -> %s", tr.From, tr.To)
		d.metrics.Suppressed()
		d.tracker.RecordSuppressed()
		return
	}

	outcomes := d.dispatcher.Dispatch(notify.Event{
		Timestamp: tr.Timestamp,
		From:      tr.From,
		To:        tr.To,
		RawLevel:  level,
	})
	ok, failed := notify.Tally(outcomes)
	d.tracker.AddDeliveries(ok, failed)
}

func (d *daemon) publishShutdown(reason string) {
	if d.publisher == nil {
		return
	}
	event := bus.SystemEvent{
		Timestamp: d.now(),
		Event:     "SHUTDOWN",
		Reason:    reason,
		Retained:  true,
	}
	if d.tracker != nil {
		if d.connStatus != nil {
			d.tracker.SetBrokerConnected(d.connStatus.IsConnected())
		}
		snap := d.tracker.Snapshot()
		event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", reason)
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func levelString(high bool) string {
	if high {
		return "high"
	}
	return "low"
}
