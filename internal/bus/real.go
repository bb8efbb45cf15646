package bus

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// ErrDisconnected is returned when a publish could not be attempted because
// the broker is unreachable. Transition payloads are buffered for replay.
var ErrDisconnected = errors.New("bus: broker disconnected")

// replayCapacity bounds how many transition messages are held across a
// broker outage.
const replayCapacity = 64

// RealClient talks to an actual MQTT broker.
type RealClient struct {
	client paho.Client
	topics Topics

	mu     sync.Mutex
	replay *ringBuffer

	commands chan []byte
}

// NewRealClient connects to the broker, subscribes to the command topic, and
// returns a client ready to publish. Reconnects are automatic; on reconnect
// the command subscription is restored and buffered transitions are replayed.
func NewRealClient(broker, clientID string, topics Topics) (*RealClient, error) {
	c := &RealClient{
		topics:   topics,
		replay:   newRingBuffer(replayCapacity),
		commands: make(chan []byte, 16),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("bus: connection lost: %v", err)
		})

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return c, nil
}

// onConnect runs on every (re)connect: restore the command subscription and
// replay any transitions buffered during the outage.
func (c *RealClient) onConnect(client paho.Client) {
	if c.topics.Commands != "" {
		token := client.Subscribe(c.topics.Commands, 1, c.onCommand)
		if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
			log.Printf("bus: subscribe %s: %v", c.topics.Commands, token.Error())
		} else {
			log.Printf("bus: subscribed to %s", c.topics.Commands)
		}
	}

	c.mu.Lock()
	pending := c.replay.drainAll()
	c.mu.Unlock()
	if len(pending) == 0 {
		return
	}
	log.Printf("bus: replaying %d buffered message(s)", len(pending))
	for _, m := range pending {
		if err := c.publish(m.topic, m.qos, m.retained, m.payload); err != nil {
			log.Printf("bus: replay publish failed: %v", err)
		}
	}
}

func (c *RealClient) onCommand(_ paho.Client, msg paho.Message) {
	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())
	select {
	case c.commands <- payload:
	default:
		log.Printf("bus: command channel full, dropping message")
	}
}

// Commands returns the channel of raw inbound command payloads.
func (c *RealClient) Commands() <-chan []byte {
	return c.commands
}

func (c *RealClient) publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishTransition sends a confirmed source change at QoS 1. If the broker
// is unreachable the payload is buffered and replayed on reconnect; the call
// still reports an error so the dispatch outcome reflects reality.
func (c *RealClient) PublishTransition(p TransitionPayload) error {
	payload, err := FormatTransition(p)
	if err != nil {
		return fmt.Errorf("format transition: %w", err)
	}

	if !c.client.IsConnected() {
		c.buffer(c.topics.Notifications, 1, false, payload)
		return ErrDisconnected
	}
	if err := c.publish(c.topics.Notifications, 1, false, payload); err != nil {
		c.buffer(c.topics.Notifications, 1, false, payload)
		return err
	}
	return nil
}

// PublishHealth sends a liveness ping at QoS 0. Health pings are not
// buffered: a stale ping is worthless, the next tick sends a fresh one.
func (c *RealClient) PublishHealth(p HealthPayload) error {
	payload, err := FormatHealth(p)
	if err != nil {
		return fmt.Errorf("format health: %w", err)
	}
	if !c.client.IsConnected() {
		return ErrDisconnected
	}
	return c.publish(c.topics.Healthcheck, 0, false, payload)
}

// PublishSystem sends a lifecycle event, retained at QoS 1 when requested so
// a late subscriber sees the daemon's last known state.
func (c *RealClient) PublishSystem(ev SystemEvent) error {
	payload, err := FormatSystemEvent(ev)
	if err != nil {
		return fmt.Errorf("format system event: %w", err)
	}
	if !c.client.IsConnected() {
		return ErrDisconnected
	}
	return c.publish(c.topics.Healthcheck, 1, ev.Retained, payload)
}

func (c *RealClient) buffer(topic string, qos byte, retained bool, payload []byte) {
	c.mu.Lock()
	c.replay.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
	n := c.replay.len()
	c.mu.Unlock()
	log.Printf("bus: buffered message for replay (%d pending)", n)
}

// IsConnected reports whether the broker connection is active.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
