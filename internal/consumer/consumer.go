// Package consumer maintains the MQTT connection to the telemetry bus and
// drives every inbound message through normalize, store, and hub fan-out.
package consumer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"rectmon/internal/models"
	"rectmon/internal/normalize"
)

// Connection states.
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateSubscribed   = "subscribed"
)

// Connection events.
const (
	eventConnect     = "connect"
	eventEstablished = "established"
	eventLost        = "lost"
)

const (
	minBackoff     = 1 * time.Second
	maxBackoff     = 30 * time.Second
	inboundBuffer  = 256
	insertTimeout  = 10 * time.Second
	disconnectWait = 250 // milliseconds, paho quiesce window
)

// Store persists normalized readings.
type Store interface {
	Insert(ctx context.Context, rec *models.ReadingRecord) error
}

// Publisher fans a reading summary out to live subscribers.
type Publisher interface {
	Publish(summary models.ReadingSummary)
}

// LatestCache caches the most recent summary for the read API. Optional.
type LatestCache interface {
	Save(ctx context.Context, summary models.ReadingSummary) error
}

// Options configures the bus connection.
type Options struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// Consumer is the single logical bus consumer of the process. Exactly one
// message is processed at a time, so storage insertion order matches bus
// arrival order. Start and Stop are idempotent.
type Consumer struct {
	opts   Options
	store  Store
	hub    Publisher
	cache  LatestCache
	logger *zap.Logger

	machine *fsm.FSM

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	client   mqtt.Client
	inbound  chan []byte
	connLost chan error

	// test seam for the paho client
	newClient func(opts *mqtt.ClientOptions) mqtt.Client
}

// New builds a consumer. cache may be nil.
func New(opts Options, store Store, hub Publisher, cache LatestCache, logger *zap.Logger) *Consumer {
	c := &Consumer{
		opts:      opts,
		store:     store,
		hub:       hub,
		cache:     cache,
		logger:    logger,
		inbound:   make(chan []byte, inboundBuffer),
		connLost:  make(chan error, 1),
		newClient: mqtt.NewClient,
	}

	c.machine = fsm.NewFSM(
		StateDisconnected,
		fsm.Events{
			{Name: eventConnect, Src: []string{StateDisconnected}, Dst: StateConnecting},
			{Name: eventEstablished, Src: []string{StateConnecting}, Dst: StateSubscribed},
			{Name: eventLost, Src: []string{StateConnecting, StateSubscribed}, Dst: StateDisconnected},
		},
		fsm.Callbacks{
			"after_event": func(_ context.Context, e *fsm.Event) {
				if e.Src != e.Dst {
					logger.Info("bus connection state changed",
						zap.String("from", e.Src),
						zap.String("to", e.Dst),
					)
				}
			},
		},
	)

	return c
}

// State returns the current connection state.
func (c *Consumer) State() string {
	return c.machine.Current()
}

// Start launches the connection and processing loops. Calling Start while
// the consumer is already running is a no-op.
func (c *Consumer) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.logger.Debug("bus consumer already running, ignoring start")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.connectionLoop(runCtx)
	}()
	go func() {
		defer c.wg.Done()
		c.processLoop(runCtx)
	}()

	c.logger.Info("bus consumer started",
		zap.String("broker", c.opts.Broker),
		zap.String("topic", c.opts.Topic),
	)
}

// Stop disconnects from the bus and terminates both loops. Double-stop is a
// no-op.
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	c.cancel()
	c.wg.Wait()
	c.running = false
	c.logger.Info("bus consumer stopped")
}

// connectionLoop runs the connect/subscribe/reconnect state machine with
// bounded exponential backoff.
func (c *Consumer) connectionLoop(ctx context.Context) {
	backoff := minBackoff

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// A lost event left behind by a previous client must not poison the
		// next connection.
		select {
		case <-c.connLost:
		default:
		}

		c.transition(eventConnect)

		client, err := c.connect(ctx)
		if err != nil {
			c.logger.Warn("bus connection failed", zap.Error(err))
			c.transition(eventLost)
			if !c.sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		c.client = client
		c.transition(eventEstablished)
		backoff = minBackoff

		select {
		case <-ctx.Done():
			client.Disconnect(disconnectWait)
			c.transition(eventLost)
			return
		case err := <-c.connLost:
			c.logger.Warn("bus connection lost", zap.Error(err))
			client.Disconnect(disconnectWait)
			c.transition(eventLost)
			if !c.sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
		}
	}
}

// connect dials the broker and subscribes to the telemetry topic. Message
// delivery begins only once the subscription is acknowledged.
func (c *Consumer) connect(ctx context.Context) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.opts.Broker)
	opts.SetClientID(c.opts.ClientID)
	if c.opts.Username != "" {
		opts.SetUsername(c.opts.Username)
	}
	if c.opts.Password != "" {
		opts.SetPassword(c.opts.Password)
	}
	// Reconnection is owned by connectionLoop, not by paho.
	opts.SetAutoReconnect(false)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		select {
		case c.connLost <- err:
		default:
		}
	})

	client := c.newClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		c.enqueue(ctx, msg.Payload())
	}
	if token := client.Subscribe(c.opts.Topic, c.opts.QoS, handler); token.Wait() && token.Error() != nil {
		client.Disconnect(disconnectWait)
		return nil, token.Error()
	}

	return client, nil
}

// enqueue hands a payload to the processing loop, blocking so bus arrival
// order is preserved.
func (c *Consumer) enqueue(ctx context.Context, payload []byte) {
	buf := make([]byte, len(payload))
	copy(buf, payload)

	select {
	case c.inbound <- buf:
	case <-ctx.Done():
	}
}

// processLoop drains inbound messages one at a time.
func (c *Consumer) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-c.inbound:
			c.handleMessage(ctx, payload)
		}
	}
}

// handleMessage drives one payload through decode, normalize, store, cache,
// and hub fan-out. Every stage's failure is contained: the message is skipped
// and the loop continues. A hub or cache failure never un-persists the row.
func (c *Consumer) handleMessage(ctx context.Context, payload []byte) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		c.logger.Error("dropping undecodable payload", zap.Error(err))
		return
	}

	rec, issues := normalize.Normalize(raw)
	for _, issue := range issues {
		c.logger.Warn("payload field defaulted",
			zap.String("field", issue.Field),
			zap.String("reason", issue.Reason),
		)
	}

	insertCtx, cancel := context.WithTimeout(ctx, insertTimeout)
	defer cancel()
	if err := c.store.Insert(insertCtx, rec); err != nil {
		c.logger.Error("failed to store reading",
			zap.String("site_name", rec.SiteName),
			zap.Error(err),
		)
		return
	}

	summary := rec.Summary()

	if c.cache != nil {
		if err := c.cache.Save(ctx, summary); err != nil {
			c.logger.Warn("failed to cache latest reading", zap.Error(err))
		}
	}

	c.hub.Publish(summary)

	c.logger.Debug("reading processed",
		zap.Int64("id", rec.ID),
		zap.String("site_name", rec.SiteName),
	)
}

func (c *Consumer) transition(event string) {
	if err := c.machine.Event(context.Background(), event); err != nil {
		c.logger.Debug("state transition rejected",
			zap.String("event", event),
			zap.String("state", c.machine.Current()),
			zap.Error(err),
		)
	}
}

// sleep waits for the backoff period, returning false when the context ends.
func (c *Consumer) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
