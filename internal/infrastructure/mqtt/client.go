package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang as a context-aware publisher.
//
// The broker connection is opened lazily by the first Publish (or
// explicitly by Connect) and re-established automatically after a drop.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Concurrent publishes on a disconnected client share one connect attempt.
type Client struct {
	client         pahomqtt.Client
	cfg            config.MQTTConfig
	qos            byte
	connectTimeout time.Duration
	publishTimeout time.Duration

	// connectMu serialises connect attempts.
	connectMu sync.Mutex

	// connected tracks current connection state.
	connected bool
	closed    bool
	connMu    sync.RWMutex

	// Callbacks for connection events (optional, set via SetOnConnect/SetOnDisconnect).
	onConnect    func()
	onDisconnect func(err error)
	callbackMu   sync.RWMutex
}

// New creates a client without touching the network.
func New(cfg config.MQTTConfig) *Client {
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	connectTimeout, publishTimeout := timeouts(cfg)
	c := &Client{
		cfg:            cfg,
		qos:            tapQoS(cfg),
		connectTimeout: connectTimeout,
		publishTimeout: publishTimeout,
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	c.client = pahomqtt.NewClient(opts)
	return c
}

// Connect creates a client and connects it, bounded by ctx and the
// connect timeout.
func Connect(ctx context.Context, cfg config.MQTTConfig) (*Client, error) {
	c := New(cfg)
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// ensureConnected connects unless already connected.
func (c *Client) ensureConnected(ctx context.Context) error {
	if c.IsConnected() {
		return nil
	}

	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}
	if c.IsConnected() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	if err := waitToken(ctx, c.client.Connect()); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnectHandler runs asynchronously and may not have executed
	// yet, so the state is set here as well.
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()
	return nil
}

// Publish sends payload to topic at the configured QoS and waits for the broker's
// acknowledgement. The whole operation, including a connect attempt, is
// bounded by the publish timeout and by ctx.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	ctx, cancel := context.WithTimeout(ctx, c.publishTimeout)
	defer cancel()

	if err := c.ensureConnected(ctx); err != nil {
		return err
	}

	token := c.client.Publish(topic, c.qos, false, payload)
	if err := waitToken(ctx, token); err != nil {
		if errors.Is(err, ErrTimeout) {
			return fmt.Errorf("%w: no acknowledgement within %v", ErrPublishTimeout, c.publishTimeout)
		}
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// waitToken waits for a paho token or for ctx, whichever finishes first.
// A deadline maps to ErrTimeout; cancellation returns ctx.Err().
func waitToken(ctx context.Context, token pahomqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// handleConnect is called when the connection is established.
func (c *Client) handleConnect() {
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	c.client.Publish(Topics{}.SystemStatus(), statusQoS, true, buildStatusPayload(c.cfg.Broker.ClientID, "online", ""))

	c.callbackMu.RLock()
	callback := c.onConnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

// handleDisconnect is called when the connection is lost.
func (c *Client) handleDisconnect(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	c.callbackMu.RLock()
	callback := c.onDisconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// Close publishes a graceful offline status and disconnects. Publishing on
// a closed client fails with ErrClosed.
func (c *Client) Close() error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	c.connMu.Lock()
	wasConnected := c.connected && c.client.IsConnected()
	c.closed = true
	c.connMu.Unlock()

	if wasConnected {
		token := c.client.Publish(Topics{}.SystemStatus(), statusQoS, true,
			buildStatusPayload(c.cfg.Broker.ClientID, "offline", "graceful_shutdown"))
		token.WaitTimeout(c.connectTimeout)
		c.client.Disconnect(defaultDisconnectQuiesce)
	}

	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()
	return nil
}

// HealthCheck reports whether the broker connection is up. A client that
// has not published yet is not connected.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client.IsConnected()
}

func (c *Client) isClosed() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.closed
}

// SetOnConnect sets a callback to be invoked when connection is established.
// This is called on initial connect and on every reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets a callback to be invoked when connection is lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}
