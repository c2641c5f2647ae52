package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
// Broker tests need a running Mosquitto at 127.0.0.1:1883 and skip otherwise.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "twinkletaps-test",
		},
		QoS:            1,
		TopicPrefix:    DefaultTopicPrefix,
		ConnectTimeout: 1,
		PublishTimeout: 2,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// skipIfNoBroker skips the test if nothing listens on the broker port.
func skipIfNoBroker(t *testing.T) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", "127.0.0.1:1883", 500*time.Millisecond)
	if err != nil {
		t.Skip("MQTT broker not available, skipping integration test")
	}
	conn.Close()
}

// unusedPort returns a local port with no listener.
func unusedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserving port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

// =============================================================================
// Option and Topic Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "core"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want tcp://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "twinkletaps-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "core" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q, want core/secret", opts.Username, opts.Password)
	}
	if opts.ConnectRetry {
		t.Error("ConnectRetry should be off so a failed connect reports back")
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect should be on")
	}
	if opts.ConnectTimeout != time.Second {
		t.Errorf("ConnectTimeout = %v, want 1s", opts.ConnectTimeout)
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg)

	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLSConfig should enforce the minimum TLS version")
	}
}

func TestTimeouts_Defaults(t *testing.T) {
	connect, publish := timeouts(config.MQTTConfig{})
	if connect != 5*time.Second || publish != 10*time.Second {
		t.Errorf("timeouts() = %v/%v, want 5s/10s", connect, publish)
	}
}

func TestTapQoS(t *testing.T) {
	tests := []struct {
		configured int
		want       byte
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{-1, defaultTapQoS},
		{3, defaultTapQoS},
	}
	for _, tt := range tests {
		cfg := testConfig()
		cfg.QoS = tt.configured
		if got := tapQoS(cfg); got != tt.want {
			t.Errorf("tapQoS(%d) = %d, want %d", tt.configured, got, tt.want)
		}
		if got := New(cfg).qos; got != tt.want {
			t.Errorf("New() with QoS %d publishes at %d, want %d", tt.configured, got, tt.want)
		}
	}
}

func TestTopics(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"device", Topics{Prefix: "twinkletaps/devices"}.Device("abc"), "twinkletaps/devices/abc"},
		{"trailing slash", Topics{Prefix: "custom/"}.Device("abc"), "custom/abc"},
		{"empty prefix", Topics{}.Device("abc"), "twinkletaps/devices/abc"},
		{"status", Topics{}.SystemStatus(), "twinkletaps/system/status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestBuildStatusPayload(t *testing.T) {
	var msg map[string]string
	if err := json.Unmarshal([]byte(buildStatusPayload("core-1", "offline", "graceful_shutdown")), &msg); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if msg["status"] != "offline" || msg["reason"] != "graceful_shutdown" || msg["client_id"] != "core-1" {
		t.Errorf("payload = %v", msg)
	}

	if strings.Contains(buildStatusPayload("core-1", "online", ""), "reason") {
		t.Error("online payload should omit reason")
	}
}

// =============================================================================
// Publish Tests (no broker)
// =============================================================================

func TestPublish_Validation(t *testing.T) {
	c := New(testConfig())
	defer c.Close()

	if err := c.Publish(context.Background(), "", []byte("x")); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish(empty topic) error = %v, want ErrInvalidTopic", err)
	}

	big := make([]byte, maxPayloadSize+1)
	if err := c.Publish(context.Background(), "t", big); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish(oversized) error = %v, want ErrPublishFailed", err)
	}
}

func TestPublish_UnreachableBroker(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = unusedPort(t)
	c := New(cfg)
	defer c.Close()

	start := time.Now()
	err := c.Publish(context.Background(), Topics{}.Device("abc"), []byte(`{"sequence":"1"}`))
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Publish() error = %v, want ErrConnectionFailed", err)
	}
	if !IsDeliveryError(err) {
		t.Error("IsDeliveryError() = false, want true")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Publish() took %v, want bounded by the publish timeout", elapsed)
	}
}

func TestPublish_CancelledContext(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = unusedPort(t)
	c := New(cfg)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Publish(ctx, "t", []byte("x")); err == nil {
		t.Fatal("Publish() with cancelled context should fail")
	}
}

func TestPublish_AfterClose(t *testing.T) {
	c := New(testConfig())
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := c.Publish(context.Background(), "t", []byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish() after Close error = %v, want ErrClosed", err)
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	c := New(testConfig())
	defer c.Close()

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestIsDeliveryError(t *testing.T) {
	if IsDeliveryError(ErrInvalidTopic) {
		t.Error("ErrInvalidTopic is a caller error")
	}
	if !IsDeliveryError(errors.Join(errors.New("ctx"), ErrPublishTimeout)) {
		t.Error("wrapped ErrPublishTimeout should be a delivery error")
	}
}

// =============================================================================
// Broker Tests
// =============================================================================

func TestConnect(t *testing.T) {
	skipIfNoBroker(t)

	c, err := Connect(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	if !c.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestPublish_LazyConnect(t *testing.T) {
	skipIfNoBroker(t)

	c := New(testConfig())
	defer c.Close()

	if c.IsConnected() {
		t.Fatal("New() should not connect")
	}
	if err := c.Publish(context.Background(), Topics{}.Device("test-device"), []byte(`{"sequence":"10"}`)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !c.IsConnected() {
		t.Error("Publish() should leave the client connected")
	}
}

func TestClose_Callbacks(t *testing.T) {
	skipIfNoBroker(t)

	connected := make(chan struct{}, 1)
	c := New(testConfig())
	c.SetOnConnect(func() {
		select {
		case connected <- struct{}{}:
		default:
		}
	})
	if err := c.ensureConnected(context.Background()); err != nil {
		t.Fatalf("ensureConnected() error = %v", err)
	}

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Error("OnConnect callback not invoked")
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}
