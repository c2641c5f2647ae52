package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout bounds a connect attempt when config leaves it unset.
	defaultConnectTimeout = 5 * time.Second

	// defaultPublishTimeout bounds a whole publish when config leaves it unset.
	defaultPublishTimeout = 10 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// defaultTapQoS is used when the configured QoS is out of range.
	defaultTapQoS = 1

	// statusQoS is used for the retained status and LWT messages.
	statusQoS = 1

	// maxPayloadSize caps a single message.
	maxPayloadSize = 1 << 20 // 1MB

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// timeouts resolves the configured connect and publish timeouts.
func timeouts(cfg config.MQTTConfig) (connect, publish time.Duration) {
	connect = cfg.GetConnectTimeout()
	if connect <= 0 {
		connect = defaultConnectTimeout
	}
	publish = cfg.GetPublishTimeout()
	if publish <= 0 {
		publish = defaultPublishTimeout
	}
	return connect, publish
}

// tapQoS resolves the delivery guarantee for tap commands.
func tapQoS(cfg config.MQTTConfig) byte {
	if cfg.QoS < 0 || cfg.QoS > 2 {
		return defaultTapQoS
	}
	return byte(cfg.QoS)
}

// buildClientOptions creates paho MQTT options from config.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on TLS setting)
//   - Client ID for identification
//   - Authentication credentials (if provided)
//   - Auto-reconnect after the first successful connection
//   - TLS configuration (if enabled)
//   - Clean session mode
//
// Connect retry is off: a failed connect reports back to the publish that
// triggered it instead of retrying in the background past its timeout.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))

	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	if cfg.Reconnect.MaxDelay > 0 {
		opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)
	}

	connectTimeout, _ := timeouts(cfg)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tlsMinVersion,
		})
	}

	return opts
}

// configureLWT sets up Last Will and Testament for offline detection.
//
// Topic: twinkletaps/system/status
// QoS: 1, retained
func configureLWT(opts *pahomqtt.ClientOptions, clientID string) {
	opts.SetWill(Topics{}.SystemStatus(), buildStatusPayload(clientID, "offline", "unexpected_disconnect"), statusQoS, true)
}

// buildStatusPayload creates the JSON payload for status messages.
// reason may be empty.
func buildStatusPayload(clientID, status, reason string) string {
	ts := time.Now().UTC().Format(time.RFC3339)
	if reason == "" {
		return fmt.Sprintf(`{"status":%q,"client_id":%q,"timestamp":%q}`, status, clientID, ts)
	}
	return fmt.Sprintf(`{"status":%q,"client_id":%q,"reason":%q,"timestamp":%q}`, status, clientID, reason, ts)
}
