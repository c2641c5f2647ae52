// Package mqtt provides the MQTT publisher for TwinkleTaps Core.
//
// This package manages:
//   - Lazy connection to the broker on first publish, with auto-reconnect
//     once a connection has been established
//   - Tap command publishing at the configured QoS (default 1)
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Core never subscribes. It publishes tap commands to per-device topics;
// each device authenticates to the broker with the credential it was
// registered with and listens on its own topic.
//
//	TwinkleTaps Core → MQTT Broker → Device (twinkletaps/devices/<uuid>)
//
// # Timeouts
//
// Every publish is bounded by the publish timeout (10s by default), which
// includes a connect attempt bounded by the connect timeout (5s by
// default). The caller's context can shorten both.
//
// # Usage
//
//	client := mqtt.New(cfg.MQTT)
//	defer client.Close()
//
//	topic := mqtt.Topics{Prefix: cfg.MQTT.TopicPrefix}.Device(deviceUUID)
//	err := client.Publish(ctx, topic, []byte(`{"sequence":"1010"}`))
//	if errors.Is(err, mqtt.ErrPublishTimeout) {
//	    // broker too slow
//	}
package mqtt
