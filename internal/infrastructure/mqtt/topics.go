package mqtt

import (
	"fmt"
	"strings"
)

// Topic roots.
const (
	// DefaultTopicPrefix is the parent of every device topic.
	DefaultTopicPrefix = "twinkletaps/devices"

	// TopicPrefixSystem is the base for Core's own status topics.
	TopicPrefixSystem = "twinkletaps/system"
)

// Topics provides builders for TwinkleTaps MQTT topics.
//
//	topics := mqtt.Topics{Prefix: "twinkletaps/devices"}
//	topic := topics.Device("6f1c...")
//	// Returns: "twinkletaps/devices/6f1c..."
type Topics struct {
	// Prefix is the device topic root. Empty means DefaultTopicPrefix.
	Prefix string
}

func (t Topics) prefix() string {
	p := strings.TrimSuffix(t.Prefix, "/")
	if p == "" {
		return DefaultTopicPrefix
	}
	return p
}

// Device returns the command topic a device listens on.
//
// Example: twinkletaps/devices/6f1c0b7e-...
func (t Topics) Device(deviceUUID string) string {
	return fmt.Sprintf("%s/%s", t.prefix(), deviceUUID)
}

// SystemStatus returns Core's retained online/offline topic.
//
// Example: twinkletaps/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
