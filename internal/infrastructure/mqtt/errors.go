package mqtt

import "errors"

// Domain-specific errors for MQTT operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when attempting operations on a disconnected client.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned when a connection attempt fails.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed is returned when a publish operation fails.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrPublishTimeout is returned when the broker does not acknowledge a
	// publish within the publish timeout.
	ErrPublishTimeout = errors.New("mqtt: publish timed out")

	// ErrInvalidTopic is returned when an empty or invalid topic is provided.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("mqtt: operation timed out")

	// ErrClosed is returned when publishing on a closed client.
	ErrClosed = errors.New("mqtt: client closed")
)

// IsDeliveryError reports whether err is a broker-side delivery failure,
// as opposed to a caller mistake.
func IsDeliveryError(err error) bool {
	return errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrPublishFailed) ||
		errors.Is(err, ErrPublishTimeout) ||
		errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrClosed)
}
