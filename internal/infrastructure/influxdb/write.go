package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementCredentialPool = "credential_pool"
	measurementTap            = "tap"
)

// RecordPoolClaim records the number of unclaimed credentials left after a
// successful claim.
func (c *Client) RecordPoolClaim(remaining int) {
	c.writePoint(poolClaimPoint(remaining, time.Now()))
}

// RecordPoolExhausted records a claim that found the pool empty.
func (c *Client) RecordPoolExhausted() {
	c.writePoint(poolExhaustedPoint(time.Now()))
}

// RecordTap records a tap command delivered to a device.
func (c *Client) RecordTap(workspaceID, deviceID string) {
	c.writePoint(tapPoint(workspaceID, deviceID, time.Now()))
}

func (c *Client) writePoint(p *write.Point) {
	if !c.IsConnected() {
		if c != nil {
			c.dropped.Add(1)
		}
		return
	}
	c.writeAPI.WritePoint(p)
}

func poolClaimPoint(remaining int, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementCredentialPool,
		map[string]string{"event": "claim"},
		map[string]any{"remaining": remaining},
		ts,
	)
}

func poolExhaustedPoint(ts time.Time) *write.Point {
	return write.NewPoint(
		measurementCredentialPool,
		map[string]string{"event": "exhausted"},
		map[string]any{"remaining": 0, "exhausted": true},
		ts,
	)
}

func tapPoint(workspaceID, deviceID string, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementTap,
		map[string]string{
			"workspace_id": workspaceID,
			"device_id":    deviceID,
		},
		map[string]any{"count": 1},
		ts,
	)
}
