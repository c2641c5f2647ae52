// Package influxdb records TwinkleTaps operational metrics in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes and health monitoring.
//
// # Measurements
//
//   - credential_pool: remaining unclaimed broker credentials after each
//     claim (event=claim) and pool exhaustion (event=exhausted)
//   - tap: one point per delivered tap command, tagged by workspace and device
//
// The Client satisfies credential.Recorder and device.Recorder.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // metrics off
//	}
//	defer client.Close()
//
//	pool.SetRecorder(client)
package influxdb
