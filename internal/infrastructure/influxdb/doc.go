// Package influxdb mirrors dashboard sensor readings into InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes and health checks. The in-memory
// stores remain the source of truth for the dashboard; the mirror only keeps
// long-term history.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // mirror switched off
//	}
//	defer client.Close()
//
//	client.WriteSensorReading("sensor/lab/temp", "C", "Lab", 21.5, time.Now())
//
// # Error Handling
//
// Write failures surface asynchronously through SetOnError. Connection and
// health check errors are returned directly.
package influxdb
