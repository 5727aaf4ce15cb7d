package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	// Callers treat it as "no mirror", not as a failure.
	ErrDisabled = errors.New("influxdb: mirror disabled")

	// ErrConnectionFailed wraps the ping error when the server is unreachable
	// or reports itself unhealthy at startup.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected is returned by HealthCheck after Close.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrWriteFailed wraps asynchronous batch write errors handed to the
	// SetOnError callback. Sensor writes themselves never return an error.
	ErrWriteFailed = errors.New("influxdb: write failed")
)
