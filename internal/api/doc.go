// Package api implements the dashboard's HTTP REST API and WebSocket relay.
//
// This package provides:
//   - REST endpoints for the aggregate state (sensors, agent activity,
//     repository feed, containers) and the broker connection status
//   - Pass-through endpoints to the context API (repos, active context, agents)
//   - A WebSocket relay: clients subscribe to topic patterns and receive
//     matching events live, plus connection status changes
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The server reads from the telemetry stores and registers one bus
// subscription per WebSocket client pattern, so browser clients share the
// broker subscriptions the dashboard already holds:
//
//	Broker → mqtt.Manager → bus.Dispatcher → telemetry stores → REST
//	                                       → WebSocket clients
//
// # Graceful Degradation
//
// The server runs without a broker connection (REST returns the last known
// state and /status reports the connection state) and without the context
// API (its endpoints answer 503).
package api
