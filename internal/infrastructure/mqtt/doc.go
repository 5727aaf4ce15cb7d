// Package mqtt manages the dashboard's broker connection.
//
// This package manages:
//   - A single broker connection over WebSocket (or TCP) using paho.mqtt.golang
//   - Fixed-interval reconnection, retried until Close
//   - Replaying active subscriptions after every (re)connect
//   - Connection state tracking and change notifications
//
// # Architecture
//
// The Manager owns one loop goroutine and is the only code that talks to the
// live connection. Subscribe and Unsubscribe only queue a request, so they are
// safe to call from inside message handlers:
//
//	Broker ↔ Conn ↔ Manager loop → MessageHandler (bus.Dispatcher)
//	                    ↑
//	         Subscribe/Unsubscribe (bus.Registry)
//
// Every connection gets a generation number. When a connection is replaced,
// anything still arriving from the old one is discarded.
//
// # Delivery
//
// Messages are delivered at most once per connection, in arrival order. A
// clean session is used: nothing is queued broker-side while disconnected.
//
// # Usage
//
//	manager := mqtt.New(mqtt.OptionsFromConfig(cfg.Broker))
//	manager.SetPatternSource(registry)
//	manager.SetMessageHandler(dispatcher.OnMessage)
//	if err := manager.Open(ctx); err != nil {
//	    return err
//	}
//	defer manager.Close()
package mqtt
