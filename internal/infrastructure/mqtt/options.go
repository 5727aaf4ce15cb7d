package mqtt

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/catalyst-dashboard/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for one connection attempt.
	defaultConnectTimeout = 30 * time.Second

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// minReconnectInterval is the floor for the fixed retry interval.
	minReconnectInterval = time.Second

	// defaultOperationTimeout bounds a subscribe or unsubscribe acknowledgment.
	defaultOperationTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 250 // milliseconds

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12

	// clientIDPrefix is prepended to generated client IDs.
	clientIDPrefix = "catalyst-dashboard-"
)

// Options configures the broker connection.
type Options struct {
	// BrokerURL is the broker address, e.g. ws://localhost:30002.
	// Supported schemes: ws, wss, tcp, ssl, tls, mqtt, mqtts.
	BrokerURL string

	// ClientID identifies this session. Generated when empty.
	ClientID string

	// QoS is the subscription QoS (0, 1 or 2).
	QoS byte

	KeepAlive         time.Duration
	ConnectTimeout    time.Duration
	ReconnectInterval time.Duration
}

// OptionsFromConfig converts broker configuration to connection options.
func OptionsFromConfig(cfg config.BrokerConfig) Options {
	return Options{
		BrokerURL:         cfg.URL,
		ClientID:          cfg.ClientID,
		QoS:               byte(cfg.QoS), //nolint:gosec // validated by config.Validate
		KeepAlive:         time.Duration(cfg.KeepAlive) * time.Second,
		ConnectTimeout:    time.Duration(cfg.ConnectTimeout) * time.Second,
		ReconnectInterval: time.Duration(cfg.ReconnectInterval) * time.Second,
	}
}

// withDefaults fills zero values and enforces the retry floor.
func (o Options) withDefaults() Options {
	if o.ClientID == "" {
		o.ClientID = clientIDPrefix + uuid.NewString()[:8]
	}
	if o.KeepAlive <= 0 {
		o.KeepAlive = defaultKeepAlive
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.ReconnectInterval < minReconnectInterval {
		o.ReconnectInterval = minReconnectInterval
	}
	return o
}

// validate checks the fields Paho cannot recover from.
func (o Options) validate() error {
	if o.QoS > maxQoS {
		return ErrInvalidQoS
	}
	u, err := url.Parse(o.BrokerURL)
	if err != nil {
		return fmt.Errorf("%w: parsing broker url: %w", ErrConnectionFailed, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "ws", "wss", "tcp", "ssl", "tls", "mqtt", "mqtts":
	default:
		return fmt.Errorf("%w: unsupported broker scheme %q", ErrConnectionFailed, u.Scheme)
	}
	return nil
}

// isSecure reports whether the broker URL requires TLS.
func (o Options) isSecure() bool {
	scheme, _, _ := strings.Cut(o.BrokerURL, "://")
	switch strings.ToLower(scheme) {
	case "wss", "ssl", "tls", "mqtts":
		return true
	}
	return false
}

// buildClientOptions creates paho options for one connection attempt.
//
// Reconnection is owned by the Manager, so Paho's own auto-reconnect and
// connect-retry are disabled. Every message is routed through the default
// publish handler in arrival order; subscriptions never register per-topic
// callbacks.
func buildClientOptions(o Options, h Handlers) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(o.BrokerURL)
	opts.SetClientID(o.ClientID)

	// Clean session: nothing survives a reconnect broker-side, the manager
	// replays subscriptions itself.
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(o.ConnectTimeout)
	opts.SetKeepAlive(o.KeepAlive)
	opts.SetOrderMatters(true)

	if o.isSecure() {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tlsMinVersion,
		})
	}

	opts.SetDefaultPublishHandler(func(_ pahomqtt.Client, msg pahomqtt.Message) {
		if h.OnMessage != nil {
			h.OnMessage(msg.Topic(), msg.Payload())
		}
	})

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		if h.OnConnectionLost != nil {
			h.OnConnectionLost(err)
		}
	})

	return opts
}
