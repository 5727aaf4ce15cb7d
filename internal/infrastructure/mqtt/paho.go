package mqtt

import (
	"context"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// PahoDialer opens broker connections with paho.mqtt.golang.
type PahoDialer struct {
	opts Options
}

// NewPahoDialer creates a dialer for opts.
func NewPahoDialer(opts Options) *PahoDialer {
	return &PahoDialer{opts: opts.withDefaults()}
}

// Dial connects once. It returns when the broker acknowledges the connection,
// the connect timeout elapses, or ctx is cancelled.
func (d *PahoDialer) Dial(ctx context.Context, h Handlers) (Conn, error) {
	if err := d.opts.validate(); err != nil {
		return nil, err
	}

	client := pahomqtt.NewClient(buildClientOptions(d.opts, h))
	token := client.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		client.Disconnect(0)
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, ctx.Err())
	case <-time.After(d.opts.ConnectTimeout):
		client.Disconnect(0)
		return nil, fmt.Errorf("%w: %w after %v", ErrConnectionFailed, ErrTimeout, d.opts.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return &pahoConn{
		client:  client,
		qos:     d.opts.QoS,
		timeout: defaultOperationTimeout,
	}, nil
}

// pahoConn is one live Paho session.
type pahoConn struct {
	client  pahomqtt.Client
	qos     byte
	timeout time.Duration
}

// Subscribe registers pattern at the broker and waits for the SUBACK.
// A nil callback routes matching messages to the default publish handler.
func (c *pahoConn) Subscribe(pattern string) error {
	token := c.client.Subscribe(pattern, c.qos, nil)
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("%w: %s: %w after %v", ErrSubscribeFailed, pattern, ErrTimeout, c.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, pattern, err)
	}
	return nil
}

// Unsubscribe releases pattern at the broker.
func (c *pahoConn) Unsubscribe(pattern string) error {
	token := c.client.Unsubscribe(pattern)
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("%w: %s: %w after %v", ErrUnsubscribeFailed, pattern, ErrTimeout, c.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnsubscribeFailed, pattern, err)
	}
	return nil
}

// Close disconnects. The connection-lost handler is not invoked.
func (c *pahoConn) Close() {
	c.client.Disconnect(defaultDisconnectQuiesce)
}

// New creates a Manager that connects with Paho.
func New(opts Options) *Manager {
	opts = opts.withDefaults()
	return NewManager(NewPahoDialer(opts), opts)
}
