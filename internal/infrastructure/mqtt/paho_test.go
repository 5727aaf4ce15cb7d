package mqtt

import (
	"errors"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// stalledToken never completes.
type stalledToken struct{}

func (stalledToken) Wait() bool { return false }
func (stalledToken) WaitTimeout(time.Duration) bool { return false }
func (stalledToken) Done() <-chan struct{} { return make(chan struct{}) }
func (stalledToken) Error() error { return nil }

// stalledClient acknowledges nothing. Only the methods pahoConn calls are
// implemented.
type stalledClient struct {
	pahomqtt.Client
}

func (stalledClient) Subscribe(string, byte, pahomqtt.MessageHandler) pahomqtt.Token {
	return stalledToken{}
}

func (stalledClient) Unsubscribe(...string) pahomqtt.Token {
	return stalledToken{}
}

func TestPahoConnTimeouts(t *testing.T) {
	conn := &pahoConn{client: stalledClient{}, qos: 1, timeout: time.Millisecond}

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{"subscribe", func() error { return conn.Subscribe("sensor/+/+") }, ErrSubscribeFailed},
		{"unsubscribe", func() error { return conn.Unsubscribe("sensor/+/+") }, ErrUnsubscribeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrTimeout) {
				t.Errorf("error = %v, want ErrTimeout", err)
			}
		})
	}
}
