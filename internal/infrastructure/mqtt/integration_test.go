//go:build integration

package mqtt

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Integration tests against a real broker.
//
// Run with:
//   CATALYST_TEST_BROKER_URL=ws://127.0.0.1:30002 go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationBrokerURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("CATALYST_TEST_BROKER_URL")
	if url == "" {
		url = "tcp://127.0.0.1:1883"
	}
	return url
}

// publishOnce sends one message with a throwaway Paho client.
func publishOnce(t *testing.T, brokerURL, topic, payload string) {
	t.Helper()
	opts := pahomqtt.NewClientOptions().AddBroker(brokerURL).SetClientID("catalyst-int-pub")
	client := pahomqtt.NewClient(opts)
	if token := client.Connect(); !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Skipf("broker not reachable at %s: %v", brokerURL, token.Error())
	}
	defer client.Disconnect(100)

	token := client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		t.Fatal("publish timed out")
	}
	if err := token.Error(); err != nil {
		t.Fatalf("publish error = %v", err)
	}
}

func TestIntegration_ManagerReceivesReplayedPattern(t *testing.T) {
	brokerURL := integrationBrokerURL(t)
	m := New(Options{BrokerURL: brokerURL, ClientID: "catalyst-int-sub"})
	m.SetPatternSource(staticSource{"sensor/+/+"})

	received := make(chan string, 1)
	var once sync.Once
	m.SetMessageHandler(func(topic string, payload []byte) {
		once.Do(func() { received <- topic + "=" + string(payload) })
	})

	if err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.WaitConnected(ctx); err != nil {
		t.Skipf("broker not reachable at %s: %v", brokerURL, err)
	}

	// Give the replayed SUBSCRIBE time to be acknowledged.
	time.Sleep(200 * time.Millisecond)
	publishOnce(t, brokerURL, "sensor/int/test", `{"type":"sensor.int.test","data":{"value":1}}`)

	select {
	case msg := <-received:
		want := `sensor/int/test={"type":"sensor.int.test","data":{"value":1}}`
		if msg != want {
			t.Errorf("received %q, want %q", msg, want)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for message")
	}
}
