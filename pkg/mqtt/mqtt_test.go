package mqtt

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// fakeBroker delivers published requests to respond and routes the reply back
type fakeBroker struct {
	mu        sync.Mutex
	handlers  map[string]mqtt.MessageHandler
	connected bool
	respond   func(topic string, req MqttRequest) *MqttResponse
	unsubbed  []string
}

func newFakeBroker(respond func(topic string, req MqttRequest) *MqttResponse) *fakeBroker {
	return &fakeBroker{handlers: map[string]mqtt.MessageHandler{}, connected: true, respond: respond}
}

func (b *fakeBroker) IsConnected() bool { return b.connected }
func (b *fakeBroker) Disconnect(uint)   { b.connected = false }

func (b *fakeBroker) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	b.mu.Lock()
	b.handlers[topic] = callback
	b.mu.Unlock()
	return doneToken{}
}

func (b *fakeBroker) Unsubscribe(topics ...string) mqtt.Token {
	b.mu.Lock()
	for _, topic := range topics {
		delete(b.handlers, topic)
	}
	b.unsubbed = append(b.unsubbed, topics...)
	b.mu.Unlock()
	return doneToken{}
}

func (b *fakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	if !strings.HasPrefix(topic, requestPrefix) {
		return doneToken{}
	}
	var req MqttRequest
	if err := json.Unmarshal(payload.([]byte), &req); err != nil {
		return doneToken{err: err}
	}

	name := strings.TrimPrefix(topic, requestPrefix)
	resp := b.respond(name, req)
	if resp == nil {
		return doneToken{}
	}

	data, _ := json.Marshal(resp)
	replyTopic := responsePrefix + name + "/" + req.CorrelationID
	go func() {
		b.mu.Lock()
		handler := b.handlers[replyTopic]
		b.mu.Unlock()
		if handler != nil {
			handler(nil, fakeMessage{topic: replyTopic, payload: data})
		}
	}()
	return doneToken{}
}

func TestRequestRoundTrip(t *testing.T) {
	broker := newFakeBroker(func(topic string, req MqttRequest) *MqttResponse {
		if topic != "identity/lookup" {
			t.Errorf("topic = %v, want %v", topic, "identity/lookup")
		}
		return &MqttResponse{CorrelationID: req.CorrelationID, Data: json.RawMessage(`{"userId":"abc"}`)}
	})
	mc := newCommunicator(broker)

	data, err := mc.Request(context.Background(), "identity/lookup", map[string]string{"discordId": "1"})
	if err != nil {
		t.Fatalf("Request() returned error: %v", err)
	}
	if string(data) != `{"userId":"abc"}` {
		t.Errorf("Request() = %s, want %s", data, `{"userId":"abc"}`)
	}
	if len(broker.unsubbed) != 1 {
		t.Errorf("response topic should be unsubscribed, got %v", broker.unsubbed)
	}
}

func TestRequestRemoteError(t *testing.T) {
	mc := newCommunicator(newFakeBroker(func(topic string, req MqttRequest) *MqttResponse {
		return &MqttResponse{CorrelationID: req.CorrelationID, Error: "not_found"}
	}))

	_, err := mc.Request(context.Background(), "identity/lookup", nil)

	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("Request() error = %v, want *RemoteError", err)
	}
	if remote.Message != "not_found" {
		t.Errorf("RemoteError.Message = %v, want %v", remote.Message, "not_found")
	}
}

func TestRequestIgnoresForeignCorrelation(t *testing.T) {
	mc := newCommunicator(newFakeBroker(func(topic string, req MqttRequest) *MqttResponse {
		return &MqttResponse{CorrelationID: "someone-else", Data: json.RawMessage(`1`)}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := mc.Request(ctx, "identity/lookup", nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Request() error = %v, want deadline exceeded", err)
	}
}

func TestRequestNotConnected(t *testing.T) {
	broker := newFakeBroker(nil)
	broker.connected = false
	mc := newCommunicator(broker)

	if _, err := mc.Request(context.Background(), "identity/lookup", nil); err == nil {
		t.Error("Request() should fail while disconnected")
	}
	if _, ok := mc.GetStatus(); ok {
		t.Error("GetStatus() should report offline")
	}
}
