package mqtt

import (
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// mockClient records publish and subscribe calls.
type mockClient struct {
	publishCalls   []publishCall
	subscribeCalls []subscribeCall
	// tokenErr is returned by every token when set.
	tokenErr error
	// stalled makes every token time out.
	stalled   bool
	connected bool
	mu        sync.Mutex
}

type publishCall struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  any
}

type subscribeCall struct {
	Topic   string
	QoS     byte
	Handler paho.MessageHandler
}

func (m *mockClient) token() paho.Token {
	return &mockToken{err: m.tokenErr, stalled: m.stalled}
}

func (m *mockClient) IsConnected() bool      { return m.connected }
func (m *mockClient) IsConnectionOpen() bool { return m.connected }

func (m *mockClient) Connect() paho.Token {
	m.connected = true

	return m.token()
}

func (m *mockClient) Disconnect(uint) { m.connected = false }

func (m *mockClient) Publish(topic string, qos byte, retained bool, payload any) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.publishCalls = append(m.publishCalls, publishCall{
		Topic:    topic,
		QoS:      qos,
		Retained: retained,
		Payload:  payload,
	})

	return m.token()
}

func (m *mockClient) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subscribeCalls = append(m.subscribeCalls, subscribeCall{
		Topic:   topic,
		QoS:     qos,
		Handler: callback,
	})

	return m.token()
}

func (m *mockClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return m.token()
}

func (m *mockClient) Unsubscribe(...string) paho.Token        { return m.token() }
func (m *mockClient) AddRoute(string, paho.MessageHandler)    {}
func (m *mockClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }

// mockToken completes immediately unless stalled.
type mockToken struct {
	err     error
	stalled bool
}

func (m *mockToken) Wait() bool                     { return !m.stalled }
func (m *mockToken) WaitTimeout(time.Duration) bool { return !m.stalled }

func (m *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !m.stalled {
		close(ch)
	}

	return ch
}

func (m *mockToken) Error() error { return m.err }

// mockMessage is a received broker message.
type mockMessage struct {
	topic   string
	payload []byte
}

func (m *mockMessage) Duplicate() bool   { return false }
func (m *mockMessage) Qos() byte         { return 1 }
func (m *mockMessage) Retained() bool    { return false }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) MessageID() uint16 { return 0 }
func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Ack()              {}
