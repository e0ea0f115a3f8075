package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/fleetops/core/factory"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/playback"
)

type published struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

// mockClient implements pahoClient for tests
type mockClient struct {
	mu          sync.Mutex
	opts        *paho.ClientOptions
	published   []published
	publishErrs []error
	connectErr  error
	disconnects int
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.connectErr != nil {
		return &dummyToken{err: m.connectErr}
	}
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(nil)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {
	m.mu.Lock()
	m.disconnects++
	m.mu.Unlock()
}
func (m *mockClient) Publish(topic string, qos byte, retain bool, payload interface{}) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, published{topic, qos, retain, payload.([]byte)})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}

func (m *mockClient) messages() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]published(nil), m.published...)
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

func withMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } })
}

func frame() playback.Frame {
	speed := 62.0
	return playback.Frame{
		Session: "sess-1",
		Index:   3,
		At:      time.UnixMilli(1700000000000),
		Positions: []playback.Position{
			{Key: model.TrackKey{VehicleID: 1, RouteID: 10}, Label: "A111AA", Icon: "car", Lat: 55.75, Lon: 37.61, Speed: &speed},
			{Key: model.TrackKey{VehicleID: 2, RouteID: 11}, Label: "B222BB", Icon: "bus", Lat: 59.93, Lon: 30.33, Done: true},
		},
	}
}

func TestFramePublisherTopicsAndPayload(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	p, err := NewFramePublisher(Config{Broker: "tcp://localhost:1883", TopicPrefix: "fleet/replay", QoS: 1})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	if err := p.PublishFrame(frame()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	p.Close()

	msgs := mc.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].topic != "fleet/replay/1_10" || msgs[1].topic != "fleet/replay/2_11" {
		t.Fatalf("unexpected topics %q %q", msgs[0].topic, msgs[1].topic)
	}
	if msgs[0].qos != 1 {
		t.Fatalf("qos not applied")
	}
	var m positionMessage
	if err := json.Unmarshal(msgs[0].payload, &m); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if m.Session != "sess-1" || m.Index != 3 || m.Label != "A111AA" || m.Speed == nil || *m.Speed != 62 || m.Timestamp != 1700000000000 {
		t.Fatalf("unexpected payload %+v", m)
	}
	if mc.disconnects != 1 {
		t.Fatalf("expected disconnect on close")
	}
}

func TestFramePublisherRetries(t *testing.T) {
	mc := &mockClient{publishErrs: []error{errors.New("net fail"), nil}}
	withMock(t, mc)
	p, err := NewFramePublisher(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	f := frame()
	f.Positions = f.Positions[:1]
	_ = p.PublishFrame(f)
	p.Close()
	if got := len(mc.messages()); got != 2 {
		t.Fatalf("expected one retry, got %d publishes", got)
	}
}

func TestFramePublisherConnectError(t *testing.T) {
	withMock(t, &mockClient{connectErr: errors.New("refused")})
	if _, err := NewFramePublisher(Config{Broker: "tcp://localhost:1883"}); err == nil {
		t.Fatalf("expected connect error")
	}
}

func TestFramePublisherAfterClose(t *testing.T) {
	withMock(t, &mockClient{})
	p, err := NewFramePublisher(Config{Broker: "tcp://localhost:1883"})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	p.Close()
	p.Close()
	if err := p.PublishFrame(frame()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestFramePublisherRegistered(t *testing.T) {
	withMock(t, &mockClient{})
	sink, err := playback.NewSink([]factory.ModuleConfig{{Type: "mqtt", Conf: map[string]any{"broker": "tcp://localhost:1883", "qos": "1"}}})
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	p, ok := sink.(*FramePublisher)
	if !ok {
		t.Fatalf("expected *FramePublisher, got %T", sink)
	}
	defer p.Close()
	if p.qos != 1 {
		t.Fatalf("qos not decoded")
	}
}
