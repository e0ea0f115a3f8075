// Package mqtt publishes playback positions to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/fleetops/core/factory"
	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/playback"
	infralogger "github.com/kilianp07/fleetops/infra/logger"
)

// ErrQueueFull is returned when a frame is dropped because the publish queue
// is full.
var ErrQueueFull = errors.New("mqtt publish queue full")

// ErrClosed is returned by PublishFrame after Close.
var ErrClosed = errors.New("mqtt publisher closed")

// positionMessage is the payload published for each track position.
type positionMessage struct {
	Session   string   `json:"session"`
	Index     int      `json:"index"`
	VehicleID int64    `json:"vehicle_id"`
	RouteID   int64    `json:"route_id"`
	Label     string   `json:"label"`
	Icon      string   `json:"icon"`
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
	Speed     *float64 `json:"speed,omitempty"`
	FuelLevel *float64 `json:"fuel_level,omitempty"`
	Done      bool     `json:"done,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// FramePublisher implements playback.FrameSink. Frames are queued and
// published by a background worker, one message per track on
// <prefix>/<vehicle>_<route>.
type FramePublisher struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	log        logger.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan playback.Frame
	done   chan struct{}
}

var _ playback.FrameSink = (*FramePublisher)(nil)

// NewFramePublisher connects to the broker and starts the publish worker.
func NewFramePublisher(cfg Config) (*FramePublisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := infralogger.New("mqtt_playback")
	opts.OnConnect = func(paho.Client) { log.Infof("MQTT connected to %s", cfg.Broker) }
	opts.OnConnectionLost = func(_ paho.Client, err error) { log.Errorf("connection lost: %v", err) }
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) { log.Warnf("reconnecting to MQTT broker") }

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	p := &FramePublisher{
		cli:        c,
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        log,
		queue:      make(chan playback.Frame, cfg.QueueSize),
		done:       make(chan struct{}),
	}
	go p.run()
	return p, nil
}

// PublishFrame queues f without blocking.
func (p *FramePublisher) PublishFrame(f playback.Frame) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- f:
		return nil
	default:
		return ErrQueueFull
	}
}

// Topic returns the topic of a track.
func (p *FramePublisher) Topic(pos playback.Position) string {
	return fmt.Sprintf("%s/%s", p.prefix, pos.Key)
}

func (p *FramePublisher) run() {
	defer close(p.done)
	for f := range p.queue {
		for _, pos := range f.Positions {
			if err := p.publish(f, pos); err != nil {
				p.log.Errorf("publish %s: %v", pos.Key, err)
			}
		}
	}
}

func (p *FramePublisher) publish(f playback.Frame, pos playback.Position) error {
	payload, err := json.Marshal(positionMessage{
		Session: f.Session, Index: f.Index,
		VehicleID: pos.Key.VehicleID, RouteID: pos.Key.RouteID,
		Label: pos.Label, Icon: pos.Icon, Lat: pos.Lat, Lon: pos.Lon,
		Speed: pos.Speed, FuelLevel: pos.FuelLevel, Done: pos.Done,
		Timestamp: f.At.UnixMilli(),
	})
	if err != nil {
		return err
	}
	topic := p.Topic(pos)
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.qos, p.retain, payload)
		token.Wait()
		if publishErr = token.Error(); publishErr == nil {
			return nil
		}
		p.log.Warnf("publish attempt %d on %s failed: %v", attempt+1, topic, publishErr)
		time.Sleep(p.backoff * time.Duration(1<<attempt))
	}
	return publishErr
}

// Close drains the queue and disconnects.
func (p *FramePublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	<-p.done
	if p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}

func init() {
	_ = playback.RegisterSink("mqtt", func(conf map[string]any) (playback.FrameSink, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewFramePublisher(c)
	})
}
