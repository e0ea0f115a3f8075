package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/infra/logger"
)

// InfluxConfig locates an InfluxDB v2 bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes engine events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTrackGeneration writes one track_generation point.
func (s *InfluxSink) RecordTrackGeneration(ev coremetrics.TrackGenerationEvent) error {
	p := write.NewPointWithMeasurement("track_generation").
		AddTag("vehicle_id", strconv.FormatInt(ev.VehicleID, 10)).
		AddTag("route_id", strconv.FormatInt(ev.RouteID, 10)).
		AddTag("source", ev.Source).
		AddTag("batch_id", ev.BatchID).
		AddField("points", ev.Points).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000))
	if ev.Reason != "" {
		p = p.AddField("reason", ev.Reason)
	}
	return s.write(p.SetTime(ev.Time))
}

// RecordRouteLookup writes one route_lookup point.
func (s *InfluxSink) RecordRouteLookup(ev coremetrics.RouteLookupEvent) error {
	p := write.NewPointWithMeasurement("route_lookup").
		AddTag("outcome", ev.Outcome).
		AddField("points", ev.Points).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordReport writes one analytics_request point.
func (s *InfluxSink) RecordReport(ev coremetrics.ReportEvent) error {
	p := write.NewPointWithMeasurement("analytics_request").
		AddTag("kind", ev.Kind).
		AddTag("outcome", ev.Outcome).
		AddField("vehicle_id", ev.VehicleID).
		SetTime(ev.Time)
	return s.write(p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
