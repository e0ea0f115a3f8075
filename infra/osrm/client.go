// Package osrm queries an OSRM routing server for driving geometries.
package osrm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/kilianp07/fleetops/auth"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/routing"
	"github.com/kilianp07/fleetops/infra/logger"
)

// Client implements routing.Router over the OSRM HTTP API.
type Client struct {
	baseURL string
	profile string
	client  *http.Client
	creds   *auth.ClientCred
	log     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCredentials authenticates every request with an OAuth2 bearer token.
func WithCredentials(c *auth.ClientCred) Option {
	return func(cl *Client) { cl.creds = c }
}

var _ routing.Router = (*Client)(nil)

// NewClient returns a client for the OSRM server at baseURL. Timeouts are
// driven by the request context.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: "driving",
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     logger.New("osrm-client"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type routeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64           `json:"distance"`
		Duration float64           `json:"duration"`
		Geometry *geojson.Geometry `json:"geometry"`
	} `json:"routes"`
}

// Route requests the full driving geometry between two points. OSRM orders
// coordinates (lon, lat); the result is converted to model coordinates.
func (c *Client) Route(ctx context.Context, from, to model.Coordinate) ([]model.Coordinate, error) {
	url := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=full&geometries=geojson",
		c.baseURL, c.profile, from.Lon, from.Lat, to.Lon, to.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.creds != nil {
		if err := c.creds.SetAuthHeader(req); err != nil {
			return nil, err
		}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusUnauthorized && c.creds != nil {
		c.creds.Invalidate()
		return nil, errors.New("osrm: unauthorized")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var rr routeResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if rr.Code != "Ok" {
		return nil, fmt.Errorf("osrm %s: %s", rr.Code, rr.Message)
	}
	if len(rr.Routes) == 0 || rr.Routes[0].Geometry == nil {
		return nil, errors.New("osrm returned no route")
	}
	line, ok := rr.Routes[0].Geometry.Geometry().(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("unexpected geometry %s", rr.Routes[0].Geometry.Type)
	}
	pts := make([]model.Coordinate, len(line))
	for i, p := range line {
		pts[i] = model.Coordinate{Lat: p.Lat(), Lon: p.Lon()}
	}
	c.log.Debugf("osrm route %s -> %s: %d points, %.0f m", from, to, len(pts), rr.Routes[0].Distance)
	return pts, nil
}
