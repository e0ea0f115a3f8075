package osrm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/auth"
	"github.com/kilianp07/fleetops/core/model"
)

func TestClientRoute(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"distance":1200.5,"duration":90,
            "geometry":{"type":"LineString","coordinates":[[37.6176,55.7558],[37.62,55.76],[30.3351,59.9343]]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	pts, err := c.Route(context.Background(),
		model.Coordinate{Lat: 55.7558, Lon: 37.6176}, model.Coordinate{Lat: 59.9343, Lon: 30.3351})
	require.NoError(t, err)
	require.Len(t, pts, 3)
	assert.Equal(t, model.Coordinate{Lat: 55.7558, Lon: 37.6176}, pts[0])
	assert.Equal(t, model.Coordinate{Lat: 59.9343, Lon: 30.3351}, pts[2])
	assert.Equal(t, "/route/v1/driving/37.617600,55.755800;30.335100,59.934300", gotPath)
	assert.Contains(t, gotQuery, "overview=full")
	assert.Contains(t, gotQuery, "geometries=geojson")
}

func TestClientRouteErrors(t *testing.T) {
	for name, body := range map[string]string{
		"no route":       `{"code":"NoRoute","message":"Impossible route between points"}`,
		"empty routes":   `{"code":"Ok","routes":[]}`,
		"not a line":     `{"code":"Ok","routes":[{"geometry":{"type":"Point","coordinates":[37.6,55.7]}}]}`,
		"invalid json":   `<html>bad gateway</html>`,
		"missing geomet": `{"code":"Ok","routes":[{"distance":1}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()
			_, err := NewClient(srv.URL).Route(context.Background(), model.Coordinate{Lat: 1, Lon: 2}, model.Coordinate{Lat: 3, Lon: 4})
			if err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestClientRouteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient(srv.URL).Route(ctx, model.Coordinate{Lat: 1, Lon: 2}, model.Coordinate{Lat: 3, Lon: 4})
	if err == nil || !strings.Contains(err.Error(), "deadline") {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestClientRouteWithCredentials(t *testing.T) {
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"osrm-token","token_type":"bearer","expires_in":3600}`))
	}))
	defer idp.Close()

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if gotAuth != "Bearer osrm-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"geometry":{"type":"LineString","coordinates":[[37.6,55.7],[37.7,55.8]]}}]}`))
	}))
	defer srv.Close()

	creds := auth.NewClientCred(auth.Conf{ClientID: "id", ClientSecret: "s", TokenURL: idp.URL})
	pts, err := NewClient(srv.URL, WithCredentials(creds)).Route(context.Background(),
		model.Coordinate{Lat: 55.7, Lon: 37.6}, model.Coordinate{Lat: 55.8, Lon: 37.7})
	require.NoError(t, err)
	assert.Len(t, pts, 2)
	assert.Equal(t, "Bearer osrm-token", gotAuth)

	_, err = NewClient(srv.URL).Route(context.Background(), model.Coordinate{Lat: 1, Lon: 2}, model.Coordinate{Lat: 3, Lon: 4})
	assert.Error(t, err)
}
