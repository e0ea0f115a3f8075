package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/core/model"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		pairFlags = nil
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParsePair(t *testing.T) {
	key, err := parsePair("3:12")
	require.NoError(t, err)
	assert.Equal(t, model.TrackKey{VehicleID: 3, RouteID: 12}, key)
	for _, s := range []string{"3", "a:1", "1:b", "0:1", "1:-2"} {
		_, err := parsePair(s)
		assert.Error(t, err, s)
	}
}

func TestCLIRange(t *testing.T) {
	start, end, err := cliRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond), end)
	_, _, err = cliRange("01/01/2024", "")
	assert.Error(t, err)
}

func TestSeedReportAndTracks(t *testing.T) {
	t.Setenv("FLEET_STORE__BACKEND", "sqlite")
	t.Setenv("FLEET_STORE__DSN", filepath.Join(t.TempDir(), "fleet.db"))
	// Route lookups fail fast so generation uses the interpolated fallback.
	t.Setenv("FLEET_ROUTING__OSRM_URL", "http://127.0.0.1:1")

	out, err := execute(t, "seed", "--history-months", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 5 vehicles")

	out, err = execute(t, "report", "fuel", "--format", "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "vehicle_id,registration_number,total_amount,total_cost", lines[0])
	assert.Len(t, lines, 6)

	out, err = execute(t, "tracks", "generate", "--pair", "1:1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 succeeded, 0 failed")
	assert.Contains(t, out, "fallback")

	out, err = execute(t, "tracks", "export", "1", "1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "seq,vehicle_id,route_id,lat,lon,timestamp\n"))

	out, err = execute(t, "forecast", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "next maintenance")
}

func TestPluginsCommand(t *testing.T) {
	out, err := execute(t, "plugins")
	require.NoError(t, err)
	assert.Contains(t, out, "playback.sinks: ")
	assert.Contains(t, out, "mqtt")
}
