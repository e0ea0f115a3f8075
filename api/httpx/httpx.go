// Package httpx holds the response and parameter helpers shared by the API
// handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/kilianp07/fleetops/core/analytics"
	"github.com/kilianp07/fleetops/core/playback"
	"github.com/kilianp07/fleetops/core/store"
	"github.com/kilianp07/fleetops/core/track"
)

// ErrBadRequest marks malformed parameters or bodies.
var ErrBadRequest = errors.New("bad request")

// unprocessable lists the outcomes that are valid answers rather than
// failures. The first match names the error in the response body.
var unprocessable = []error{
	analytics.ErrInsufficientData,
	analytics.ErrDegenerateInput,
	analytics.ErrUnsupportedReport,
	track.ErrDegenerateInput,
	playback.ErrNoTracks,
	playback.ErrInvalidState,
	playback.ErrInvalidSpeed,
}

type errorBody struct {
	Error string `json:"error"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Status maps err to an HTTP status and the message exposed to clients.
func Status(err error) (int, string) {
	for _, s := range unprocessable {
		if errors.Is(err, s) {
			return http.StatusUnprocessableEntity, s.Error()
		}
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, store.ErrNotFound.Error()
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// Error writes err as {"error": ...}.
func Error(w http.ResponseWriter, err error) {
	status, msg := Status(err)
	JSON(w, status, errorBody{Error: msg})
}

// PathInt reads a positive integer route variable.
func PathInt(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", ErrBadRequest, name, mux.Vars(r)[name])
	}
	return v, nil
}

// Range reads the optional start and end query parameters. Both accept
// RFC3339 or a plain date; a plain end date covers the whole day.
func Range(r *http.Request) (time.Time, time.Time, error) {
	start, _, err := ParseTime(r.URL.Query().Get("start"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start: %v", ErrBadRequest, err)
	}
	end, dateOnly, err := ParseTime(r.URL.Query().Get("end"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end: %v", ErrBadRequest, err)
	}
	if dateOnly {
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end before start", ErrBadRequest)
	}
	return start, end, nil
}

// ParseTime accepts RFC3339 or a plain date and reports which one it got.
// An empty string is the zero time.
func ParseTime(s string) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("want RFC3339 or YYYY-MM-DD, got %q", s)
	}
	return t, true, nil
}

// Decode reads a JSON body into v. An empty body leaves v untouched.
func Decode(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}
