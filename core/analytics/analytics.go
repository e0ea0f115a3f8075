// Package analytics turns historical fuel, maintenance and task records into
// cost, efficiency, consumption and failure-risk figures.
//
// Every figure is either a plain record or one of the sentinel errors below.
// A vehicle or period without data yields zeros, never a missing value.
package analytics

import (
	"errors"
	"math"
	"time"
)

var (
	// ErrInsufficientData means there are too few samples to compute a figure.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDegenerateInput means the samples exist but cannot produce a figure,
	// such as zero travelled distance or all maintenance on the same day.
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrUnsupportedReport is returned for an unknown report kind.
	ErrUnsupportedReport = errors.New("unsupported report")
)

const day = 24 * time.Hour

// wholeDays returns d in whole days rounded down.
func wholeDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}

