package sst

import "context"

// Sample is the normalized per-coordinate result of a batched fetch.
// TempC is nil when the point had no valid sea temperature.
type Sample struct {
	Coord Coordinate
	TempC *float64
}

// Fetcher abstracts the upstream marine-weather provider.
//
// All three operations share one contract: upstream failures of any kind
// (HTTP error, timeout, land/ice cell, empty series) collapse to a nil
// temperature, never to an error. A missing data point must not abort a
// multi-date aggregation; the orchestrator only ever sees "no temperature
// for this date".
type Fetcher interface {
	// FetchDayAverage returns the mean of the valid hourly sea-surface
	// readings at coord on the given date, or nil.
	FetchDayAverage(ctx context.Context, coord Coordinate, date string) *float64

	// FetchWithNudge is FetchDayAverage plus up to maxAttempts spatial
	// perturbations of coord, returning the first non-nil result. Used for
	// the forecast range, where a coastal click landing on a land cell
	// should still produce an answer.
	FetchWithNudge(ctx context.Context, coord Coordinate, date string, maxAttempts int) *float64

	// FetchGrid resolves many coordinates for one date in a single batched
	// upstream call. The result has one Sample per input coordinate, in
	// input order; a batch-level failure yields all-nil samples.
	FetchGrid(ctx context.Context, coords []Coordinate, date string) []Sample
}
