package sst

import (
	"fmt"

	"github.com/Sebastian-Sole/scuba-suit/internal/suit"
)

// Coordinate is an immutable geographic point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate lies within WGS84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// RowKind marks a row's position relative to the anchor date.
type RowKind string

const (
	KindHistorical RowKind = "historical"
	KindSelected   RowKind = "selected"
	KindForecast   RowKind = "forecast"
)

// DateRow is one date's composed result. TempC and Suit are nil together
// when no data was obtainable for that date after all fallback attempts.
type DateRow struct {
	Date  string               `json:"date"`
	TempC *float64             `json:"tempC"`
	Suit  *suit.Recommendation `json:"suit"`
	Kind  RowKind              `json:"kind"`
}

// Stats summarizes the non-null temperatures across a composed row set.
type Stats struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	P10  float64 `json:"p10"`
	P90  float64 `json:"p90"`
}

// PointPayload is the cached response body for a point recommendation.
type PointPayload struct {
	Location Coordinate `json:"location"`
	Rows     []DateRow  `json:"rows"`
	Stats    Stats      `json:"stats"`
}

// GridPoint is one sampled lattice point in a grid response.
type GridPoint struct {
	Lat  float64  `json:"lat"`
	Lon  float64  `json:"lon"`
	Temp *float64 `json:"temp"`
}

// GridPayload is the cached response body for a bounding-box grid query.
type GridPayload struct {
	Points []GridPoint `json:"points"`
}

// BBox is a south-west / north-east bounding box.
type BBox struct {
	MinLat, MinLon, MaxLat, MaxLon float64
}

// Valid reports whether the box corners are in bounds and ordered.
func (b BBox) Valid() bool {
	sw := Coordinate{Lat: b.MinLat, Lon: b.MinLon}
	ne := Coordinate{Lat: b.MaxLat, Lon: b.MaxLon}
	return sw.Valid() && ne.Valid() && b.MinLat <= b.MaxLat && b.MinLon <= b.MaxLon
}

// String renders the box in the wire/cache-key order minLat,minLon,maxLat,maxLon.
func (b BBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
}
