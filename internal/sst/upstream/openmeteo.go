// Package upstream implements the Open-Meteo marine API client behind the
// sst.Fetcher contract: daily sea-surface-temperature averages for single
// or batched coordinates, with a coastal-nudge retry for point queries.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Sebastian-Sole/scuba-suit/internal/sst"
	"github.com/sony/gobreaker"
)

const (
	// DefaultBaseURL is the Open-Meteo marine forecast endpoint.
	DefaultBaseURL = "https://marine-api.open-meteo.com/v1/marine"

	// DefaultTimeout bounds a single fetch, including retries.
	DefaultTimeout = 8 * time.Second

	// nudgeEpsilon is the spatial perturbation step, ~2 km at the equator.
	nudgeEpsilon = 0.02
)

// Client fetches daily SST averages from Open-Meteo's marine API.
//
// All methods collapse upstream failures (HTTP errors, timeouts, land/ice
// cells, empty series) into nil temperatures. The failure detail is logged
// but never propagated: "no data here" is an expected, recoverable outcome
// for the aggregation on top.
type Client struct {
	name    string
	baseURL string
	client  *http.Client
	timeout time.Duration
	retry   retryConfig
	circuit *gobreaker.CircuitBreaker
}

var _ sst.Fetcher = (*Client)(nil)

// NewClient creates a Client using the shared outbound HTTP client.
// An empty baseURL selects the production endpoint; timeout <= 0 selects
// DefaultTimeout.
func NewClient(client *http.Client, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo-marine",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		name:    "openmeteo-marine",
		baseURL: baseURL,
		client:  client,
		timeout: timeout,
		retry: retryConfig{
			maxRetries:      2,
			initialInterval: 300 * time.Millisecond,
			maxInterval:     2 * time.Second,
		},
		circuit: cb,
	}
}

// Name identifies the upstream provider in logs.
func (c *Client) Name() string {
	return c.name
}

// hourlySeries is the per-coordinate response shape. Null readings mark
// ice, land or missing coverage.
type hourlySeries struct {
	Hourly struct {
		Time                  []string   `json:"time"`
		SeaSurfaceTemperature []*float64 `json:"sea_surface_temperature"`
	} `json:"hourly"`
}

// FetchDayAverage fetches the hourly SST series for one coordinate on one
// date and returns the mean of the non-null readings, or nil.
func (c *Client) FetchDayAverage(ctx context.Context, coord sst.Coordinate, date string) *float64 {
	body, err := c.fetch(ctx, []sst.Coordinate{coord}, date)
	if err != nil {
		log.Printf("%s: day fetch failed for lat=%g lon=%g date=%s: %v", c.name, coord.Lat, coord.Lon, date, err)
		return nil
	}

	var payload hourlySeries
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("%s: decode failed for lat=%g lon=%g date=%s: %v", c.name, coord.Lat, coord.Lon, date, err)
		return nil
	}
	return meanOfReadings(payload.Hourly.SeaSurfaceTemperature)
}

// FetchWithNudge retries a nil result at small fixed spatial offsets,
// in order lon+ε, lon-ε, lat+ε. A click near a coastline frequently lands
// in a land grid cell; nudging a couple of kilometers recovers a usable
// reading.
func (c *Client) FetchWithNudge(ctx context.Context, coord sst.Coordinate, date string, maxAttempts int) *float64 {
	if v := c.FetchDayAverage(ctx, coord, date); v != nil {
		return v
	}

	offsets := []sst.Coordinate{
		{Lat: coord.Lat, Lon: coord.Lon + nudgeEpsilon},
		{Lat: coord.Lat, Lon: coord.Lon - nudgeEpsilon},
		{Lat: coord.Lat + nudgeEpsilon, Lon: coord.Lon},
	}
	for i, nudged := range offsets {
		if i >= maxAttempts {
			break
		}
		if v := c.FetchDayAverage(ctx, nudged, date); v != nil {
			log.Printf("%s: nudge %d recovered data for lat=%g lon=%g date=%s", c.name, i+1, coord.Lat, coord.Lon, date)
			return v
		}
	}
	return nil
}

// FetchGrid resolves many coordinates for one date in a single batched
// call. A batch-level failure yields one nil sample per coordinate rather
// than failing the whole request.
func (c *Client) FetchGrid(ctx context.Context, coords []sst.Coordinate, date string) []sst.Sample {
	samples := make([]sst.Sample, len(coords))
	for i, coord := range coords {
		samples[i] = sst.Sample{Coord: coord}
	}
	if len(coords) == 0 {
		return samples
	}

	body, err := c.fetch(ctx, coords, date)
	if err != nil {
		log.Printf("%s: grid fetch failed for %d coords date=%s: %v", c.name, len(coords), date, err)
		return samples
	}

	for i, series := range parseBatch(body, len(coords)) {
		if i >= len(samples) {
			break
		}
		samples[i].TempC = meanOfReadings(series.Hourly.SeaSurfaceTemperature)
	}
	return samples
}

// fetch issues one GET scoped to a single day, biased toward ocean grid
// cells, and returns the raw response body.
func (c *Client) fetch(ctx context.Context, coords []sst.Coordinate, date string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	buildRequest := func() (*http.Request, error) {
		lats := make([]string, len(coords))
		lons := make([]string, len(coords))
		for i, coord := range coords {
			lats[i] = fmt.Sprintf("%g", coord.Lat)
			lons[i] = fmt.Sprintf("%g", coord.Lon)
		}

		values := url.Values{}
		values.Set("latitude", strings.Join(lats, ","))
		values.Set("longitude", strings.Join(lons, ","))
		values.Set("hourly", "sea_surface_temperature")
		values.Set("start_date", date)
		values.Set("end_date", date)
		values.Set("timezone", "auto")
		values.Set("cell_selection", "sea")

		u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doResilientRequest(ctx, c.client, c.retry, c.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// parseBatch normalizes the two upstream response shapes (a bare object for
// one coordinate, {"results": [...]} for several) into an ordered series
// list, so callers never branch on shape.
func parseBatch(body []byte, n int) []hourlySeries {
	var batch struct {
		Results []hourlySeries `json:"results"`
	}
	if err := json.Unmarshal(body, &batch); err == nil && len(batch.Results) > 0 {
		return batch.Results
	}

	var single hourlySeries
	if err := json.Unmarshal(body, &single); err == nil && len(single.Hourly.SeaSurfaceTemperature) > 0 {
		return []hourlySeries{single}
	}

	log.Printf("openmeteo-marine: unrecognized batch response shape for %d coords", n)
	return nil
}

// meanOfReadings averages the non-null hourly readings, or returns nil when
// none remain.
func meanOfReadings(readings []*float64) *float64 {
	sum := 0.0
	count := 0
	for _, r := range readings {
		if r == nil {
			continue
		}
		sum += *r
		count++
	}
	if count == 0 {
		return nil
	}
	avg := sum / float64(count)
	return &avg
}
