// Package geocode resolves free-form place names to coordinates. It is a
// thin, cached front for the Google-backed geocoder; the SST core only
// consumes its results as input coordinates.
package geocode

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sebastian-Sole/scuba-suit/internal/cache"
	"github.com/kelvins/geocoder"
)

// ErrNotConfigured is returned when no geocoder API key is set.
var ErrNotConfigured = errors.New("geocoder api key is not configured")

// ErrNotFound is returned when the query resolves to no location.
var ErrNotFound = errors.New("no location found for query")

// Result is a resolved place.
type Result struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Display string  `json:"display"`
}

// Client caches geocoding lookups. Place names are stable, so results are
// cached for a day by default.
type Client struct {
	apiKey string
	cache  *cache.Cache[Result]
	ttl    time.Duration
}

// NewClient creates a geocoding client. ttl <= 0 selects 24 hours.
func NewClient(apiKey string, c *cache.Cache[Result], ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Client{apiKey: apiKey, cache: c, ttl: ttl}
}

// Lookup resolves a "city" or "city,country" query to coordinates.
func (c *Client) Lookup(q string) (Result, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return Result{}, fmt.Errorf("empty query")
	}
	if c.apiKey == "" {
		return Result{}, ErrNotConfigured
	}

	key := "geocode:" + strings.ToLower(q)
	if r, ok := c.cache.Get(key); ok {
		return r, nil
	}

	address := parseQuery(q)

	geocoder.ApiKey = c.apiKey
	location, err := geocodeFn(address)
	if err != nil {
		if isNoResults(err) {
			return Result{}, fmt.Errorf("%w: %q", ErrNotFound, q)
		}
		// Transport or upstream failure, not an empty result set; the
		// caller maps this to a gateway error rather than a 404.
		return Result{}, fmt.Errorf("geocoding %q failed: %w", q, err)
	}

	result := Result{
		Lat:     location.Latitude,
		Lon:     location.Longitude,
		Display: address.FormatAddress(),
	}
	c.cache.Set(key, result, c.ttl)
	return result, nil
}

// geocodeFn is swappable in tests.
var geocodeFn = geocoder.Geocoding

// isNoResults reports whether the geocoder error means the query resolved
// to nothing, as opposed to a transport or upstream failure. The library
// surfaces Google's status text, so both its own empty-result message and
// the raw ZERO_RESULTS status are recognized.
func isNoResults(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no results") ||
		strings.Contains(msg, "not found") ||
		strings.Contains(msg, "zero_results")
}

// parseQuery splits "city" or "city,country" into an address. Extra
// comma-separated parts fold into the city field untouched.
func parseQuery(q string) geocoder.Address {
	parts := strings.Split(q, ",")
	address := geocoder.Address{City: strings.TrimSpace(parts[0])}
	if len(parts) > 1 {
		address.Country = strings.TrimSpace(strings.Join(parts[1:], ","))
	}
	return address
}
