package sst

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Sebastian-Sole/scuba-suit/internal/cache"
	"github.com/Sebastian-Sole/scuba-suit/internal/dates"
	"github.com/Sebastian-Sole/scuba-suit/internal/suit"
)

// Options tunes the orchestrator. Zero fields fall back to defaults.
type Options struct {
	PointTTL      time.Duration // cache TTL for point payloads
	GridTTL       time.Duration // cache TTL for grid payloads
	MaxConcurrent int           // cap on in-flight upstream fetches per request
	NudgeAttempts int           // max spatial perturbations for forecast-range fetches
	GridMaxPoints int           // hard cap on grid lattice size
}

func (o Options) withDefaults() Options {
	if o.PointTTL <= 0 {
		o.PointTTL = 30 * time.Minute
	}
	if o.GridTTL <= 0 {
		o.GridTTL = 15 * time.Minute
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 8
	}
	if o.NudgeAttempts <= 0 {
		o.NudgeAttempts = 3
	}
	if o.GridMaxPoints <= 0 {
		o.GridMaxPoints = 1000
	}
	return o
}

// Service is the read-through-cache orchestrator composing full
// recommendation payloads from date ranges, upstream fetches, suit
// classification and statistics.
type Service struct {
	fetcher    Fetcher
	pointCache *cache.Cache[PointPayload]
	gridCache  *cache.Cache[GridPayload]
	opts       Options
}

// NewService creates a Service. Caches are injected so tests can use a
// fresh cache per case.
func NewService(fetcher Fetcher, pointCache *cache.Cache[PointPayload], gridCache *cache.Cache[GridPayload], opts Options) *Service {
	return &Service{
		fetcher:    fetcher,
		pointCache: pointCache,
		gridCache:  gridCache,
		opts:       opts.withDefaults(),
	}
}

// GetPoint composes one full recommendation payload for a coordinate and
// anchor date. Successful payloads are cached; validation and no-data
// errors are not.
func (s *Service) GetPoint(ctx context.Context, coord Coordinate, anchorDate string, years, forecastRadius int) (PointPayload, error) {
	if !coord.Valid() {
		return PointPayload{}, &ValidationError{Field: "coordinate", Reason: "latitude/longitude out of range"}
	}
	if !dates.IsValid(anchorDate) {
		return PointPayload{}, &ValidationError{Field: "date", Reason: "must be a valid YYYY-MM-DD date"}
	}
	if years < 0 {
		return PointPayload{}, &ValidationError{Field: "years", Reason: "must be >= 0"}
	}
	if forecastRadius < 0 {
		return PointPayload{}, &ValidationError{Field: "forecastDays", Reason: "must be >= 0"}
	}

	key := pointKey(coord, anchorDate, years, forecastRadius)
	if payload, ok := s.pointCache.Get(key); ok {
		return payload, nil
	}

	historical, err := dates.HistoricalDates(anchorDate, years)
	if err != nil {
		return PointPayload{}, &ValidationError{Field: "date", Reason: err.Error()}
	}
	forecast, err := dates.ForecastDates(anchorDate, forecastRadius)
	if err != nil {
		return PointPayload{}, &ValidationError{Field: "forecastDays", Reason: err.Error()}
	}

	// Fan out one fetch per date, bounded by a semaphore so a large range
	// does not overwhelm the upstream provider. Historical dates accept
	// missing data silently; the forecast range carries the user's
	// selected date, so it gets the coastal-nudge retry.
	temps := make([]*float64, len(historical)+len(forecast))
	sem := make(chan struct{}, s.opts.MaxConcurrent)
	var wg sync.WaitGroup

	fetchAt := func(idx int, date string, nudge bool) {
		defer wg.Done()
		sem <- struct{}{}
		defer func() { <-sem }()

		if nudge {
			temps[idx] = s.fetcher.FetchWithNudge(ctx, coord, date, s.opts.NudgeAttempts)
		} else {
			temps[idx] = s.fetcher.FetchDayAverage(ctx, coord, date)
		}
	}

	for i, d := range historical {
		wg.Add(1)
		go fetchAt(i, d, false)
	}
	for i, d := range forecast {
		wg.Add(1)
		go fetchAt(len(historical)+i, d, true)
	}
	wg.Wait()

	rows := make([]DateRow, 0, len(temps))
	for i, d := range historical {
		rows = append(rows, makeRow(d, temps[i], KindHistorical))
	}
	for i, d := range forecast {
		kind := KindForecast
		if d == anchorDate {
			kind = KindSelected
		}
		rows = append(rows, makeRow(d, temps[len(historical)+i], kind))
	}

	// Completion order is nondeterministic only in timing, but row order is
	// part of the contract: historical block then forecast block, each
	// strictly chronological.
	sort.SliceStable(rows[:len(historical)], func(i, j int) bool {
		return rows[i].Date < rows[j].Date
	})

	var values []float64
	for _, r := range rows {
		if r.TempC != nil {
			values = append(values, *r.TempC)
		}
	}
	stats, ok := computeStats(values)
	if !ok {
		log.Printf("no valid SST samples for lat=%g lon=%g date=%s", coord.Lat, coord.Lon, anchorDate)
		return PointPayload{}, ErrNoData
	}

	payload := PointPayload{
		Location: coord,
		Rows:     rows,
		Stats:    stats,
	}
	s.pointCache.Set(key, payload, s.opts.PointTTL)
	return payload, nil
}

// GetGrid resolves a coarse temperature lattice over a bounding box for one
// date. No nudge retry: missing lattice points render as gaps.
func (s *Service) GetGrid(ctx context.Context, box BBox, date string, step float64) (GridPayload, error) {
	if !box.Valid() {
		return GridPayload{}, &ValidationError{Field: "bbox", Reason: "expected minLat,minLon,maxLat,maxLon within bounds"}
	}
	if !dates.IsValid(date) {
		return GridPayload{}, &ValidationError{Field: "date", Reason: "must be a valid YYYY-MM-DD date"}
	}
	if step <= 0 {
		return GridPayload{}, &ValidationError{Field: "step", Reason: "must be > 0"}
	}

	nLat, nLon := latticeSize(box, step)
	if nLat*nLon > float64(s.opts.GridMaxPoints) {
		return GridPayload{}, &ValidationError{
			Field:  "bbox",
			Reason: fmt.Sprintf("grid of %.0f points exceeds the %d-point limit; increase step or shrink bbox", nLat*nLon, s.opts.GridMaxPoints),
		}
	}
	key := gridKey(box, date, step)
	if payload, ok := s.gridCache.Get(key); ok {
		return payload, nil
	}

	samples := s.fetcher.FetchGrid(ctx, latticeCoords(box, step), date)

	points := make([]GridPoint, 0, len(samples))
	for _, sm := range samples {
		points = append(points, GridPoint{Lat: sm.Coord.Lat, Lon: sm.Coord.Lon, Temp: sm.TempC})
	}

	payload := GridPayload{Points: points}
	s.gridCache.Set(key, payload, s.opts.GridTTL)
	return payload, nil
}

func makeRow(date string, temp *float64, kind RowKind) DateRow {
	row := DateRow{Date: date, TempC: temp, Kind: kind}
	if temp != nil {
		rec := suit.Classify(*temp, suit.Preferences{})
		row.Suit = &rec
	}
	return row
}

// latticeSize derives row/column counts up front, so the size cap is
// checked before any allocation and float accumulation drift never decides
// the last row or column. Counts stay in the float domain: a tiny step over
// a wide box produces counts whose int product would overflow and wrap past
// the cap check, so conversion to int happens only after the cap has passed.
func latticeSize(box BBox, step float64) (nLat, nLon float64) {
	const eps = 1e-9
	nLat = math.Floor((box.MaxLat-box.MinLat)/step+eps) + 1
	nLon = math.Floor((box.MaxLon-box.MinLon)/step+eps) + 1
	return nLat, nLon
}

// latticeCoords samples the box on a fixed step, row-major from the
// south-west corner. Callers must have bounded the lattice size first.
func latticeCoords(box BBox, step float64) []Coordinate {
	fLat, fLon := latticeSize(box, step)
	nLat, nLon := int(fLat), int(fLon)

	coords := make([]Coordinate, 0, nLat*nLon)
	for i := 0; i < nLat; i++ {
		for j := 0; j < nLon; j++ {
			coords = append(coords, Coordinate{
				Lat: box.MinLat + float64(i)*step,
				Lon: box.MinLon + float64(j)*step,
			})
		}
	}
	return coords
}

// Cache keys round coordinates to 3 decimal places (~110 m) so nearby
// clicks share an entry. Stability of the format only affects hit rate.
func pointKey(coord Coordinate, date string, years, radius int) string {
	return fmt.Sprintf("point:%.3f:%.3f:%s:%d:%d", coord.Lat, coord.Lon, date, years, radius)
}

func gridKey(box BBox, date string, step float64) string {
	return fmt.Sprintf("grid:%s:%s:%g", box.String(), date, step)
}
