package sst

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Sebastian-Sole/scuba-suit/internal/cache"
)

// stubFetcher satisfies Fetcher with canned per-date temperatures and call
// accounting.
type stubFetcher struct {
	mu         sync.Mutex
	dayCalls   int
	nudgeCalls int
	gridCalls  int
	tempFor    func(coord Coordinate, date string) *float64
	gridTemps  []*float64
}

func (f *stubFetcher) FetchDayAverage(_ context.Context, coord Coordinate, date string) *float64 {
	f.mu.Lock()
	f.dayCalls++
	f.mu.Unlock()
	return f.tempFor(coord, date)
}

func (f *stubFetcher) FetchWithNudge(_ context.Context, coord Coordinate, date string, _ int) *float64 {
	f.mu.Lock()
	f.nudgeCalls++
	f.mu.Unlock()
	return f.tempFor(coord, date)
}

func (f *stubFetcher) FetchGrid(_ context.Context, coords []Coordinate, _ string) []Sample {
	f.mu.Lock()
	f.gridCalls++
	f.mu.Unlock()

	samples := make([]Sample, len(coords))
	for i, c := range coords {
		samples[i] = Sample{Coord: c}
		if i < len(f.gridTemps) {
			samples[i].TempC = f.gridTemps[i]
		}
	}
	return samples
}

func ptr(v float64) *float64 { return &v }

func newTestService(f Fetcher, opts Options) *Service {
	return NewService(f, cache.New[PointPayload](0), cache.New[GridPayload](0), opts)
}

func TestGetPointEndToEnd(t *testing.T) {
	fixed := 21.5
	stub := &stubFetcher{tempFor: func(Coordinate, string) *float64 { return ptr(fixed) }}
	svc := newTestService(stub, Options{})

	payload, err := svc.GetPoint(context.Background(), Coordinate{Lat: 40, Lon: -70}, "2025-11-19", 3, 2)
	if err != nil {
		t.Fatal(err)
	}

	// 3 years * 3 days + (2*2+1) forecast days.
	if len(payload.Rows) != 14 {
		t.Fatalf("expected 14 rows, got %d", len(payload.Rows))
	}

	selected := 0
	for _, r := range payload.Rows {
		if r.Kind == KindSelected {
			selected++
			if r.Date != "2025-11-19" {
				t.Errorf("selected row has wrong date %s", r.Date)
			}
		}
		if r.TempC == nil || *r.TempC != fixed {
			t.Errorf("row %s missing stub temperature", r.Date)
		}
		if r.Suit == nil {
			t.Errorf("row %s missing suit recommendation", r.Date)
		}
	}
	if selected != 1 {
		t.Fatalf("expected exactly one selected row, got %d", selected)
	}

	if payload.Stats.Mean != fixed {
		t.Errorf("Stats.Mean = %v, want %v", payload.Stats.Mean, fixed)
	}

	// Historical block strictly chronological, then forecast block.
	for i := 1; i < 9; i++ {
		if payload.Rows[i-1].Date >= payload.Rows[i].Date {
			t.Fatalf("historical rows not ascending at %d: %s >= %s", i, payload.Rows[i-1].Date, payload.Rows[i].Date)
		}
		if payload.Rows[i].Kind != KindHistorical {
			t.Fatalf("row %d should be historical, got %s", i, payload.Rows[i].Kind)
		}
	}
	for i := 10; i < 14; i++ {
		if payload.Rows[i-1].Date >= payload.Rows[i].Date {
			t.Fatalf("forecast rows not ascending at %d", i)
		}
	}

	// Historical dates fetched without nudge, forecast dates with.
	if stub.dayCalls != 9 {
		t.Errorf("expected 9 plain fetches, got %d", stub.dayCalls)
	}
	if stub.nudgeCalls != 5 {
		t.Errorf("expected 5 nudge fetches, got %d", stub.nudgeCalls)
	}
}

func TestGetPointCachesSuccess(t *testing.T) {
	stub := &stubFetcher{tempFor: func(Coordinate, string) *float64 { return ptr(20) }}
	svc := newTestService(stub, Options{PointTTL: time.Minute})
	coord := Coordinate{Lat: 40, Lon: -70}

	if _, err := svc.GetPoint(context.Background(), coord, "2025-11-19", 1, 1); err != nil {
		t.Fatal(err)
	}
	fetchesAfterFirst := stub.dayCalls + stub.nudgeCalls

	if _, err := svc.GetPoint(context.Background(), coord, "2025-11-19", 1, 1); err != nil {
		t.Fatal(err)
	}
	if stub.dayCalls+stub.nudgeCalls != fetchesAfterFirst {
		t.Error("cache hit should not reach the fetcher")
	}
}

func TestGetPointPartialDataStillSucceeds(t *testing.T) {
	// Only the anchor date has data; everything else is missing.
	stub := &stubFetcher{tempFor: func(_ Coordinate, date string) *float64 {
		if date == "2025-11-19" {
			return ptr(18)
		}
		return nil
	}}
	svc := newTestService(stub, Options{})

	payload, err := svc.GetPoint(context.Background(), Coordinate{Lat: 40, Lon: -70}, "2025-11-19", 2, 1)
	if err != nil {
		t.Fatal(err)
	}

	withData := 0
	for _, r := range payload.Rows {
		if r.TempC != nil {
			withData++
			continue
		}
		if r.Suit != nil {
			t.Errorf("row %s has suit without temperature", r.Date)
		}
	}
	// Historical windows live in prior years, so only the selected
	// forecast row carries the anchor date.
	if withData != 1 {
		t.Fatalf("expected 1 row with data, got %d", withData)
	}
	if payload.Stats.Mean != 18 {
		t.Errorf("Stats.Mean = %v, want 18", payload.Stats.Mean)
	}
}

func TestGetPointAllNullIsNoDataAndUncached(t *testing.T) {
	stub := &stubFetcher{tempFor: func(Coordinate, string) *float64 { return nil }}
	svc := newTestService(stub, Options{})
	coord := Coordinate{Lat: 40, Lon: -70}

	_, err := svc.GetPoint(context.Background(), coord, "2025-11-19", 1, 1)
	if err != ErrNoData {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	first := stub.dayCalls + stub.nudgeCalls

	// An identical retry must re-invoke the stub: errors are not cached.
	_, err = svc.GetPoint(context.Background(), coord, "2025-11-19", 1, 1)
	if err != ErrNoData {
		t.Fatalf("expected ErrNoData on retry, got %v", err)
	}
	if stub.dayCalls+stub.nudgeCalls != 2*first {
		t.Error("no-data result was cached; retry did not reach the fetcher")
	}
}

func TestGetPointValidation(t *testing.T) {
	stub := &stubFetcher{tempFor: func(Coordinate, string) *float64 { return ptr(20) }}
	svc := newTestService(stub, Options{})

	cases := []struct {
		name   string
		coord  Coordinate
		date   string
		years  int
		radius int
	}{
		{"malformed date", Coordinate{Lat: 40, Lon: -70}, "2025-02-30", 1, 1},
		{"garbage date", Coordinate{Lat: 40, Lon: -70}, "yesterday", 1, 1},
		{"latitude out of range", Coordinate{Lat: 91, Lon: -70}, "2025-11-19", 1, 1},
		{"negative years", Coordinate{Lat: 40, Lon: -70}, "2025-11-19", -1, 1},
		{"negative radius", Coordinate{Lat: 40, Lon: -70}, "2025-11-19", 1, -1},
	}
	for _, tc := range cases {
		_, err := svc.GetPoint(context.Background(), tc.coord, tc.date, tc.years, tc.radius)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}
	if stub.dayCalls+stub.nudgeCalls != 0 {
		t.Error("validation errors must not reach the fetcher")
	}
}

func TestGetPointDegenerateRanges(t *testing.T) {
	stub := &stubFetcher{tempFor: func(Coordinate, string) *float64 { return ptr(25) }}
	svc := newTestService(stub, Options{})

	payload, err := svc.GetPoint(context.Background(), Coordinate{Lat: 40, Lon: -70}, "2025-11-19", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(payload.Rows) != 1 {
		t.Fatalf("expected single selected row, got %d", len(payload.Rows))
	}
	if payload.Rows[0].Kind != KindSelected {
		t.Errorf("expected selected kind, got %s", payload.Rows[0].Kind)
	}
}

func TestGetGrid(t *testing.T) {
	stub := &stubFetcher{
		tempFor:   func(Coordinate, string) *float64 { return nil },
		gridTemps: []*float64{ptr(15), nil, ptr(17), ptr(18)},
	}
	svc := newTestService(stub, Options{})

	box := BBox{MinLat: 40, MinLon: -71, MaxLat: 40.5, MaxLon: -70.5}
	payload, err := svc.GetGrid(context.Background(), box, "2025-11-19", 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if len(payload.Points) != 4 { // 2x2 lattice
		t.Fatalf("expected 4 points, got %d", len(payload.Points))
	}
	if payload.Points[0].Temp == nil || *payload.Points[0].Temp != 15 {
		t.Errorf("unexpected first point: %+v", payload.Points[0])
	}
	if payload.Points[1].Temp != nil {
		t.Error("missing lattice point should stay a gap")
	}

	// Second identical request served from cache.
	if _, err := svc.GetGrid(context.Background(), box, "2025-11-19", 0.5); err != nil {
		t.Fatal(err)
	}
	if stub.gridCalls != 1 {
		t.Errorf("expected 1 batched call, got %d", stub.gridCalls)
	}
}

func TestGetGridCapRejectedBeforeFetch(t *testing.T) {
	stub := &stubFetcher{tempFor: func(Coordinate, string) *float64 { return nil }}
	svc := newTestService(stub, Options{GridMaxPoints: 1000})

	// 0.01-degree step over a 1x1 degree box is a 101x101 lattice.
	box := BBox{MinLat: 40, MinLon: -71, MaxLat: 41, MaxLon: -70}
	_, err := svc.GetGrid(context.Background(), box, "2025-11-19", 0.01)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for oversized grid, got %v", err)
	}
	if stub.gridCalls != 0 {
		t.Error("oversized grid must be rejected before any upstream call")
	}
}

// A positive but pathologically small step over a wide box produces lattice
// counts whose int product wraps to zero; the cap check must still reject
// the request before anything is materialized or fetched.
func TestGetGridTinyStepRejectedBeforeFetch(t *testing.T) {
	stub := &stubFetcher{tempFor: func(Coordinate, string) *float64 { return nil }}
	svc := newTestService(stub, Options{GridMaxPoints: 1000})

	box := BBox{MinLat: 0, MinLon: 0, MaxLat: 90, MaxLon: 90}
	step := 90.0 / 4294967295.0 // ~2^32 rows and columns per axis

	_, err := svc.GetGrid(context.Background(), box, "2025-11-19", step)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for pathological step, got %v", err)
	}
	if stub.gridCalls != 0 {
		t.Error("pathological grid must be rejected before any upstream call")
	}
}

func TestGetGridValidation(t *testing.T) {
	stub := &stubFetcher{tempFor: func(Coordinate, string) *float64 { return nil }}
	svc := newTestService(stub, Options{})

	cases := []struct {
		name string
		box  BBox
		date string
		step float64
	}{
		{"inverted box", BBox{MinLat: 41, MinLon: -70, MaxLat: 40, MaxLon: -71}, "2025-11-19", 0.5},
		{"bad date", BBox{MinLat: 40, MinLon: -71, MaxLat: 41, MaxLon: -70}, "soon", 0.5},
		{"zero step", BBox{MinLat: 40, MinLon: -71, MaxLat: 41, MaxLon: -70}, "2025-11-19", 0},
	}
	for _, tc := range cases {
		_, err := svc.GetGrid(context.Background(), tc.box, tc.date, tc.step)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}
}

func TestLatticeCoords(t *testing.T) {
	box := BBox{MinLat: 0, MinLon: 0, MaxLat: 1, MaxLon: 2}
	coords := latticeCoords(box, 1)
	if len(coords) != 6 { // 2 lat rows x 3 lon columns
		t.Fatalf("expected 6 coords, got %d", len(coords))
	}
	if coords[0] != (Coordinate{Lat: 0, Lon: 0}) {
		t.Errorf("unexpected first coord %+v", coords[0])
	}
	if coords[5] != (Coordinate{Lat: 1, Lon: 2}) {
		t.Errorf("unexpected last coord %+v", coords[5])
	}
}

