package httpapi

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/Sebastian-Sole/scuba-suit/internal/dates"
	"github.com/Sebastian-Sole/scuba-suit/internal/geocode"
	"github.com/Sebastian-Sole/scuba-suit/internal/sst"
	"github.com/Sebastian-Sole/scuba-suit/internal/suit"
)

var validate = validator.New()

// Options carries the per-endpoint defaults and cache lifetimes the
// handlers expose in Cache-Control headers.
type Options struct {
	DefaultYears        int
	DefaultForecastDays int
	PointTTL            time.Duration
	GridTTL             time.Duration
	GeocodeTTL          time.Duration
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *sst.Service, geo *geocode.Client, opts Options) {
	api := app.Group("/api")

	api.Get("/sst/point", func(c *fiber.Ctx) error {
		var req pointQuery
		if err := req.bind(c, opts); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		payload, err := service.GetPoint(c.UserContext(), sst.Coordinate{Lat: req.Lat, Lon: req.Lon}, req.Date, req.Years, req.ForecastDays)
		if err != nil {
			return mapServiceError(c, err, req.Lat, req.Lon, req.Date)
		}

		setPublicCache(c, opts.PointTTL)
		return c.JSON(payload)
	})

	api.Get("/sst/grid", func(c *fiber.Ctx) error {
		var req gridQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		payload, err := service.GetGrid(c.UserContext(), req.box, req.Date, req.Step)
		if err != nil {
			return mapServiceError(c, err, req.box.MinLat, req.box.MinLon, req.Date)
		}

		setPublicCache(c, opts.GridTTL)
		return c.JSON(payload)
	})

	api.Get("/geocode", func(c *fiber.Ctx) error {
		q := c.Query("q")
		if q == "" {
			return fiber.NewError(fiber.StatusBadRequest, "q query parameter is required")
		}

		result, err := geo.Lookup(q)
		if err != nil {
			if errors.Is(err, geocode.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no location found for query")
			}
			log.Printf("geocode lookup failed for %q: %v", q, err)
			return fiber.NewError(fiber.StatusBadGateway, "failed to resolve location")
		}

		setPublicCache(c, opts.GeocodeTTL)
		return c.JSON(result)
	})

	// Preference-biased classification preview. Kept separate from the
	// point payload so personal preferences never enter the shared cache
	// key.
	api.Get("/suit", func(c *fiber.Ctx) error {
		tempStr := c.Query("temp")
		if tempStr == "" {
			return fiber.NewError(fiber.StatusBadRequest, "temp query parameter is required")
		}
		temp, err := strconv.ParseFloat(tempStr, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "temp must be a number")
		}

		diveMinutes, err := queryIntStrict(c, "diveMinutes", 0)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		prefs := suit.Preferences{
			RunsCold:    c.QueryBool("runsCold"),
			DiveMinutes: diveMinutes,
		}
		return c.JSON(suit.Classify(temp, prefs))
	})
}

// mapServiceError translates the orchestrator's error taxonomy into HTTP
// responses: validation errors → 400, no-data → 404 with a machine code,
// anything else → generic 502 with the detail logged, not exposed.
func mapServiceError(c *fiber.Ctx, err error, lat, lon float64, date string) error {
	var verr *sst.ValidationError
	if errors.As(err, &verr) {
		return fiber.NewError(fiber.StatusBadRequest, verr.Error())
	}
	if errors.Is(err, sst.ErrNoData) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no ocean temperature data available for this location - try clicking on ocean areas near the coast",
			"code":  "NO_DATA",
		})
	}
	log.Printf("SST aggregation failed for lat=%g lon=%g date=%s: %v", lat, lon, date, err)
	return fiber.NewError(fiber.StatusBadGateway, "failed to fetch SST data")
}

func setPublicCache(c *fiber.Ctx, ttl time.Duration) {
	c.Set(fiber.HeaderCacheControl, fmt.Sprintf("public, max-age=%d", int(ttl.Seconds())))
}

// pointQuery holds query parameters for the point recommendation endpoint.
type pointQuery struct {
	Lat          float64 `validate:"min=-90,max=90"`
	Lon          float64 `validate:"min=-180,max=180"`
	Date         string  `validate:"required"`
	Years        int     `validate:"min=0,max=10"`
	ForecastDays int     `validate:"min=0,max=7"`
}

func (q *pointQuery) bind(c *fiber.Ctx, opts Options) error {
	latStr := c.Query("lat")
	lonStr := c.Query("lon")
	if latStr == "" || lonStr == "" {
		return errors.New("lat and lon query parameters are required")
	}

	var err error
	if q.Lat, err = strconv.ParseFloat(latStr, 64); err != nil {
		return fmt.Errorf("invalid lat: %q", latStr)
	}
	if q.Lon, err = strconv.ParseFloat(lonStr, 64); err != nil {
		return fmt.Errorf("invalid lon: %q", lonStr)
	}

	q.Date = c.Query("date", dates.Today())
	if q.Years, err = queryIntStrict(c, "years", opts.DefaultYears); err != nil {
		return err
	}
	if q.ForecastDays, err = queryIntStrict(c, "forecastDays", opts.DefaultForecastDays); err != nil {
		return err
	}
	return nil
}

// queryIntStrict parses an optional integer query parameter, rejecting
// malformed values instead of silently substituting the default.
func queryIntStrict(c *fiber.Ctx, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

// gridQuery holds query parameters for the bounding-box grid endpoint.
type gridQuery struct {
	Date string  `validate:"required"`
	Step float64 `validate:"gt=0"`

	box sst.BBox
}

func (q *gridQuery) bind(c *fiber.Ctx) error {
	bboxStr := c.Query("bbox")
	if bboxStr == "" {
		return errors.New("bbox query parameter is required")
	}

	parts := strings.Split(bboxStr, ",")
	if len(parts) != 4 {
		return errors.New("bbox must be minLat,minLon,maxLat,maxLon")
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return fmt.Errorf("invalid bbox component %q", p)
		}
		vals[i] = v
	}
	q.box = sst.BBox{MinLat: vals[0], MinLon: vals[1], MaxLat: vals[2], MaxLon: vals[3]}

	q.Date = c.Query("date", dates.Today())

	stepStr := c.Query("step", "0.5")
	step, err := strconv.ParseFloat(stepStr, 64)
	if err != nil {
		return fmt.Errorf("invalid step: %q", stepStr)
	}
	q.Step = step
	return nil
}
