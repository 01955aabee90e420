package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/clieb/utility-stats/internal/measurement"
	"github.com/clieb/utility-stats/internal/smooth"
	"github.com/clieb/utility-stats/internal/weather"
)

var validate = validator.New()

// Options carries the collaborators the handlers serve from.
type Options struct {
	Service *weather.Service

	// Utilities maps a path name (e.g. "electric", "gas") to its meter
	// readings. May be empty when no meter files are configured.
	Utilities map[string]*measurement.Series

	// SmoothingDays is the default local-regression window width.
	SmoothingDays int
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, opts Options) {
	v1 := app.Group("/api/v1")

	v1.Get("/temps/daily", func(c *fiber.Ctx) error {
		date, err := parseDate(c.Query("date"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		temp, err := opts.Service.Temp(c.UserContext(), date)
		if err != nil {
			return mapServiceError(err)
		}

		return c.JSON(fiber.Map{
			"date": date.Format("2006-01-02"),
			"temp": temp,
		})
	})

	v1.Get("/temps/average", func(c *fiber.Ctx) error {
		var req averageQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		avgFunc, err := selectAverage(opts.Service, req.Stat)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		avg, err := avgFunc(c.UserContext(), req.From, req.To)
		if err != nil {
			return mapServiceError(err)
		}

		return c.JSON(fiber.Map{
			"from":     req.From.Format("2006-01-02"),
			"to":       req.To.Format("2006-01-02"),
			"stat":     req.Stat,
			"avgTempF": avg,
		})
	})

	v1.Get("/temps/smoothed", func(c *fiber.Ctx) error {
		var req smoothedQuery
		if err := req.bind(c, opts.SmoothingDays); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var series []smooth.Point
		for date := range weather.DateRange(req.From, req.To) {
			temp, err := opts.Service.Temp(c.UserContext(), date)
			if err != nil {
				return mapServiceError(err)
			}
			series = append(series, smooth.Point{Date: date, Value: temp.Mean})
		}
		if len(series) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "empty date range")
		}

		return c.JSON(fiber.Map{
			"from":     req.From.Format("2006-01-02"),
			"to":       req.To.Format("2006-01-02"),
			"window":   req.Window,
			"smoothed": smooth.Smooth(series, req.Window),
		})
	})

	v1.Get("/usage/:utility", func(c *fiber.Ctx) error {
		series, ok := opts.Utilities[c.Params("utility")]
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown utility")
		}

		usage := series.PerDayUsage()
		if len(usage) == 0 {
			return fiber.NewError(fiber.StatusNotFound, "not enough meter readings")
		}

		// Average temperature over each half-open interval between readings,
		// aligned with the usage points.
		stat := c.Query("stat", "mean")
		avgFunc, err := selectAverage(opts.Service, stat)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		temps := make([]smooth.Point, 0, len(usage))
		for i := 1; i < len(series.Data); i++ {
			avg, err := avgFunc(c.UserContext(), series.Data[i-1].Date, series.Data[i].Date)
			if err != nil {
				return mapServiceError(err)
			}
			temps = append(temps, smooth.Point{Date: series.Data[i].Date, Value: avg})
		}

		return c.JSON(fiber.Map{
			"utility":  series.Type,
			"unit":     series.Unit,
			"usage":    usage,
			"smoothed": smooth.Smooth(usage, opts.SmoothingDays),
			"avgTemps": temps,
			"stat":     stat,
		})
	})
}

// averageQuery holds query parameters for the range-average endpoint.
type averageQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtfield=From"`
	Stat string    `validate:"required,oneof=min mean max"`
}

func (q *averageQuery) bind(c *fiber.Ctx) error {
	var err error
	if q.From, err = parseDate(c.Query("from")); err != nil {
		return err
	}
	if q.To, err = parseDate(c.Query("to")); err != nil {
		return err
	}
	q.Stat = c.Query("stat", "mean")
	return validate.Struct(q)
}

type averageFunc = func(ctx context.Context, from, to time.Time) (float64, error)

func selectAverage(s *weather.Service, stat string) (averageFunc, error) {
	switch stat {
	case "min":
		return s.AvgMinTemp, nil
	case "mean":
		return s.AvgMeanTemp, nil
	case "max":
		return s.AvgMaxTemp, nil
	default:
		return nil, errors.New("stat must be one of min, mean, max")
	}
}

// smoothedQuery holds query parameters for the smoothed-series endpoint.
type smoothedQuery struct {
	From   time.Time `validate:"required"`
	To     time.Time `validate:"required,gtfield=From"`
	Window int       `validate:"required,min=1"`
}

func (q *smoothedQuery) bind(c *fiber.Ctx, defaultWindow int) error {
	var err error
	if q.From, err = parseDate(c.Query("from")); err != nil {
		return err
	}
	if q.To, err = parseDate(c.Query("to")); err != nil {
		return err
	}
	q.Window = c.QueryInt("window", defaultWindow)
	return validate.Struct(q)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("date query parameter is required (YYYY-MM-DD)")
	}
	date, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errors.New("invalid date format; use YYYY-MM-DD")
	}
	return date.UTC(), nil
}

// mapServiceError translates core error kinds into HTTP statuses.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, weather.ErrEmptyRange), errors.Is(err, weather.ErrInvalidDate):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, weather.ErrNoTemperatureData):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, weather.ErrQuotaExceeded):
		return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
