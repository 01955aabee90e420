package weather

import (
	"errors"
	"time"
)

var (
	// ErrInvalidDate is returned when history is requested for today or a
	// future date; the upstream has no finalized data for either.
	ErrInvalidDate = errors.New("no finalized history for requested date")

	// ErrQuotaExceeded is returned when the process-lifetime daily request
	// budget is exhausted. Not retryable within the same run.
	ErrQuotaExceeded = errors.New("daily request quota exceeded")

	// ErrMalformedResponse is returned when the upstream payload is
	// structurally invalid. Retrying cannot fix it.
	ErrMalformedResponse = errors.New("malformed upstream response")

	// ErrNoTemperatureData is returned when no observation in a day carries a
	// temperature value.
	ErrNoTemperatureData = errors.New("no temperature data for date")

	// ErrEmptyRange is returned for a zero-length date range.
	ErrEmptyRange = errors.New("empty date range")
)

// Observation is a single timestamped weather reading within a day. Numeric
// fields are pointers because the upstream marks missing data with "N/A" or
// sentinel values; nil means the measurement is absent, never zero.
type Observation struct {
	Time         time.Time `msgpack:"time" json:"time"`
	TempF        *float64  `msgpack:"tempF" json:"tempF,omitempty"`
	DewPointF    *float64  `msgpack:"dewPointF" json:"dewPointF,omitempty"`
	HumidityPct  *float64  `msgpack:"humidityPct" json:"humidityPct,omitempty"`
	WindSpeedMPH *float64  `msgpack:"windSpeedMPH" json:"windSpeedMPH,omitempty"`
	WindGustMPH  *float64  `msgpack:"windGustMPH" json:"windGustMPH,omitempty"`
	WindDirDeg   *float64  `msgpack:"windDirDeg" json:"windDirDeg,omitempty"`
	VisibilityMI *float64  `msgpack:"visibilityMI" json:"visibilityMI,omitempty"`
	PressureIn   *float64  `msgpack:"pressureIn" json:"pressureIn,omitempty"`
	WindChillF   *float64  `msgpack:"windChillF" json:"windChillF,omitempty"`
	HeatIndexF   *float64  `msgpack:"heatIndexF" json:"heatIndexF,omitempty"`
	PrecipIn     *float64  `msgpack:"precipIn" json:"precipIn,omitempty"`
	Conditions   string    `msgpack:"conditions" json:"conditions"`
	Fog          bool      `msgpack:"fog" json:"fog"`
	Rain         bool      `msgpack:"rain" json:"rain"`
	Snow         bool      `msgpack:"snow" json:"snow"`
	Hail         bool      `msgpack:"hail" json:"hail"`
	Thunder      bool      `msgpack:"thunder" json:"thunder"`
	Tornado      bool      `msgpack:"tornado" json:"tornado"`
}

// ResponseHeader carries the upstream response metadata.
type ResponseHeader struct {
	Version        string         `msgpack:"version" json:"version"`
	TermsOfService string         `msgpack:"termsOfService" json:"termsOfService"`
	Features       map[string]int `msgpack:"features" json:"features"`
}

// HistoricalRecord is one calendar day of weather history: the response
// header, the day itself, and the ordered observations for that day.
// Immutable once constructed; a past day's history does not change.
type HistoricalRecord struct {
	Response     ResponseHeader `msgpack:"response" json:"response"`
	Date         time.Time      `msgpack:"date" json:"date"`
	Observations []Observation  `msgpack:"observations" json:"observations"`
}

// Temp is the derived daily temperature summary in degrees Fahrenheit.
type Temp struct {
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	Max  float64 `json:"max"`
}

// DailyTemp reduces the record's observations to a Temp over every present
// temperature value. Returns ErrNoTemperatureData if no observation carries
// a temperature.
func (r *HistoricalRecord) DailyTemp() (Temp, error) {
	var (
		sum   float64
		count int
		min   float64
		max   float64
	)
	for _, obs := range r.Observations {
		if obs.TempF == nil {
			continue
		}
		t := *obs.TempF
		if count == 0 || t < min {
			min = t
		}
		if count == 0 || t > max {
			max = t
		}
		sum += t
		count++
	}
	if count == 0 {
		return Temp{}, ErrNoTemperatureData
	}
	return Temp{Min: min, Mean: sum / float64(count), Max: max}, nil
}

// Day normalizes a time to its UTC calendar date at midnight. All cache keys
// and range arithmetic operate on normalized days.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateStamp is the canonical 8-digit key for a calendar date, used for cache
// entries and upstream request URLs.
func DateStamp(date time.Time) string {
	return date.Format("20060102")
}
