package weather

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Upstream sentinel values that mean "no data". Compared within a small
// epsilon because the raw values arrive as formatted strings.
const sentinelEpsilon = 0.5

var missingSentinels = []float64{-999, -9999, -99999}

// rawResponse mirrors the upstream JSON shape. Every numeric and boolean
// field is transmitted as a string.
type rawResponse struct {
	Response struct {
		Version        string         `json:"version"`
		TermsOfService string         `json:"termsofService"`
		Features       map[string]int `json:"features"`
	} `json:"response"`
	History *struct {
		Date         *rawDate         `json:"date"`
		Observations []rawObservation `json:"observations"`
	} `json:"history"`
}

type rawDate struct {
	Year   string `json:"year"`
	Mon    string `json:"mon"`
	Mday   string `json:"mday"`
	Hour   string `json:"hour"`
	Min    string `json:"min"`
	TZName string `json:"tzname"`
}

type rawObservation struct {
	Date       *rawDate `json:"date"`
	TempI      string   `json:"tempi"`
	DewptI     string   `json:"dewpti"`
	Hum        string   `json:"hum"`
	WspdI      string   `json:"wspdi"`
	WgustI     string   `json:"wgusti"`
	Wdird      string   `json:"wdird"`
	VisI       string   `json:"visi"`
	PressureI  string   `json:"pressurei"`
	WindchillI string   `json:"windchilli"`
	HeatindexI string   `json:"heatindexi"`
	PrecipI    string   `json:"precipi"`
	Conds      string   `json:"conds"`
	Fog        string   `json:"fog"`
	Rain       string   `json:"rain"`
	Snow       string   `json:"snow"`
	Hail       string   `json:"hail"`
	Thunder    string   `json:"thunder"`
	Tornado    string   `json:"tornado"`
}

// ParseResponse converts an upstream JSON payload into a HistoricalRecord.
// Structural problems (missing history block, missing date components,
// unknown time zone) return ErrMalformedResponse; per-field "N/A" and
// sentinel magic numbers become absent values rather than zeros.
func ParseResponse(body []byte) (*HistoricalRecord, error) {
	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding history payload: %w", err)
	}

	if raw.History == nil || raw.History.Date == nil {
		return nil, fmt.Errorf("%w: missing history block", ErrMalformedResponse)
	}
	if raw.History.Observations == nil {
		return nil, fmt.Errorf("%w: missing observation list", ErrMalformedResponse)
	}

	day, err := parseTimestamp(raw.History.Date)
	if err != nil {
		return nil, err
	}

	record := &HistoricalRecord{
		Response: ResponseHeader{
			Version:        raw.Response.Version,
			TermsOfService: raw.Response.TermsOfService,
			Features:       raw.Response.Features,
		},
		Date:         day,
		Observations: make([]Observation, 0, len(raw.History.Observations)),
	}

	for i, rawObs := range raw.History.Observations {
		obs, err := parseObservation(&rawObs)
		if err != nil {
			return nil, fmt.Errorf("observation %d: %w", i, err)
		}
		record.Observations = append(record.Observations, obs)
	}

	return record, nil
}

func parseObservation(raw *rawObservation) (Observation, error) {
	if raw.Date == nil {
		return Observation{}, fmt.Errorf("%w: missing observation date", ErrMalformedResponse)
	}
	ts, err := parseTimestamp(raw.Date)
	if err != nil {
		return Observation{}, err
	}

	obs := Observation{
		Time:         ts,
		TempF:        optionalFloat(raw.TempI),
		DewPointF:    optionalFloat(raw.DewptI),
		HumidityPct:  optionalFloat(raw.Hum),
		WindSpeedMPH: optionalFloat(raw.WspdI),
		WindGustMPH:  optionalFloat(raw.WgustI),
		WindDirDeg:   optionalFloat(raw.Wdird),
		VisibilityMI: optionalFloat(raw.VisI),
		PressureIn:   optionalFloat(raw.PressureI),
		WindChillF:   optionalFloat(raw.WindchillI),
		HeatIndexF:   optionalFloat(raw.HeatindexI),
		PrecipIn:     optionalFloat(raw.PrecipI),
		Conditions:   raw.Conds,
	}

	for _, flag := range []struct {
		raw string
		dst *bool
	}{
		{raw.Fog, &obs.Fog},
		{raw.Rain, &obs.Rain},
		{raw.Snow, &obs.Snow},
		{raw.Hail, &obs.Hail},
		{raw.Thunder, &obs.Thunder},
		{raw.Tornado, &obs.Tornado},
	} {
		v, err := parseBoolFlag(flag.raw)
		if err != nil {
			return Observation{}, err
		}
		*flag.dst = v
	}

	return obs, nil
}

// parseTimestamp combines the upstream's split date components and named time
// zone into a single zoned timestamp.
func parseTimestamp(raw *rawDate) (time.Time, error) {
	components := []struct {
		name  string
		value string
	}{
		{"year", raw.Year},
		{"mon", raw.Mon},
		{"mday", raw.Mday},
		{"hour", raw.Hour},
		{"min", raw.Min},
	}

	parsed := make([]int, len(components))
	for i, c := range components {
		n, err := strconv.Atoi(strings.TrimSpace(c.value))
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: non-numeric %s %q", ErrMalformedResponse, c.name, c.value)
		}
		parsed[i] = n
	}

	loc, err := time.LoadLocation(raw.TZName)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unknown time zone %q", ErrMalformedResponse, raw.TZName)
	}

	return time.Date(parsed[0], time.Month(parsed[1]), parsed[2], parsed[3], parsed[4], 0, 0, loc), nil
}

// optionalFloat converts a raw string measurement to a float, mapping the
// "N/A" literal, unparsable values, and missing-data sentinels to nil.
func optionalFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	for _, sentinel := range missingSentinels {
		if math.Abs(v-sentinel) < sentinelEpsilon {
			return nil
		}
	}
	return &v
}

// parseBoolFlag decodes the upstream's 0/1 boolean encoding. An empty value
// counts as false; anything else non-numeric is a schema problem.
func parseBoolFlag(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return false, fmt.Errorf("%w: non-numeric boolean flag %q", ErrMalformedResponse, s)
	}
	return n != 0, nil
}
