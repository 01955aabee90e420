// Package measurement loads utility meter readings from CSV files and
// derives per-day usage rates between consecutive readings.
package measurement

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/clieb/utility-stats/internal/smooth"
)

// Measurement is a single meter reading: the date it was taken and the
// amount of resource used since the previous reading.
type Measurement struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// Series is an ordered set of meter readings for one utility.
type Series struct {
	Data []Measurement
	Type string // e.g. "Electricity"
	Unit string // e.g. "kWh"
}

// FromFile reads a CSV file of `date,amount` rows (date formatted
// YYYY-MM-DD, no header) into a Series sorted by date ascending.
func FromFile(path, typ, unit string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	data := make([]Measurement, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("%s row %d: expected date,amount", path, i+1)
		}
		date, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		amount, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		data = append(data, Measurement{Date: date.UTC(), Amount: amount})
	}

	sort.Slice(data, func(i, j int) bool { return data[i].Date.Before(data[j].Date) })

	return &Series{Data: data, Type: typ, Unit: unit}, nil
}

// PerDayUsage converts the readings into a plottable series: for each reading
// after the first, the amount used divided by the days since the previous
// reading, dated at the reading itself.
func (s *Series) PerDayUsage() []smooth.Point {
	if len(s.Data) < 2 {
		return nil
	}

	points := make([]smooth.Point, 0, len(s.Data)-1)
	for i := 1; i < len(s.Data); i++ {
		prev, curr := s.Data[i-1], s.Data[i]
		days := curr.Date.Sub(prev.Date).Hours() / 24
		if days <= 0 {
			continue
		}
		points = append(points, smooth.Point{
			Date:  curr.Date,
			Value: curr.Amount / days,
		})
	}
	return points
}
